// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package models

import (
	"time"

	"github.com/blinklabs-io/stakeidx/database/types"
)

type HistoryType int

const (
	HistoryTypeReward HistoryType = iota
	HistoryTypeSlash
	HistoryTypeBond
	HistoryTypeUnbond
	HistoryTypeWithdrawn
)

func (h HistoryType) String() string {
	switch h {
	case HistoryTypeReward:
		return "reward"
	case HistoryTypeSlash:
		return "slash"
	case HistoryTypeBond:
		return "bond"
	case HistoryTypeUnbond:
		return "unbond"
	case HistoryTypeWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

// HistoryElement records a single staking event for a staker
type HistoryElement struct {
	Timestamp   time.Time    `gorm:"not null"`
	Amount      types.Amount `gorm:"not null"`
	ID          string       `gorm:"primarykey;size:80"`
	StakerID    string       `gorm:"index;size:64;not null"`
	BlockNumber uint64       `gorm:"index;not null"`
	Type        HistoryType  `gorm:"not null"`
	Round       uint32
}

func (HistoryElement) TableName() string {
	return "history_element"
}

// Cursor stores the height of the last fully processed block
type Cursor struct {
	ID     uint `gorm:"primarykey"`
	Height uint64
}

func (Cursor) TableName() string {
	return "cursor"
}
