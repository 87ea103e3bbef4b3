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
	"github.com/blinklabs-io/stakeidx/database/types"
)

// Staking roles. A staker's role is fixed when it is created.
const (
	RoleCollator  = "collator"
	RoleDelegator = "delegator"
)

// ValidRole reports whether role is one of the known staking roles
func ValidRole(role string) bool {
	switch role {
	case RoleCollator, RoleDelegator:
		return true
	default:
		return false
	}
}

// Staker is a participant in the staking protocol. Its ID is the stash
// account ID.
type Staker struct {
	Stash       Account      `gorm:"foreignKey:StashID"`
	ID          string       `gorm:"primarykey;size:64"`
	StashID     string       `gorm:"uniqueIndex;size:64;not null"`
	Role        string       `gorm:"size:16;index;not null"`
	ActiveBond  types.Amount `gorm:"not null"`
	TotalReward types.Amount `gorm:"not null"`
	Commission  uint32
}

func (Staker) TableName() string {
	return "staker"
}

// Collator marks a staker as a collator. It shares its key with the staker.
type Collator struct {
	ID string `gorm:"primarykey;size:64"`
}

func (Collator) TableName() string {
	return "collator"
}

// Delegator marks a staker as a delegator. It shares its key with the staker.
type Delegator struct {
	ID string `gorm:"primarykey;size:64"`
}

func (Delegator) TableName() string {
	return "delegator"
}
