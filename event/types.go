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

package event

import (
	"time"

	"github.com/blinklabs-io/stakeidx/database/models"
)

const (
	StakerCreatedEventType  = EventType("staker.created")
	BlockProcessedEventType = EventType("block.processed")
)

// StakerCreatedEvent is published once per staker first seen in a block,
// after the block has been committed
type StakerCreatedEvent struct {
	Staker      models.Staker
	BlockHeight uint64
}

// BlockProcessedEvent is published after a block has been committed
type BlockProcessedEvent struct {
	Height         uint64
	Timestamp      time.Time
	EventsRecorded int
	EventsSkipped  int
	StakersCreated int
}
