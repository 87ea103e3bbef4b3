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

package types

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// MaxIDLength is the longest participant id in bytes. It matches the id
// columns of the metadata models.
const MaxIDLength = 64

// CheckID returns ErrInvalidID when id is longer than MaxIDLength
func CheckID(id string) error {
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidID, len(id), MaxIDLength)
	}
	return nil
}

const (
	ChainStateKeyPrefix       = "cs"
	ChainStateTipKey          = "cs_tip"
	ChainStateFloorKey        = "cs_floor"
	ChainStateCollatorMarker  = "c"
	ChainStateDelegatorMarker = "d"
)

func HeightToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

func BytesToHeight(input []byte) uint64 {
	if len(input) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(input[len(input)-8:])
}

// ChainStatePrefix returns the key prefix shared by every height entry of one
// participant in one role. The id is length-prefixed so that no id can be a
// prefix of another. Callers check ids with CheckID first, so the length
// always fits the two byte prefix.
func ChainStatePrefix(marker string, id string) []byte {
	idLen := make([]byte, 2)
	binary.BigEndian.PutUint16(idLen, uint16(len(id))) //nolint:gosec // bounded by MaxIDLength
	return slices.Concat(
		[]byte(ChainStateKeyPrefix),
		[]byte(marker),
		idLen,
		[]byte(id),
	)
}

// ChainStateKey returns the key for the entry of a participant at a height
func ChainStateKey(marker string, id string, height uint64) []byte {
	return slices.Concat(
		ChainStatePrefix(marker, id),
		HeightToBytes(height),
	)
}
