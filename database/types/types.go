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
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

// Amount is a non-negative token amount of arbitrary size. Substrate balances
// are u128, which does not fit any native column type, so amounts are stored
// as decimal strings.
//
//nolint:recvcheck
type Amount struct {
	*big.Int
}

// NewAmount returns an Amount holding v
func NewAmount(v uint64) Amount {
	return Amount{Int: new(big.Int).SetUint64(v)}
}

// ParseAmount parses a base-10 amount string
func ParseAmount(s string) (Amount, error) {
	tmp, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount: %q", s)
	}
	if tmp.Sign() < 0 {
		return Amount{}, fmt.Errorf("negative amount: %q", s)
	}
	return Amount{Int: tmp}, nil
}

// Big returns the underlying value, treating a nil amount as zero
func (a Amount) Big() *big.Int {
	if a.Int == nil {
		return new(big.Int)
	}
	return a.Int
}

// Add returns a + b
func (a Amount) Add(b Amount) Amount {
	return Amount{Int: new(big.Int).Add(a.Big(), b.Big())}
}

// SubFloor returns a - b, clamped at zero
func (a Amount) SubFloor(b Amount) Amount {
	ret := new(big.Int).Sub(a.Big(), b.Big())
	if ret.Sign() < 0 {
		ret.SetInt64(0)
	}
	return Amount{Int: ret}
}

// Cmp compares a and b
func (a Amount) Cmp(b Amount) int {
	return a.Big().Cmp(b.Big())
}

func (a Amount) String() string {
	return a.Big().String()
}

func (a Amount) Value() (driver.Value, error) {
	return a.Big().String(), nil
}

func (a *Amount) Scan(val any) error {
	var v string
	switch tmp := val.(type) {
	case string:
		v = tmp
	case []byte:
		v = string(tmp)
	case int64:
		a.Int = big.NewInt(tmp)
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	tmpInt, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return fmt.Errorf("failed to set big.Int value from string: %s", v)
	}
	a.Int = tmpInt
	return nil
}

// MarshalText allows amounts to be used directly in YAML and JSON documents
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(data []byte) error {
	tmp, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

// MarshalJSON encodes the amount as a quoted decimal string
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare number
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	return a.UnmarshalText([]byte(s))
}

// GormDataType stores amounts as text, since u128 does not fit any integer column
func (Amount) GormDataType() string {
	return "string"
}

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrInvalidID is returned for participant ids longer than MaxIDLength
var ErrInvalidID = errors.New("invalid id")

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrNoStoreAvailable is returned when no blob or metadata store is available
var ErrNoStoreAvailable = errors.New("no store available")

// ErrTxnFinished is returned when a finished transaction is used again
var ErrTxnFinished = errors.New("transaction already finished")
