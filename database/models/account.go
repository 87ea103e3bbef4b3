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
	"errors"
)

var ErrAccountNotFound = errors.New("account not found")

// Account is the identity anchor for any participant seen on chain. Accounts
// are created lazily and never deleted.
type Account struct {
	ID              string `gorm:"primarykey;size:64"`
	LastUpdateBlock uint64 `gorm:"index"`
}

func (Account) TableName() string {
	return "account"
}
