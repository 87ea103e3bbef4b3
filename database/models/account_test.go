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

package models_test

import (
	"testing"

	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/stretchr/testify/assert"
)

func TestValidRole(t *testing.T) {
	assert.True(t, models.ValidRole(models.RoleCollator))
	assert.True(t, models.ValidRole(models.RoleDelegator))
	assert.False(t, models.ValidRole(""))
	assert.False(t, models.ValidRole("validator"))
}

func TestHistoryTypeString(t *testing.T) {
	testDefs := map[models.HistoryType]string{
		models.HistoryTypeReward:    "reward",
		models.HistoryTypeSlash:     "slash",
		models.HistoryTypeBond:      "bond",
		models.HistoryTypeUnbond:    "unbond",
		models.HistoryTypeWithdrawn: "withdrawn",
		models.HistoryType(99):      "unknown",
	}
	for historyType, expected := range testDefs {
		assert.Equal(t, expected, historyType.String())
	}
}
