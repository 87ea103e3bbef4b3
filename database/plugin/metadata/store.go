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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/blinklabs-io/stakeidx/database/plugin"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	Transaction() *gorm.DB

	// Accounts
	GetAccount(string, *gorm.DB) (*models.Account, error)
	GetAccounts([]string, *gorm.DB) ([]models.Account, error)
	InsertAccount(*models.Account, *gorm.DB) error
	SaveAccounts([]models.Account, *gorm.DB) error
	TouchAccounts(
		[]string, // ids
		uint64, // height
		*gorm.DB,
	) error

	// Stakers
	GetStaker(string, *gorm.DB) (*models.Staker, error)
	GetStakers([]string, *gorm.DB) ([]models.Staker, error)
	SaveStaker(*models.Staker, *gorm.DB) error
	GetCollator(string, *gorm.DB) (*models.Collator, error)
	SaveCollator(*models.Collator, *gorm.DB) error
	GetDelegator(string, *gorm.DB) (*models.Delegator, error)
	SaveDelegator(*models.Delegator, *gorm.DB) error

	// History
	AddHistoryElement(*models.HistoryElement, *gorm.DB) error
	GetHistory(string, *gorm.DB) ([]models.HistoryElement, error)
	GetCursor(*gorm.DB) (uint64, bool, error)
	SetCursor(uint64, *gorm.DB) error
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
