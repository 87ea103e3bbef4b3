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

package database

import (
	"fmt"
)

// CommitHeightError reports that the metadata and blob stores were last
// committed at different block heights
type CommitHeightError struct {
	MetadataHeight uint64
	BlobHeight     uint64
}

func (e CommitHeightError) Error() string {
	return fmt.Sprintf(
		"commit height mismatch: %d (metadata) != %d (blob)",
		e.MetadataHeight,
		e.BlobHeight,
	)
}

func (d *Database) checkCommitHeight() error {
	metadataHeight, metadataOk, err := d.Metadata().GetCursor(nil)
	if err != nil {
		return fmt.Errorf(
			"failed to get metadata commit height from plugin: %w",
			err,
		)
	}
	blobHeight, blobOk, err := d.Blob().GetCommitHeight()
	if err != nil {
		return fmt.Errorf(
			"failed to get blob commit height from plugin: %w",
			err,
		)
	}
	// Nothing committed yet
	if !metadataOk && !blobOk {
		return nil
	}
	if metadataOk != blobOk || metadataHeight != blobHeight {
		return CommitHeightError{
			MetadataHeight: metadataHeight,
			BlobHeight:     blobHeight,
		}
	}
	return nil
}

func (d *Database) updateCommitHeight(txn *Txn, height uint64) error {
	if err := d.Metadata().SetCursor(height, txn.Metadata()); err != nil {
		return err
	}
	if err := d.Blob().SetCommitHeight(txn.Blob(), height); err != nil {
		return err
	}
	return nil
}

// CommitHeight returns the height of the last committed block and whether
// any block has been committed
func (d *Database) CommitHeight(txn *Txn) (uint64, bool, error) {
	if txn == nil {
		return d.Metadata().GetCursor(nil)
	}
	return d.Metadata().GetCursor(txn.Metadata())
}
