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

package stakeidx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/blinklabs-io/stakeidx/database/types"
)

// BlockReader decodes a stream of JSON encoded blocks, typically one per line
type BlockReader struct {
	dec        *json.Decoder
	lastHeight uint64
	count      int
}

func NewBlockReader(r io.Reader) *BlockReader {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return &BlockReader{dec: dec}
}

// Next returns the next block, or io.EOF when the stream is exhausted.
// Heights must increase strictly through the stream.
func (b *BlockReader) Next() (*Block, error) {
	var block Block
	if err := b.dec.Decode(&block); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode block %d in feed: %w", b.count+1, err)
	}
	if err := checkBlockIDs(&block); err != nil {
		return nil, fmt.Errorf("block %d: %w", block.Height, err)
	}
	if b.count > 0 && block.Height <= b.lastHeight {
		return nil, fmt.Errorf(
			"block height %d does not follow %d",
			block.Height,
			b.lastHeight,
		)
	}
	b.count++
	b.lastHeight = block.Height
	return &block, nil
}

func checkBlockIDs(block *Block) error {
	for _, evt := range block.Events {
		if err := types.CheckID(evt.Account); err != nil {
			return fmt.Errorf("event %s: %w", evt.Name, err)
		}
	}
	for _, role := range []map[string]*types.Amount{
		block.State.Collators,
		block.State.Delegators,
	} {
		for id := range role {
			if err := types.CheckID(id); err != nil {
				return fmt.Errorf("chain state: %w", err)
			}
		}
	}
	return nil
}

// Load processes every block read from r and returns how many were read
func (i *Indexer) Load(ctx context.Context, r io.Reader) (int, error) {
	reader := NewBlockReader(r)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		block, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		if err := i.ProcessBlock(ctx, *block); err != nil {
			return count, err
		}
		count++
	}
}
