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

package types_test

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/blinklabs-io/stakeidx/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesScanValue(t *testing.T) {
	big, err := types.ParseAmount("340282366920938463463374607431768211455")
	require.NoError(t, err)
	testDefs := []struct {
		origValue     any
		expectedValue any
	}{
		{
			origValue: func(v types.Amount) *types.Amount { return &v }(
				types.NewAmount(123),
			),
			expectedValue: "123",
		},
		{
			origValue:     &big,
			expectedValue: "340282366920938463463374607431768211455",
		},
	}
	var ok bool
	var tmpScanner sql.Scanner
	var tmpValuer driver.Valuer
	for _, testDef := range testDefs {
		tmpValuer, ok = testDef.origValue.(driver.Valuer)
		if !ok {
			t.Fatalf("test original value does not implement driver.Valuer")
		}
		valueOut, err := tmpValuer.Value()
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !reflect.DeepEqual(valueOut, testDef.expectedValue) {
			t.Fatalf(
				"did not get expected value from Value(): got %#v, expected %#v",
				valueOut,
				testDef.expectedValue,
			)
		}
		tmpScanner, ok = testDef.origValue.(sql.Scanner)
		if !ok {
			t.Fatalf(
				"test original value does not implement sql.Scanner (it must be a pointer)",
			)
		}
		if err := tmpScanner.Scan(valueOut); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !reflect.DeepEqual(tmpScanner, testDef.origValue) {
			t.Fatalf(
				"did not get expected value after Scan(): got %#v, expected %#v",
				tmpScanner,
				testDef.origValue,
			)
		}
	}
}

func TestAmountScanBytes(t *testing.T) {
	var a types.Amount
	require.NoError(t, a.Scan([]byte("1000")))
	assert.Equal(t, "1000", a.String())
	require.Error(t, a.Scan(1.5))
}

func TestAmountArithmetic(t *testing.T) {
	var zero types.Amount
	assert.Equal(t, "0", zero.String())
	sum := zero.Add(types.NewAmount(500))
	assert.Equal(t, 0, sum.Cmp(types.NewAmount(500)))
	assert.Equal(t, "0", sum.SubFloor(types.NewAmount(501)).String())
	assert.Equal(t, "100", sum.SubFloor(types.NewAmount(400)).String())
}

func TestParseAmountRejectsNegative(t *testing.T) {
	_, err := types.ParseAmount("-1")
	require.Error(t, err)
	_, err = types.ParseAmount("abc")
	require.Error(t, err)
}

func TestChainStateKeyOrdering(t *testing.T) {
	low := types.ChainStateKey(types.ChainStateCollatorMarker, "alice", 9)
	high := types.ChainStateKey(types.ChainStateCollatorMarker, "alice", 256)
	assert.Negative(t, bytes.Compare(low, high))
	assert.True(
		t,
		bytes.HasPrefix(
			high,
			types.ChainStatePrefix(types.ChainStateCollatorMarker, "alice"),
		),
	)
	// "ali" must not be a prefix match for "alice"
	assert.False(
		t,
		bytes.HasPrefix(
			high,
			types.ChainStatePrefix(types.ChainStateCollatorMarker, "ali"),
		),
	)
	assert.Equal(t, uint64(256), types.BytesToHeight(high))
}

func TestAmountJSON(t *testing.T) {
	var doc struct {
		Quoted types.Amount `json:"quoted"`
		Bare   types.Amount `json:"bare"`
		Null   types.Amount `json:"null"`
	}
	err := json.Unmarshal(
		[]byte(`{"quoted":"340282366920938463463374607431768211455","bare":1000,"null":null}`),
		&doc,
	)
	require.NoError(t, err)
	assert.Equal(t, "340282366920938463463374607431768211455", doc.Quoted.String())
	assert.Equal(t, "1000", doc.Bare.String())
	assert.Equal(t, "0", doc.Null.String())
	out, err := json.Marshal(doc.Bare)
	require.NoError(t, err)
	assert.Equal(t, `"1000"`, string(out))
	assert.Error(t, json.Unmarshal([]byte(`"-5"`), &doc.Bare))
}
