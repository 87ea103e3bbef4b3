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

// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/blinklabs-io/stakeidx/database"
	"github.com/blinklabs-io/stakeidx/event"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds how long helpers wait for a channel
const DefaultTimeout = time.Second

// NewDatabase opens an in-memory database that is closed when the test ends
func NewDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

// RequireReceive waits for a value on the given channel or fails the test
// if the timeout expires
func RequireReceive[T any](
	t *testing.T,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed: %s", msg)
		return v
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for channel receive: %s", msg)
		var zero T
		return zero // unreachable
	}
}

// RequireEventData waits for an event and returns its payload, failing the
// test if the payload is not a T
func RequireEventData[T any](
	t *testing.T,
	ch <-chan event.Event,
	msg string,
) T {
	t.Helper()
	evt := RequireReceive(t, ch, DefaultTimeout, msg)
	data, ok := evt.Data.(T)
	require.True(t, ok, "unexpected event data %T: %s", evt.Data, msg)
	return data
}

// RequireNoReceive verifies that nothing arrives on the channel within the
// given duration
func RequireNoReceive[T any](
	t *testing.T,
	ch <-chan T,
	duration time.Duration,
	msg string,
) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf(
			"unexpected value received on channel: %v: %s",
			v,
			msg,
		)
	case <-time.After(duration):
	}
}
