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

package event_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/stakeidx/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testEvtType event.EventType = "test.event"

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "event channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return event.Event{}
}

func TestEventBusSingleSubscriber(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	evt := receive(t, subCh)
	assert.Equal(t, testEvtType, evt.Type)
	assert.Equal(t, 999, evt.Data)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "x"))
	assert.Equal(t, "x", receive(t, sub1Ch).Data)
	assert.Equal(t, "x", receive(t, sub2Ch).Data)
}

func TestEventBusOtherTypeNotDelivered(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(event.StakerCreatedEventType)
	eb.Publish(event.BlockProcessedEventType, event.NewEvent(event.BlockProcessedEventType, nil))
	select {
	case evt := <-subCh:
		t.Fatalf("unexpected event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	_, ok := <-subCh
	assert.False(t, ok, "expected channel to be closed")
	// unknown ids are ignored
	eb.Unsubscribe(testEvtType, subId)
}

func TestEventBusSubscribeFunc(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	var wg sync.WaitGroup
	wg.Add(1)
	var got event.StakerCreatedEvent
	eb.SubscribeFunc(event.StakerCreatedEventType, func(evt event.Event) {
		got = evt.Data.(event.StakerCreatedEvent)
		wg.Done()
	})
	eb.Publish(
		event.StakerCreatedEventType,
		event.NewEvent(
			event.StakerCreatedEventType,
			event.StakerCreatedEvent{BlockHeight: 7},
		),
	)
	wg.Wait()
	assert.Equal(t, uint64(7), got.BlockHeight)
	// Stop must release the handler goroutine for goleak
	eb.Stop()
}

func TestEventBusSlowSubscriberDrops(t *testing.T) {
	registry := prometheus.NewRegistry()
	eb := event.NewEventBus(registry, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	for i := range event.EventQueueSize + 5 {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
	}
	assert.Len(t, subCh, event.EventQueueSize)
	// the subscriber stays registered after drops
	eb.Publish(testEvtType, event.NewEvent(testEvtType, -1))
	assert.InDelta(
		t,
		float64(event.EventQueueSize+6),
		eventsPublished(t, registry),
		0,
	)
	assert.Equal(t, 0, receive(t, subCh).Data)
}

type failingSubscriber struct {
	closed bool
}

func (f *failingSubscriber) Deliver(event.Event) error {
	return errors.New("deliver failed")
}

func (f *failingSubscriber) Close() {
	f.closed = true
}

type panickingSubscriber struct {
	failingSubscriber
}

func (p *panickingSubscriber) Deliver(event.Event) error {
	panic("boom")
}

func TestEventBusFailingSubscriberRemoved(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	failing := &failingSubscriber{}
	panicking := &panickingSubscriber{}
	eb.RegisterSubscriber(testEvtType, failing)
	eb.RegisterSubscriber(testEvtType, panicking)
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	assert.True(t, failing.closed)
	assert.True(t, panicking.closed)
	assert.Equal(t, 1, receive(t, subCh).Data)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 2))
	assert.Equal(t, 2, receive(t, subCh).Data)
}

func TestEventBusStopClosesSubscribers(t *testing.T) {
	eb := event.NewEventBus(prometheus.NewRegistry(), nil)
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(event.BlockProcessedEventType)
	eb.Stop()
	_, ok := <-sub1Ch
	assert.False(t, ok)
	_, ok = <-sub2Ch
	assert.False(t, ok)
	// reusable after stop
	_, sub3Ch := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 3))
	assert.Equal(t, 3, receive(t, sub3Ch).Data)
	eb.Stop()
}

func eventsPublished(t *testing.T, registry *prometheus.Registry) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == "stakeidx_events_published_total" {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatal("published counter not found")
	return 0
}

func TestEventBusLogsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(
		&buf,
		&slog.HandlerOptions{Level: slog.LevelDebug},
	))
	eb := event.NewEventBus(nil, logger)
	defer eb.Stop()
	eb.RegisterSubscriber(testEvtType, &failingSubscriber{})
	_, subCh := eb.Subscribe(testEvtType)
	for i := range event.EventQueueSize + 1 {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
	}
	assert.Len(t, subCh, event.EventQueueSize)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "event delivery error")
	assert.Contains(t, lines[1], "dropping event for slow subscriber")
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, `"component":"event"`), line)
		assert.Equal(t, 1, strings.Count(line, `"component"`), line)
	}
}
