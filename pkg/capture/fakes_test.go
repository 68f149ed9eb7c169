package capture

import (
	"context"
	"sort"
	"time"

	"github.com/vignesh-goutham/artemis-capture/pkg/dynamo"
	"github.com/vignesh-goutham/artemis-capture/pkg/launcher"
	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

var testNow = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

func fixedClock() Option {
	return WithClock(func() time.Time { return testNow })
}

func at(d time.Duration) int64 {
	return testNow.Add(d).Unix()
}

// memStore is an in-memory capture table with insert-if-absent semantics
type memStore struct {
	entries  map[string]types.QueueEntry
	liveness *types.Liveness

	putErrs      map[string]error
	listErr      error
	livenessErr  error
	markErrs     map[string]error
	livenessRead int
	puts         int
}

func newMemStore() *memStore {
	return &memStore{
		entries:  map[string]types.QueueEntry{},
		putErrs:  map[string]error{},
		markErrs: map[string]error{},
	}
}

func (m *memStore) PutQueueEntryIfAbsent(_ context.Context, entry types.QueueEntry) error {
	m.puts++
	if err := m.putErrs[entry.EventID]; err != nil {
		return err
	}
	if _, ok := m.entries[entry.EventID]; ok {
		return dynamo.ErrAlreadyQueued
	}
	m.entries[entry.EventID] = entry
	return nil
}

func (m *memStore) ListQueued(_ context.Context) ([]types.QueueEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []types.QueueEntry
	for _, e := range m.entries {
		if e.Status == types.StatusQueued {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}

func (m *memStore) MarkStarted(_ context.Context, eventID, startedAt string) error {
	if err := m.markErrs[eventID]; err != nil {
		return err
	}
	e, ok := m.entries[eventID]
	if !ok || e.Status != types.StatusQueued {
		return dynamo.ErrNotQueued
	}
	e.Status = types.StatusStarted
	e.StartedAt = startedAt
	m.entries[eventID] = e
	return nil
}

func (m *memStore) GetLiveness(_ context.Context) (*types.Liveness, error) {
	m.livenessRead++
	if m.livenessErr != nil {
		return nil, m.livenessErr
	}
	return m.liveness, nil
}

func (m *memStore) queue(id string, scheduledStart int64) {
	m.entries[id] = types.QueueEntry{
		Key:            types.QueueKey(id),
		EventID:        id,
		Status:         types.StatusQueued,
		ScheduledStart: scheduledStart,
		QueuedBy:       QueuedByAutoQueue,
	}
}

// pagedSource serves events per category and records the strike bounds it was asked for
type pagedSource struct {
	events map[string][]types.Event
	err    error
	froms  []int64
	tos    []int64
}

func (p *pagedSource) ListEvents(_ context.Context, category string, from, to int64) ([]types.Event, error) {
	p.froms = append(p.froms, from)
	p.tos = append(p.tos, to)
	if p.err != nil {
		return nil, p.err
	}
	return p.events[category], nil
}

type fakeTrigger struct {
	ack      launcher.Ack
	err      error
	payloads []launcher.Payload
}

func (f *fakeTrigger) Trigger(_ context.Context, payload launcher.Payload) (launcher.Ack, error) {
	f.payloads = append(f.payloads, payload)
	return f.ack, f.err
}

func accepted() *fakeTrigger {
	return &fakeTrigger{ack: launcher.Ack{StatusCode: 202, RequestID: "req-1"}}
}
