package capture

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/vignesh-goutham/artemis-capture/pkg/dynamo"
	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
	"github.com/vignesh-goutham/artemis-capture/pkg/timewindow"
	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

// QueuedByAutoQueue is the provenance written on entries this job creates
const QueuedByAutoQueue = "auto_queue"

// EventLister reads candidate events for one category
type EventLister interface {
	ListEvents(ctx context.Context, category string, from, to int64) ([]types.Event, error)
}

// QueueWriter inserts queue entries with insert-if-absent semantics
type QueueWriter interface {
	PutQueueEntryIfAbsent(ctx context.Context, entry types.QueueEntry) error
}

// ItemError records one event that could not be processed
type ItemError struct {
	EventID string `json:"event_id"`
	Error   string `json:"error"`
}

// AutoQueueResult summarises one auto-queue run
type AutoQueueResult struct {
	RunID         string      `json:"run_id"`
	WindowStart   string      `json:"window_start"`
	WindowEnd     string      `json:"window_end"`
	Discovered    int         `json:"discovered"`
	Queued        int         `json:"queued"`
	AlreadyQueued int         `json:"already_queued"`
	QueuedIDs     []string    `json:"queued_ids"`
	Errors        []ItemError `json:"errors"`
}

// AutoQueuer discovers upcoming events and commits them to the capture queue
type AutoQueuer struct {
	events     EventLister
	queue      QueueWriter
	categories []string
	windows    timewindow.Windows
	clock      Clock
}

// NewAutoQueuer returns an AutoQueuer scanning the given categories
func NewAutoQueuer(events EventLister, queue QueueWriter, categories []string, windows timewindow.Windows, opts ...Option) *AutoQueuer {
	o := applyOptions(opts)
	return &AutoQueuer{
		events:     events,
		queue:      queue,
		categories: categories,
		windows:    windows,
		clock:      o.clock,
	}
}

// Run scans every category once. Failing to read the event source fails the
// run; failing to write one entry is recorded and the run continues.
func (a *AutoQueuer) Run(ctx context.Context, runID string) (*AutoQueueResult, error) {
	snap := a.windows.At(a.clock())
	lo, hi := snap.DiscoveryBounds()
	strikeFrom, strikeTo := snap.StrikeBounds()
	log := logger.With(logger.FieldJob, "auto_queue", logger.FieldRunID, runID)

	result := &AutoQueueResult{
		RunID:       runID,
		WindowStart: time.Unix(lo, 0).UTC().Format(time.RFC3339),
		WindowEnd:   time.Unix(hi, 0).UTC().Format(time.RFC3339),
		QueuedIDs:   []string{},
		Errors:      []ItemError{},
	}
	queuedAt := snap.Now().UTC().Format(time.RFC3339)

	seen := make(map[string]bool)
	for _, category := range a.categories {
		events, err := a.events.ListEvents(ctx, category, strikeFrom, strikeTo)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list events for category %s", category)
		}
		log.Infow("Fetched candidate events", logger.FieldCategory, category, logger.FieldCount, len(events))

		for _, event := range events {
			if event.ID == "" {
				result.Errors = append(result.Errors, ItemError{Error: "event has no id"})
				continue
			}
			if seen[event.ID] {
				continue
			}
			start := snap.EffectiveStart(event)
			if !snap.InDiscoveryWindow(start) {
				continue
			}
			seen[event.ID] = true
			result.Discovered++

			entry := types.QueueEntry{
				EventID:        event.ID,
				Category:       event.Category,
				Title:          event.Title,
				Status:         types.StatusQueued,
				ScheduledStart: start,
				QueuedBy:       QueuedByAutoQueue,
				QueuedAt:       queuedAt,
				RunID:          runID,
			}
			if entry.Category == "" {
				entry.Category = category
			}

			err := a.queue.PutQueueEntryIfAbsent(ctx, entry)
			switch {
			case errors.Is(err, dynamo.ErrAlreadyQueued):
				result.AlreadyQueued++
			case err != nil:
				log.Errorw("Failed to queue event", logger.FieldEventID, event.ID, logger.FieldError, err)
				result.Errors = append(result.Errors, ItemError{EventID: event.ID, Error: err.Error()})
			default:
				log.Infow("Queued event", logger.FieldEventID, event.ID, "scheduled_start", start)
				result.Queued++
				result.QueuedIDs = append(result.QueuedIDs, event.ID)
			}
		}
	}

	log.Infow("Auto-queue complete",
		"discovered", result.Discovered,
		"queued", result.Queued,
		"already_queued", result.AlreadyQueued,
		"errors", len(result.Errors))
	return result, nil
}
