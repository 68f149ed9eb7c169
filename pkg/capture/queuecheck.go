package capture

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/vignesh-goutham/artemis-capture/pkg/dynamo"
	"github.com/vignesh-goutham/artemis-capture/pkg/launcher"
	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
	"github.com/vignesh-goutham/artemis-capture/pkg/timewindow"
	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

// Queue checker outcomes
const (
	ActionNothingToDo    = "nothing_to_do"
	ActionNotDue         = "not_due"
	ActionAlreadyRunning = "already_running"
	ActionLaunched       = "launched"
	ActionLaunchFailed   = "launch_failed"
)

// QueueReader lists queued entries and moves them to started
type QueueReader interface {
	ListQueued(ctx context.Context) ([]types.QueueEntry, error)
	MarkStarted(ctx context.Context, eventID, startedAt string) error
}

// LivenessReader reads the capture worker's heartbeat row
type LivenessReader interface {
	GetLiveness(ctx context.Context) (*types.Liveness, error)
}

// Trigger sends a one-way launch request to the capture worker
type Trigger interface {
	Trigger(ctx context.Context, payload launcher.Payload) (launcher.Ack, error)
}

// WorkerState is what the checker saw in the liveness row
type WorkerState struct {
	Found         bool     `json:"found"`
	Status        string   `json:"status,omitempty"`
	LastHeartbeat string   `json:"last_heartbeat,omitempty"`
	AgeSeconds    *float64 `json:"heartbeat_age_seconds,omitempty"`
	Live          bool     `json:"live"`
	ReadError     string   `json:"read_error,omitempty"`
}

// LaunchOutcome is the launcher's acknowledgment, or why there was none
type LaunchOutcome struct {
	StatusCode int32  `json:"status_code,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Accepted   bool   `json:"accepted"`
	Error      string `json:"error,omitempty"`
}

// QueueCheckResult summarises one checker run
type QueueCheckResult struct {
	RunID      string         `json:"run_id"`
	Action     string         `json:"action"`
	Reason     string         `json:"reason"`
	Pending    int            `json:"pending"`
	DueSoon    []string       `json:"due_soon"`
	Stale      []string       `json:"stale"`
	NextStart  string         `json:"next_start,omitempty"`
	Worker     *WorkerState   `json:"worker,omitempty"`
	Launch     *LaunchOutcome `json:"launch,omitempty"`
	Started    []string       `json:"started,omitempty"`
	MarkErrors []ItemError    `json:"mark_errors,omitempty"`
}

// Failed reports whether the run should be surfaced as a failure
func (r *QueueCheckResult) Failed() bool {
	return r.Action == ActionLaunchFailed
}

// QueueChecker launches the capture worker when queued work is due
type QueueChecker struct {
	queue    QueueReader
	liveness LivenessReader
	trigger  Trigger
	windows  timewindow.Windows
	clock    Clock
}

// NewQueueChecker returns a QueueChecker
func NewQueueChecker(queue QueueReader, liveness LivenessReader, trigger Trigger, windows timewindow.Windows, opts ...Option) *QueueChecker {
	o := applyOptions(opts)
	return &QueueChecker{
		queue:    queue,
		liveness: liveness,
		trigger:  trigger,
		windows:  windows,
		clock:    o.clock,
	}
}

// Run performs one check. It never returns an error: read failures are
// treated as "no pending work" and launch failures are reported in the
// result.
func (q *QueueChecker) Run(ctx context.Context, runID string) *QueueCheckResult {
	snap := q.windows.At(q.clock())
	log := logger.With(logger.FieldJob, "queue_checker", logger.FieldRunID, runID)
	result := &QueueCheckResult{RunID: runID, DueSoon: []string{}, Stale: []string{}}

	pending, err := q.queue.ListQueued(ctx)
	if err != nil {
		log.Warnw("Failed to read queue, treating as empty", logger.FieldError, err)
		result.Action = ActionNothingToDo
		result.Reason = "queue read failed: " + err.Error()
		return result
	}
	result.Pending = len(pending)
	if len(pending) == 0 {
		result.Action = ActionNothingToDo
		result.Reason = "no queued entries"
		return result
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].ScheduledStart < pending[j].ScheduledStart
	})

	// Stale entries are reported only: they never trigger a launch, ride in
	// the payload or move to started.
	var due []types.QueueEntry
	var next *types.QueueEntry
	for i, entry := range pending {
		if snap.IsStale(entry.ScheduledStart) {
			log.Warnw("Stale queue entry", logger.FieldEventID, entry.EventID,
				"scheduled_start", entry.ScheduledStart,
				"overdue_seconds", snap.Unix()-entry.ScheduledStart)
			result.Stale = append(result.Stale, entry.EventID)
			continue
		}
		if next == nil {
			next = &pending[i]
		}
		if snap.IsDueSoon(entry.ScheduledStart) {
			due = append(due, entry)
			result.DueSoon = append(result.DueSoon, entry.EventID)
		}
	}

	if len(due) == 0 {
		result.Action = ActionNotDue
		result.Reason = "no queued entries due soon"
		if next == nil {
			result.Reason = "only stale entries queued"
		} else {
			result.NextStart = time.Unix(next.ScheduledStart, 0).UTC().Format(time.RFC3339)
		}
		log.Infow("Nothing due soon", "pending", len(pending), "stale", len(result.Stale), "next_start", result.NextStart)
		return result
	}

	result.Worker = q.readWorker(ctx, snap, log)
	if result.Worker.Live {
		result.Action = ActionAlreadyRunning
		result.Reason = "worker heartbeat is fresh"
		log.Infow("Worker already running", "due_soon", len(due))
		return result
	}

	ack, err := q.trigger.Trigger(ctx, launcher.Payload{
		Source:    "queue_checker",
		RunID:     runID,
		EventIDs:  result.DueSoon,
		Triggered: snap.Now().UTC().Format(time.RFC3339),
	})
	result.Launch = &LaunchOutcome{StatusCode: ack.StatusCode, RequestID: ack.RequestID, Accepted: err == nil && ack.Accepted()}
	if err != nil {
		result.Action = ActionLaunchFailed
		result.Reason = "launch trigger failed"
		result.Launch.Error = err.Error()
		log.Errorw("Failed to trigger capture worker", logger.FieldError, err)
		return result
	}

	result.Action = ActionLaunched
	result.Reason = "worker not live"
	log.Infow("Triggered capture worker", "status_code", ack.StatusCode, "due_soon", len(due))

	startedAt := snap.Now().UTC().Format(time.RFC3339)
	for _, entry := range due {
		err := q.queue.MarkStarted(ctx, entry.EventID, startedAt)
		switch {
		case errors.Is(err, dynamo.ErrNotQueued):
			log.Infow("Entry already moved past queued", logger.FieldEventID, entry.EventID)
		case err != nil:
			log.Errorw("Failed to mark entry started", logger.FieldEventID, entry.EventID, logger.FieldError, err)
			result.MarkErrors = append(result.MarkErrors, ItemError{EventID: entry.EventID, Error: err.Error()})
		default:
			result.Started = append(result.Started, entry.EventID)
		}
	}
	return result
}

// readWorker classifies the liveness row. A read error counts as not live so
// due work still gets a launch.
func (q *QueueChecker) readWorker(ctx context.Context, snap timewindow.Snapshot, log *zap.SugaredLogger) *WorkerState {
	rec, err := q.liveness.GetLiveness(ctx)
	if err != nil {
		log.Warnw("Failed to read worker liveness, assuming not live", logger.FieldError, err)
		return &WorkerState{ReadError: err.Error()}
	}
	if rec == nil {
		return &WorkerState{}
	}

	state := &WorkerState{
		Found:         true,
		Status:        rec.Status,
		LastHeartbeat: rec.LastHeartbeat,
		Live:          snap.IsLive(rec),
	}
	if age, ok := snap.HeartbeatAge(rec); ok {
		secs := age.Seconds()
		state.AgeSeconds = &secs
	}
	return state
}
