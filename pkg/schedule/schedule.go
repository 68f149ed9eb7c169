// Package schedule starts the capture host when its cron schedule comes due.
//
// The job runs on a short fixed interval and asks whether a schedule fire
// happened within the last tolerance window. Starting an instance that is
// already running or pending is reported as such, not treated as an error.
package schedule

import (
	"context"
	"time"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
)

// Outcomes
const (
	ActionStarted        = "started"
	ActionAlreadyRunning = "already_running"
	ActionNotScheduled   = "not_scheduled"
	ActionMarketClosed   = "market_closed"
	ActionSkipped        = "skipped"
	ActionFailed         = "failed"
)

// parser accepts standard 5-field expressions and 6-field expressions with seconds
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// InstanceController reads and starts an instance
type InstanceController interface {
	State(ctx context.Context, instanceID string) (ec2types.InstanceStateName, error)
	Start(ctx context.Context, instanceID string) (ec2types.InstanceStateName, error)
}

// MarketCalendar reports whether the market trades on now's day
type MarketCalendar interface {
	IsMarketDay(now time.Time, loc *time.Location) (bool, error)
}

// Config describes one scheduled instance
type Config struct {
	InstanceID       string
	Expression       string
	Timezone         string
	Tolerance        time.Duration
	RequireMarketDay bool
}

// Result summarises one run
type Result struct {
	InstanceID string `json:"instance_id"`
	Action     string `json:"action"`
	Reason     string `json:"reason,omitempty"`
	ScheduleAt string `json:"scheduled_for,omitempty"`
	State      string `json:"state,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Failed reports whether the run should be surfaced as a failure
func (r *Result) Failed() bool {
	return r.Action == ActionFailed
}

// Starter starts one instance on a schedule
type Starter struct {
	cfg      Config
	schedule cron.Schedule
	loc      *time.Location
	compute  InstanceController
	calendar MarketCalendar
	now      func() time.Time
}

// NewStarter parses the schedule and returns a Starter. calendar may be nil
// when the config does not require a market day.
func NewStarter(cfg Config, compute InstanceController, calendar MarketCalendar) (*Starter, error) {
	if cfg.InstanceID == "" {
		return nil, errors.New("instance id is required")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schedule timezone %q", cfg.Timezone)
	}
	sched, err := parser.Parse(cfg.Expression)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid instance schedule %q", cfg.Expression)
	}
	if cfg.RequireMarketDay && calendar == nil {
		return nil, errors.New("market calendar is required when require_market_day is set")
	}
	return &Starter{
		cfg:      cfg,
		schedule: sched,
		loc:      loc,
		compute:  compute,
		calendar: calendar,
		now:      time.Now,
	}, nil
}

// Due returns the schedule fire inside (now-tolerance, now], if any
func (s *Starter) Due(now time.Time) (time.Time, bool) {
	local := now.In(s.loc)
	next := s.schedule.Next(local.Add(-s.cfg.Tolerance))
	if next.IsZero() || next.After(local) {
		return time.Time{}, false
	}
	return next, true
}

// Run checks the schedule and starts the instance when due
func (s *Starter) Run(ctx context.Context) *Result {
	now := s.now()
	result := &Result{InstanceID: s.cfg.InstanceID}
	log := logger.With(logger.FieldJob, "instance_start", logger.FieldInstance, s.cfg.InstanceID)

	fire, due := s.Due(now)
	if !due {
		result.Action = ActionNotScheduled
		result.Reason = "no schedule fire within tolerance"
		return result
	}
	result.ScheduleAt = fire.Format(time.RFC3339)

	if s.cfg.RequireMarketDay {
		open, err := s.calendar.IsMarketDay(now, s.loc)
		if err != nil {
			log.Errorw("Failed to read market calendar", logger.FieldError, err)
			result.Action = ActionFailed
			result.Error = err.Error()
			return result
		}
		if !open {
			log.Infow("Market closed today, not starting instance")
			result.Action = ActionMarketClosed
			result.Reason = "market is not open today"
			return result
		}
	}

	state, err := s.compute.State(ctx, s.cfg.InstanceID)
	if err != nil {
		log.Errorw("Failed to describe instance", logger.FieldError, err)
		result.Action = ActionFailed
		result.Error = err.Error()
		return result
	}
	result.State = string(state)

	switch state {
	case ec2types.InstanceStateNameRunning, ec2types.InstanceStateNamePending:
		result.Action = ActionAlreadyRunning
		return result
	case ec2types.InstanceStateNameStopped:
	default:
		result.Action = ActionSkipped
		result.Reason = "instance is " + string(state)
		return result
	}

	newState, err := s.compute.Start(ctx, s.cfg.InstanceID)
	if err != nil {
		log.Errorw("Failed to start instance", logger.FieldError, err)
		result.Action = ActionFailed
		result.Error = err.Error()
		return result
	}
	result.Action = ActionStarted
	result.State = string(newState)
	log.Infow("Started instance", "scheduled_for", result.ScheduleAt, logger.FieldStatus, newState)
	return result
}
