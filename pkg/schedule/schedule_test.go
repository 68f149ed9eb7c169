package schedule

import (
	"context"
	"testing"
	"time"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompute struct {
	state    ec2types.InstanceStateName
	stateErr error
	startErr error
	started  int
}

func (f *fakeCompute) State(context.Context, string) (ec2types.InstanceStateName, error) {
	return f.state, f.stateErr
}

func (f *fakeCompute) Start(context.Context, string) (ec2types.InstanceStateName, error) {
	f.started++
	if f.startErr != nil {
		return "", f.startErr
	}
	return ec2types.InstanceStateNamePending, nil
}

type fakeCalendar struct {
	open bool
	err  error
}

func (f fakeCalendar) IsMarketDay(time.Time, *time.Location) (bool, error) {
	return f.open, f.err
}

func newTestStarter(t *testing.T, cfg Config, compute InstanceController, cal MarketCalendar, now time.Time) *Starter {
	t.Helper()
	if cfg.InstanceID == "" {
		cfg.InstanceID = "i-0abc"
	}
	if cfg.Expression == "" {
		cfg.Expression = "0 9 * * MON-FRI"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/New_York"
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = 10 * time.Minute
	}
	s, err := NewStarter(cfg, compute, cal)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

// Monday 2026-03-02 09:04 in New York
var mondayMorning = time.Date(2026, 3, 2, 14, 4, 0, 0, time.UTC)

func TestDue(t *testing.T) {
	s := newTestStarter(t, Config{}, &fakeCompute{}, nil, mondayMorning)

	fire, ok := s.Due(mondayMorning)
	require.True(t, ok)
	assert.Equal(t, "2026-03-02T09:00:00-05:00", fire.Format(time.RFC3339))

	_, ok = s.Due(mondayMorning.Add(-5 * time.Minute))
	assert.False(t, ok, "before the fire")

	_, ok = s.Due(mondayMorning.Add(7 * time.Minute))
	assert.False(t, ok, "past tolerance")

	_, ok = s.Due(mondayMorning.Add(-48 * time.Hour))
	assert.False(t, ok, "saturday")
}

func TestRunStartsStoppedInstance(t *testing.T) {
	compute := &fakeCompute{state: ec2types.InstanceStateNameStopped}
	result := newTestStarter(t, Config{}, compute, nil, mondayMorning).Run(context.Background())

	assert.Equal(t, ActionStarted, result.Action)
	assert.Equal(t, "pending", result.State)
	assert.Equal(t, 1, compute.started)
	assert.False(t, result.Failed())
}

func TestRunStates(t *testing.T) {
	tests := []struct {
		state  ec2types.InstanceStateName
		action string
	}{
		{ec2types.InstanceStateNameRunning, ActionAlreadyRunning},
		{ec2types.InstanceStateNamePending, ActionAlreadyRunning},
		{ec2types.InstanceStateNameStopping, ActionSkipped},
		{ec2types.InstanceStateNameTerminated, ActionSkipped},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			compute := &fakeCompute{state: tt.state}
			result := newTestStarter(t, Config{}, compute, nil, mondayMorning).Run(context.Background())
			assert.Equal(t, tt.action, result.Action)
			assert.Zero(t, compute.started)
		})
	}
}

func TestRunNotScheduled(t *testing.T) {
	compute := &fakeCompute{state: ec2types.InstanceStateNameStopped}
	result := newTestStarter(t, Config{}, compute, nil, mondayMorning.Add(2*time.Hour)).Run(context.Background())

	assert.Equal(t, ActionNotScheduled, result.Action)
	assert.Zero(t, compute.started)
}

func TestRunMarketDay(t *testing.T) {
	t.Run("closed", func(t *testing.T) {
		compute := &fakeCompute{state: ec2types.InstanceStateNameStopped}
		result := newTestStarter(t, Config{RequireMarketDay: true}, compute, fakeCalendar{open: false}, mondayMorning).Run(context.Background())
		assert.Equal(t, ActionMarketClosed, result.Action)
		assert.Zero(t, compute.started)
	})

	t.Run("calendar error", func(t *testing.T) {
		compute := &fakeCompute{state: ec2types.InstanceStateNameStopped}
		result := newTestStarter(t, Config{RequireMarketDay: true}, compute, fakeCalendar{err: errors.New("503")}, mondayMorning).Run(context.Background())
		assert.True(t, result.Failed())
		assert.Zero(t, compute.started)
	})

	t.Run("open", func(t *testing.T) {
		compute := &fakeCompute{state: ec2types.InstanceStateNameStopped}
		result := newTestStarter(t, Config{RequireMarketDay: true}, compute, fakeCalendar{open: true}, mondayMorning).Run(context.Background())
		assert.Equal(t, ActionStarted, result.Action)
	})
}

func TestRunFailures(t *testing.T) {
	result := newTestStarter(t, Config{}, &fakeCompute{stateErr: errors.New("UnauthorizedOperation")}, nil, mondayMorning).Run(context.Background())
	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "UnauthorizedOperation")

	compute := &fakeCompute{state: ec2types.InstanceStateNameStopped, startErr: errors.New("InsufficientInstanceCapacity")}
	result = newTestStarter(t, Config{}, compute, nil, mondayMorning).Run(context.Background())
	assert.True(t, result.Failed())
	assert.Equal(t, 1, compute.started)
}

func TestNewStarterValidation(t *testing.T) {
	_, err := NewStarter(Config{Expression: "0 9 * * *", Timezone: "UTC"}, &fakeCompute{}, nil)
	assert.Error(t, err, "missing instance")

	_, err = NewStarter(Config{InstanceID: "i-1", Expression: "not a cron", Timezone: "UTC"}, &fakeCompute{}, nil)
	assert.Error(t, err)

	_, err = NewStarter(Config{InstanceID: "i-1", Expression: "0 9 * * *", Timezone: "Mars/Olympus"}, &fakeCompute{}, nil)
	assert.Error(t, err)

	_, err = NewStarter(Config{InstanceID: "i-1", Expression: "0 9 * * *", Timezone: "UTC", RequireMarketDay: true}, &fakeCompute{}, nil)
	assert.Error(t, err)
}
