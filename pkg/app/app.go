// Package app wires configuration and AWS clients into the jobs and handlers.
// The Lambda binaries and the operator CLI share it.
package app

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/cockroachdb/errors"

	"github.com/vignesh-goutham/artemis-capture/pkg/alpaca"
	"github.com/vignesh-goutham/artemis-capture/pkg/api"
	"github.com/vignesh-goutham/artemis-capture/pkg/awsconfig"
	"github.com/vignesh-goutham/artemis-capture/pkg/capture"
	"github.com/vignesh-goutham/artemis-capture/pkg/compute"
	"github.com/vignesh-goutham/artemis-capture/pkg/config"
	"github.com/vignesh-goutham/artemis-capture/pkg/dynamo"
	"github.com/vignesh-goutham/artemis-capture/pkg/export"
	"github.com/vignesh-goutham/artemis-capture/pkg/launcher"
	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
	"github.com/vignesh-goutham/artemis-capture/pkg/schedule"
	"github.com/vignesh-goutham/artemis-capture/pkg/secrets"
)

// Runtime holds the loaded configuration and AWS config for one process
type Runtime struct {
	Config *config.Config
	AWS    aws.Config
}

// Bootstrap loads configuration and AWS credentials. The logger is expected
// to be initialized already.
func Bootstrap(ctx context.Context, region string) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	awsCfg, err := awsconfig.Load(ctx, region)
	if err != nil {
		return nil, err
	}
	dynamo.Initialize(awsCfg)
	return &Runtime{Config: cfg, AWS: awsCfg}, nil
}

// Store returns the capture state store
func (r *Runtime) Store() *dynamo.Store {
	return dynamo.NewStore(dynamo.GetClient(), r.Config.CaptureTable)
}

// AutoQueuer builds the auto-queue job
func (r *Runtime) AutoQueuer() *capture.AutoQueuer {
	if len(r.Config.Categories) == 0 {
		logger.Warnw("No capture categories configured, auto-queue will discover nothing")
	}
	events := dynamo.NewEventSource(dynamo.GetClient(), r.Config.EventsTable)
	return capture.NewAutoQueuer(events, r.Store(), r.Config.Categories, r.Config.Windows())
}

// QueueChecker builds the queue-checker job
func (r *Runtime) QueueChecker() *capture.QueueChecker {
	store := r.Store()
	trigger := launcher.NewFromConfig(r.AWS, r.Config.WorkerFunction, r.Config.LaunchTimeout)
	logger.Infow("Queue checker configured", logger.FieldFunction, trigger.Function(), "table", store.Table())
	return capture.NewQueueChecker(store, store, trigger, r.Config.Windows())
}

// InitBroker initializes the Alpaca clients from Secrets Manager when a
// secret id is configured, else from the environment. It reports whether
// credentials were found.
func (r *Runtime) InitBroker(ctx context.Context) (bool, error) {
	creds := alpaca.CredentialsFromEnv()
	if r.Config.AlpacaSecretID != "" {
		if err := secrets.NewFromConfig(r.AWS).GetJSON(ctx, r.Config.AlpacaSecretID, &creds); err != nil {
			return false, err
		}
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		return false, nil
	}
	alpaca.Initialize(creds, r.Config.AlpacaPaper)
	return true, nil
}

// InstanceStarter builds the scheduled instance start job
func (r *Runtime) InstanceStarter(ctx context.Context) (*schedule.Starter, error) {
	if r.Config.InstanceSchedule == "" {
		return nil, errors.New("instance_schedule must be set")
	}

	var calendar schedule.MarketCalendar
	if r.Config.RequireMarketDay {
		ok, err := r.InitBroker(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New("require_market_day needs broker credentials")
		}
		calendar = alpaca.DefaultBroker()
	}

	return schedule.NewStarter(schedule.Config{
		InstanceID:       r.Config.InstanceID,
		Expression:       r.Config.InstanceSchedule,
		Timezone:         r.Config.ScheduleTimezone,
		Tolerance:        r.Config.ScheduleTolerance,
		RequireMarketDay: r.Config.RequireMarketDay,
	}, compute.NewFromConfig(r.AWS, r.Config.ComputeTimeout), calendar)
}

// APIHandler builds the dashboard API. Routes whose backend is not
// configured answer 503.
func (r *Runtime) APIHandler(ctx context.Context) (*api.Handler, error) {
	store := r.Store()
	deps := api.Deps{Settings: store, Queue: store}

	ok, err := r.InitBroker(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		deps.Trades = alpaca.DefaultBroker()
	} else {
		logger.Warnw("No broker credentials, trade routes disabled")
	}

	if r.Config.ExportBucket != "" {
		deps.Export = export.NewFromConfig(r.AWS, export.Options{
			Database: r.Config.ExportDatabase,
			Table:    r.Config.ExportTable,
			Bucket:   r.Config.ExportBucket,
			URLTTL:   r.Config.ExportURLTTL,
		})
	} else {
		logger.Warnw("No export bucket, export route disabled")
	}

	return api.NewHandler(deps, r.Config.Windows(), r.Config.CORSOrigin), nil
}

// Response wraps a job result in the status/body envelope the scheduled
// handlers return
func Response(statusCode int, v interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode response body")
	}
	return map[string]interface{}{
		"statusCode": statusCode,
		"body":       string(body),
	}, nil
}
