package compute

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cockroachdb/errors"

	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
)

// API is the subset of the EC2 client used to manage the capture host
type API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
}

// ErrInstanceNotFound is returned when describe returns no matching instance
var ErrInstanceNotFound = errors.New("instance not found")

// Controller describes and starts a single instance. Every call is bounded by
// the controller's timeout and never retried.
type Controller struct {
	api     API
	timeout time.Duration
}

// NewController returns a Controller
func NewController(api API, timeout time.Duration) *Controller {
	return &Controller{api: api, timeout: timeout}
}

// NewFromConfig builds a Controller on an EC2 client from cfg
func NewFromConfig(cfg aws.Config, timeout time.Duration) *Controller {
	return NewController(ec2.NewFromConfig(cfg), timeout)
}

func (c *Controller) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// State returns the instance's current state name
func (c *Controller) State(ctx context.Context, instanceID string) (ec2types.InstanceStateName, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	out, err := c.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to describe instance %s", instanceID)
	}
	for _, reservation := range out.Reservations {
		for _, instance := range reservation.Instances {
			if aws.ToString(instance.InstanceId) == instanceID && instance.State != nil {
				return instance.State.Name, nil
			}
		}
	}
	return "", errors.Wrapf(ErrInstanceNotFound, "instance %s", instanceID)
}

// Start requests the instance start and returns the state EC2 reported
// afterwards. Starting an instance that is already running is not an error.
func (c *Controller) Start(ctx context.Context, instanceID string) (ec2types.InstanceStateName, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	out, err := c.api.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to start instance %s", instanceID)
	}
	for _, change := range out.StartingInstances {
		if aws.ToString(change.InstanceId) != instanceID || change.CurrentState == nil {
			continue
		}
		var previous ec2types.InstanceStateName
		if change.PreviousState != nil {
			previous = change.PreviousState.Name
		}
		logger.Infow("Instance start requested",
			logger.FieldInstance, instanceID,
			"previous_state", previous,
			"current_state", change.CurrentState.Name)
		return change.CurrentState.Name, nil
	}
	return ec2types.InstanceStateNamePending, nil
}
