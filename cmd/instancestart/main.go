package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/vignesh-goutham/artemis-capture/pkg/app"
	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
)

var handler app.ScheduledHandler

func init() {
	if err := logger.InitializeForLambda(); err != nil {
		panic(err)
	}

	ctx := context.Background()
	rt, err := app.Bootstrap(ctx, "")
	if err != nil {
		logger.Logger.Fatalw("Failed to bootstrap", logger.FieldError, err)
	}
	starter, err := rt.InstanceStarter(ctx)
	if err != nil {
		logger.Logger.Fatalw("Failed to configure instance schedule", logger.FieldError, err)
	}
	handler = app.InstanceStartHandler(starter)
}

func main() {
	lambda.Start(handler)
}
