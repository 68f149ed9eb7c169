package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/vignesh-goutham/artemis-capture/pkg/app"
	"github.com/vignesh-goutham/artemis-capture/pkg/capture"
	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
)

var handler app.ScheduledHandler

func init() {
	if err := logger.InitializeForLambda(); err != nil {
		panic(err)
	}

	rt, err := app.Bootstrap(context.Background(), "")
	if err != nil {
		logger.Logger.Fatalw("Failed to bootstrap", logger.FieldError, err)
	}
	handler = app.QueueCheckHandler(rt.QueueChecker(), capture.NewRunID)
}

func main() {
	lambda.Start(handler)
}
