package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/vignesh-goutham/artemis-capture/pkg/api"
	"github.com/vignesh-goutham/artemis-capture/pkg/app"
	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
)

var handler *api.Handler

func init() {
	if err := logger.InitializeForLambda(); err != nil {
		panic(err)
	}

	ctx := context.Background()
	rt, err := app.Bootstrap(ctx, "")
	if err != nil {
		logger.Logger.Fatalw("Failed to bootstrap", logger.FieldError, err)
	}
	handler, err = rt.APIHandler(ctx)
	if err != nil {
		logger.Logger.Fatalw("Failed to build API handler", logger.FieldError, err)
	}
}

func main() {
	lambda.Start(handler.Handle)
}
