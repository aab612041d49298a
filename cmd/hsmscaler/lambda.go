package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/xd6wang/my-serverless-kms/internal/webhooks"
)

// lambdaHandler adapts the dispatcher to the EventBridge envelope. A returned
// error fails the invocation and lets the async invoke policy redeliver.
func lambdaHandler(d webhooks.Dispatcher) func(context.Context, events.CloudWatchEvent) error {
	return func(ctx context.Context, in events.CloudWatchEvent) error {
		ev, err := webhooks.FromCloudWatchEvent(in)
		if err != nil {
			return err
		}
		return d.Handle(ctx, ev)
	}
}

func runLambda(d webhooks.Dispatcher) {
	lambda.Start(lambdaHandler(d))
}
