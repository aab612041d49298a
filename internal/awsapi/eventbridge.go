package awsapi

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
)

// RuleClient is the subset of *eventbridge.Client used here.
type RuleClient interface {
	EnableRule(ctx context.Context, in *eventbridge.EnableRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.EnableRuleOutput, error)
	DisableRule(ctx context.Context, in *eventbridge.DisableRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.DisableRuleOutput, error)
}

// Rules implements autoscaler.RuleAPI on EventBridge rules of the default bus.
type Rules struct {
	client RuleClient
}

func NewRules(client RuleClient) *Rules {
	return &Rules{client: client}
}

func (r *Rules) EnableRule(ctx context.Context, name string) error {
	_, err := r.client.EnableRule(ctx, &eventbridge.EnableRuleInput{Name: aws.String(name)})
	return err
}

func (r *Rules) DisableRule(ctx context.Context, name string) error {
	_, err := r.client.DisableRule(ctx, &eventbridge.DisableRuleInput{Name: aws.String(name)})
	return err
}
