package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"github.com/xd6wang/my-serverless-kms/internal/autoscaler"
)

// AlarmClient is the subset of *cloudwatch.Client used here.
type AlarmClient interface {
	DescribeAlarms(ctx context.Context, in *cloudwatch.DescribeAlarmsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error)
}

// Alarms implements autoscaler.AlarmAPI on CloudWatch metric alarms.
type Alarms struct {
	client AlarmClient
}

func NewAlarms(client AlarmClient) *Alarms {
	return &Alarms{client: client}
}

// AlarmState returns the live state of the named metric alarm.
func (a *Alarms) AlarmState(ctx context.Context, name string) (autoscaler.AlarmState, error) {
	out, err := a.client.DescribeAlarms(ctx, &cloudwatch.DescribeAlarmsInput{
		AlarmNames: []string{name},
	})
	if err != nil {
		return "", err
	}
	if len(out.MetricAlarms) == 0 {
		return "", fmt.Errorf("alarm %s not found", name)
	}
	return autoscaler.AlarmState(out.MetricAlarms[0].StateValue), nil
}
