// Package awsapi adapts the AWS SDK v2 clients for CloudHSM, CloudWatch and
// EventBridge to the ports the autoscaler consumes.
package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudhsmv2"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
)

// Clients bundles the three service adapters built from one SDK config.
type Clients struct {
	Cluster *HSMCluster
	Alarms  *Alarms
	Rules   *Rules
}

// New loads the default SDK config (environment, shared config, IMDS or the
// Lambda execution role) and builds the adapters. An empty region keeps the
// SDK's own resolution.
func New(ctx context.Context, region string) (*Clients, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return &Clients{
		Cluster: NewHSMCluster(cloudhsmv2.NewFromConfig(sdkConfig)),
		Alarms:  NewAlarms(cloudwatch.NewFromConfig(sdkConfig)),
		Rules:   NewRules(eventbridge.NewFromConfig(sdkConfig)),
	}, nil
}
