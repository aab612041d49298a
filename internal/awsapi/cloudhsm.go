package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudhsmv2"
	"github.com/aws/aws-sdk-go-v2/service/cloudhsmv2/types"

	"github.com/xd6wang/my-serverless-kms/internal/autoscaler"
)

// HSMClient is the subset of *cloudhsmv2.Client used here.
type HSMClient interface {
	DescribeClusters(ctx context.Context, in *cloudhsmv2.DescribeClustersInput, optFns ...func(*cloudhsmv2.Options)) (*cloudhsmv2.DescribeClustersOutput, error)
	CreateHsm(ctx context.Context, in *cloudhsmv2.CreateHsmInput, optFns ...func(*cloudhsmv2.Options)) (*cloudhsmv2.CreateHsmOutput, error)
	DeleteHsm(ctx context.Context, in *cloudhsmv2.DeleteHsmInput, optFns ...func(*cloudhsmv2.Options)) (*cloudhsmv2.DeleteHsmOutput, error)
}

// HSMCluster implements autoscaler.ClusterAPI on CloudHSM v2.
type HSMCluster struct {
	client HSMClient
}

func NewHSMCluster(client HSMClient) *HSMCluster {
	return &HSMCluster{client: client}
}

// DescribeNodes lists the HSMs of one cluster.
func (c *HSMCluster) DescribeNodes(ctx context.Context, clusterID string) ([]autoscaler.Node, error) {
	out, err := c.client.DescribeClusters(ctx, &cloudhsmv2.DescribeClustersInput{
		Filters: map[string][]string{"clusterIds": {clusterID}},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Clusters) == 0 {
		return nil, fmt.Errorf("cluster %s not found", clusterID)
	}

	hsms := out.Clusters[0].Hsms
	nodes := make([]autoscaler.Node, 0, len(hsms))
	for _, h := range hsms {
		nodes = append(nodes, toNode(h))
	}
	return nodes, nil
}

// CreateNode requests one new HSM in zone.
func (c *HSMCluster) CreateNode(ctx context.Context, clusterID, zone string) (autoscaler.Node, error) {
	out, err := c.client.CreateHsm(ctx, &cloudhsmv2.CreateHsmInput{
		ClusterId:        aws.String(clusterID),
		AvailabilityZone: aws.String(zone),
	})
	if err != nil {
		return autoscaler.Node{}, err
	}
	if out.Hsm == nil {
		return autoscaler.Node{}, fmt.Errorf("create hsm in %s returned no hsm", zone)
	}
	return toNode(*out.Hsm), nil
}

// DeleteNode requests deletion of one HSM and returns its id.
func (c *HSMCluster) DeleteNode(ctx context.Context, clusterID, nodeID string) (string, error) {
	out, err := c.client.DeleteHsm(ctx, &cloudhsmv2.DeleteHsmInput{
		ClusterId: aws.String(clusterID),
		HsmId:     aws.String(nodeID),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.HsmId), nil
}

func toNode(h types.Hsm) autoscaler.Node {
	return autoscaler.Node{
		ID:               aws.ToString(h.HsmId),
		AvailabilityZone: aws.ToString(h.AvailabilityZone),
		State:            autoscaler.NodeState(h.State),
	}
}
