package autoscaler

import "context"

// AlarmState is the CloudWatch alarm state value.
type AlarmState string

const (
	StateOK               AlarmState = "OK"
	StateAlarm            AlarmState = "ALARM"
	StateInsufficientData AlarmState = "INSUFFICIENT_DATA"
)

// AlarmCategory tells which latency bound an alarm watches.
type AlarmCategory string

const (
	CategoryHigh AlarmCategory = "high" // latency above target, scale up
	CategoryLow  AlarmCategory = "low"  // latency well below target, scale down
)

// Opposite returns the other category.
func (c AlarmCategory) Opposite() AlarmCategory {
	if c == CategoryHigh {
		return CategoryLow
	}
	return CategoryHigh
}

// Transition is the edge classification of an alarm state change.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionOKToAlarm
	TransitionAlarmToOK
)

func (t Transition) String() string {
	switch t {
	case TransitionOKToAlarm:
		return "OK_TO_ALARM"
	case TransitionAlarmToOK:
		return "ALARM_TO_OK"
	default:
		return "NONE"
	}
}

// NodeState is the lifecycle state reported by CloudHSM for an HSM.
type NodeState string

const (
	NodeCreateInProgress NodeState = "CREATE_IN_PROGRESS"
	NodeActive           NodeState = "ACTIVE"
	NodeDegraded         NodeState = "DEGRADED"
	NodeDeleteInProgress NodeState = "DELETE_IN_PROGRESS"
	NodeDeleted          NodeState = "DELETED"
)

// Node is a per-invocation view of one HSM in the cluster.
type Node struct {
	ID               string
	AvailabilityZone string
	State            NodeState
}

// ClusterAPI is the node inventory and lifecycle surface of the HSM service.
type ClusterAPI interface {
	DescribeNodes(ctx context.Context, clusterID string) ([]Node, error)
	CreateNode(ctx context.Context, clusterID, zone string) (Node, error)
	DeleteNode(ctx context.Context, clusterID, nodeID string) (string, error)
}

// RuleAPI toggles periodic triggers. Both calls must be idempotent upstream.
type RuleAPI interface {
	EnableRule(ctx context.Context, name string) error
	DisableRule(ctx context.Context, name string) error
}

// AlarmAPI reads the live state of an alarm.
type AlarmAPI interface {
	AlarmState(ctx context.Context, name string) (AlarmState, error)
}
