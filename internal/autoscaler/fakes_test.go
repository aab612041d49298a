package autoscaler

import (
	"context"
	"fmt"
	"sync"
)

const (
	testHighTick  = "arn:aws:events:us-east-1:000000000000:rule/mykms-high-scheduler"
	testLowTick   = "arn:aws:events:us-east-1:000000000000:rule/mykms-low-scheduler"
	testHighAlarm = "arn:aws:cloudwatch:us-east-1:000000000000:alarm:mykms-response-high-sign"
	testLowAlarm  = "arn:aws:cloudwatch:us-east-1:000000000000:alarm:mykms-response-low-sign"

	testHighRule      = "mykms-high-scheduler"
	testLowRule       = "mykms-low-scheduler"
	testHighAlarmName = "mykms-response-high-sign"
	testLowAlarmName  = "mykms-response-low-sign"
)

func testConfig() *Config {
	return &Config{
		ClusterID:         "cluster-000000000000",
		AvailabilityZones: []string{"us-east-1a", "us-east-1b"},
		ProtectedNodeIDs:  []string{"hsm-protected"},
		MinNodes:          1,
		MaxNodes:          6,
		HighSchedulerARN:  testHighTick,
		LowSchedulerARN:   testLowTick,
		HighAlarmARN:      testHighAlarm,
		LowAlarmARN:       testLowAlarm,
	}
}

// activeNodes returns n ACTIVE nodes; the first one is the protected node.
func activeNodes(n int) []Node {
	nodes := make([]Node, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("hsm-%d", i)
		if i == 0 {
			id = "hsm-protected"
		}
		nodes = append(nodes, Node{ID: id, AvailabilityZone: "us-east-1a", State: NodeActive})
	}
	return nodes
}

type fakeCluster struct {
	mu          sync.Mutex
	nodes       []Node
	describeErr error
	createErr   error
	deleteErr   error

	describes int
	created   []string // zones
	deleted   []string // node ids
}

func (f *fakeCluster) DescribeNodes(_ context.Context, _ string) ([]Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describes++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return append([]Node(nil), f.nodes...), nil
}

func (f *fakeCluster) CreateNode(_ context.Context, _ string, zone string) (Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return Node{}, f.createErr
	}
	f.created = append(f.created, zone)
	node := Node{ID: fmt.Sprintf("hsm-new-%d", len(f.created)), AvailabilityZone: zone, State: NodeCreateInProgress}
	f.nodes = append(f.nodes, node)
	return node, nil
}

func (f *fakeCluster) DeleteNode(_ context.Context, _ string, nodeID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return "", f.deleteErr
	}
	f.deleted = append(f.deleted, nodeID)
	for i := range f.nodes {
		if f.nodes[i].ID == nodeID {
			f.nodes[i].State = NodeDeleteInProgress
		}
	}
	return nodeID, nil
}

func (f *fakeCluster) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created) + len(f.deleted)
}

type ruleCall struct {
	Op   string
	Name string
}

type fakeRules struct {
	mu      sync.Mutex
	enabled map[string]bool
	calls   []ruleCall
	failOn  string // op:name that returns an error
}

func newFakeRules() *fakeRules {
	return &fakeRules{enabled: make(map[string]bool)}
}

func (f *fakeRules) EnableRule(_ context.Context, name string) error {
	return f.toggle("enable", name, true)
}

func (f *fakeRules) DisableRule(_ context.Context, name string) error {
	return f.toggle("disable", name, false)
}

func (f *fakeRules) toggle(op, name string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ruleCall{Op: op, Name: name})
	if f.failOn == op+":"+name {
		return fmt.Errorf("ThrottlingException: rate exceeded")
	}
	f.enabled[name] = on
	return nil
}

type fakeAlarms struct {
	states map[string]AlarmState
	err    error
	calls  int
}

func (f *fakeAlarms) AlarmState(_ context.Context, name string) (AlarmState, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	state, ok := f.states[name]
	if !ok {
		return "", fmt.Errorf("alarm %s not found", name)
	}
	return state, nil
}
