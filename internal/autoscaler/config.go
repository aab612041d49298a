package autoscaler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"gopkg.in/yaml.v3"
)

const (
	defaultMinNodes = 1
	defaultMaxNodes = 6

	// StackOutputKey is the Pulumi stack output holding the controller config.
	StackOutputKey = "hsmscale"
)

// Config is the static configuration of one controller deployment.
type Config struct {
	ClusterID         string   `yaml:"cluster_id" json:"clusterId"`
	AvailabilityZones []string `yaml:"availability_zones" json:"availabilityZones"`
	ProtectedNodeIDs  []string `yaml:"protected_node_ids" json:"protectedNodeIds"`

	// Scaling limits (Guardrails)
	MinNodes int `yaml:"min_nodes" json:"minNodes"`
	MaxNodes int `yaml:"max_nodes" json:"maxNodes"`

	// Trigger identities, matched against event resources.
	HighSchedulerARN string `yaml:"high_scheduler_arn" json:"highSchedulerArn"`
	LowSchedulerARN  string `yaml:"low_scheduler_arn" json:"lowSchedulerArn"`
	HighAlarmARN     string `yaml:"high_alarm_arn" json:"highAlarmArn"`
	LowAlarmARN      string `yaml:"low_alarm_arn" json:"lowAlarmArn"`

	// AuthToken protects the HTTP event routes in server mode. Empty disables auth.
	AuthToken string `yaml:"auth_token" json:"authToken"`

	DryRun bool `yaml:"dry_run" json:"dryRun"`
}

// DefaultConfig returns a Config with the default node bounds.
func DefaultConfig() Config {
	return Config{
		MinNodes: defaultMinNodes,
		MaxNodes: defaultMaxNodes,
	}
}

// ValidationError aggregates configuration problems.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

// Validate checks that the Config is usable.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.ClusterID) == "" {
		problems = append(problems, "clusterId is required")
	}
	if len(c.AvailabilityZones) == 0 {
		problems = append(problems, "at least one availability zone is required")
	}
	if c.MinNodes < 1 {
		problems = append(problems, "minNodes must be at least 1")
	}
	if c.MaxNodes < c.MinNodes {
		problems = append(problems, "maxNodes must be greater than or equal to minNodes")
	}

	seen := make(map[string]string, 4)
	for _, trig := range []struct {
		field, value string
		name         func(string) (string, error)
	}{
		{"highSchedulerArn", c.HighSchedulerARN, RuleName},
		{"lowSchedulerArn", c.LowSchedulerARN, RuleName},
		{"highAlarmArn", c.HighAlarmARN, AlarmName},
		{"lowAlarmArn", c.LowAlarmARN, AlarmName},
	} {
		if trig.value == "" {
			problems = append(problems, trig.field+" is required")
			continue
		}
		if other, dup := seen[trig.value]; dup {
			problems = append(problems, fmt.Sprintf("%s duplicates %s", trig.field, other))
		}
		seen[trig.value] = trig.field
		if _, err := trig.name(trig.value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", trig.field, err))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// RuleName extracts the EventBridge rule name from a rule ARN.
func RuleName(ruleARN string) (string, error) {
	name, err := resourceName(ruleARN, "events", "rule/")
	if err != nil {
		return "", err
	}
	// Rules on custom event buses are addressed as rule/<bus>/<name>.
	if strings.Contains(name, "/") {
		return "", fmt.Errorf("rule %q is on a custom event bus, which is not supported", name)
	}
	return name, nil
}

// AlarmName extracts the CloudWatch alarm name from an alarm ARN.
func AlarmName(alarmARN string) (string, error) {
	return resourceName(alarmARN, "cloudwatch", "alarm:")
}

func resourceName(value, service, prefix string) (string, error) {
	parsed, err := arn.Parse(value)
	if err != nil {
		return "", err
	}
	if parsed.Service != service {
		return "", fmt.Errorf("expected a %s ARN, got service %q", service, parsed.Service)
	}
	name, ok := strings.CutPrefix(parsed.Resource, prefix)
	if !ok || name == "" {
		return "", fmt.Errorf("resource %q does not start with %q", parsed.Resource, prefix)
	}
	return name, nil
}

// LoadFile overlays the YAML file at path onto c. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return c.decodeYAML(f)
}

func (c *Config) decodeYAML(r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Environment variables read by ApplyEnv.
const (
	EnvClusterID         = "HSM_CLUSTER_ID"
	EnvAvailabilityZones = "HSM_AVAILABILITY_ZONES"
	EnvProtectedNodeIDs  = "HSM_PROTECTED_NODE_IDS"
	EnvMinNodes          = "HSM_MIN_NODES"
	EnvMaxNodes          = "HSM_MAX_NODES"
	EnvHighSchedulerARN  = "HSM_HIGH_SCHEDULER_ARN"
	EnvLowSchedulerARN   = "HSM_LOW_SCHEDULER_ARN"
	EnvHighAlarmARN      = "HSM_HIGH_ALARM_ARN"
	EnvLowAlarmARN       = "HSM_LOW_ALARM_ARN"
	EnvAuthToken         = "HSM_SCALER_TOKEN"
	EnvDryRun            = "HSM_SCALER_DRY_RUN"
)

// ApplyEnv overlays values found through lookup (normally os.LookupEnv).
// List values are comma separated.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = splitList(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str(EnvClusterID, &c.ClusterID)
	list(EnvAvailabilityZones, &c.AvailabilityZones)
	list(EnvProtectedNodeIDs, &c.ProtectedNodeIDs)
	if err := num(EnvMinNodes, &c.MinNodes); err != nil {
		return err
	}
	if err := num(EnvMaxNodes, &c.MaxNodes); err != nil {
		return err
	}
	str(EnvHighSchedulerARN, &c.HighSchedulerARN)
	str(EnvLowSchedulerARN, &c.LowSchedulerARN)
	str(EnvHighAlarmARN, &c.HighAlarmARN)
	str(EnvLowAlarmARN, &c.LowAlarmARN)
	str(EnvAuthToken, &c.AuthToken)
	if v, ok := lookup(EnvDryRun); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDryRun, err)
		}
		c.DryRun = b
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ConfigLoader is responsible for loading the controller config from the
// Pulumi stack that provisions the cluster, rules and alarms.
type ConfigLoader struct {
	StackName string
	WorkDir   string
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader(stackName, workDir string) *ConfigLoader {
	return &ConfigLoader{
		StackName: stackName,
		WorkDir:   workDir,
	}
}

// Apply retrieves the stack outputs and overlays the "hsmscale" output onto cfg.
func (cl *ConfigLoader) Apply(ctx context.Context, cfg *Config) error {
	s, err := auto.UpsertStackLocalSource(ctx, cl.StackName, cl.WorkDir)
	if err != nil {
		return fmt.Errorf("failed to load stack: %w", err)
	}

	outputs, err := s.Outputs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stack outputs: %w", err)
	}

	val, ok := outputs[StackOutputKey]
	if !ok {
		return fmt.Errorf("stack output '%s' not found", StackOutputKey)
	}
	return overlayOutput(val.Value, cfg)
}

// overlayOutput round-trips an output value through JSON, since
// auto.OutputValue.Value is an untyped map.
func overlayOutput(value interface{}, cfg *Config) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s output: %w", StackOutputKey, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal %s output: %w", StackOutputKey, err)
	}
	return nil
}

// LoadOptions selects the config sources for LoadConfig.
type LoadOptions struct {
	File      string
	StackName string
	WorkDir   string
	Lookup    func(string) (string, bool)
}

// LoadConfig layers defaults, the YAML file, the Pulumi stack output and the
// environment, in that order, then validates the result.
func LoadConfig(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg := DefaultConfig()

	if opts.File != "" {
		if err := cfg.LoadFile(opts.File); err != nil {
			return nil, err
		}
	}
	if opts.StackName != "" {
		if err := NewConfigLoader(opts.StackName, opts.WorkDir).Apply(ctx, &cfg); err != nil {
			return nil, err
		}
	}
	if opts.Lookup != nil {
		if err := cfg.ApplyEnv(opts.Lookup); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
