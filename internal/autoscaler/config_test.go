package autoscaler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing cluster id",
			mutate:  func(c *Config) { c.ClusterID = "" },
			wantErr: true,
		},
		{
			name:    "no availability zones",
			mutate:  func(c *Config) { c.AvailabilityZones = nil },
			wantErr: true,
		},
		{
			name:    "min less than one",
			mutate:  func(c *Config) { c.MinNodes = 0 },
			wantErr: true,
		},
		{
			name:    "max less than min",
			mutate:  func(c *Config) { c.MinNodes, c.MaxNodes = 4, 3 },
			wantErr: true,
		},
		{
			name:    "max equal to min",
			mutate:  func(c *Config) { c.MinNodes, c.MaxNodes = 2, 2 },
			wantErr: false,
		},
		{
			name:    "missing trigger",
			mutate:  func(c *Config) { c.LowSchedulerARN = "" },
			wantErr: true,
		},
		{
			name:    "duplicate trigger",
			mutate:  func(c *Config) { c.LowSchedulerARN = c.HighSchedulerARN },
			wantErr: true,
		},
		{
			name:    "alarm arn in rule slot",
			mutate:  func(c *Config) { c.HighSchedulerARN = "arn:aws:cloudwatch:us-east-1:000000000000:alarm:other" },
			wantErr: true,
		},
		{
			name:    "not an arn",
			mutate:  func(c *Config) { c.HighAlarmARN = "mykms-response-high-sign" },
			wantErr: true,
		},
		{
			name:    "custom event bus rule",
			mutate:  func(c *Config) { c.LowSchedulerARN = "arn:aws:events:us-east-1:000000000000:rule/my-bus/low" },
			wantErr: true,
		},
		{
			name:    "alarm name with slash",
			mutate:  func(c *Config) { c.HighAlarmARN = "arn:aws:cloudwatch:us-east-1:000000000000:alarm:TargetTracking-table/kms-AlarmHigh-1a2b" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAggregatesProblems(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	// cluster id, zones, min, and the four triggers
	if len(verr.Problems) != 7 {
		t.Errorf("expected 7 problems, got %d: %v", len(verr.Problems), verr.Problems)
	}
}

func TestRuleAndAlarmNames(t *testing.T) {
	rule, err := RuleName(testHighTick)
	if err != nil || rule != testHighRule {
		t.Errorf("RuleName() = %q, %v; want %q", rule, err, testHighRule)
	}
	alarm, err := AlarmName(testLowAlarm)
	if err != nil || alarm != testLowAlarmName {
		t.Errorf("AlarmName() = %q, %v; want %q", alarm, err, testLowAlarmName)
	}
	if _, err := AlarmName(testLowTick); err == nil {
		t.Error("expected error for a rule ARN passed as alarm")
	}

	// Target-tracking alarms carry a slash in their generated names.
	tracking := "arn:aws:cloudwatch:us-east-1:000000000000:alarm:TargetTracking-table/kms-AlarmHigh-1a2b"
	alarm, err = AlarmName(tracking)
	if err != nil || alarm != "TargetTracking-table/kms-AlarmHigh-1a2b" {
		t.Errorf("AlarmName(%q) = %q, %v", tracking, alarm, err)
	}
	if _, err := RuleName("arn:aws:events:us-east-1:000000000000:rule/custom-bus/mykms-high"); err == nil {
		t.Error("expected error for a rule on a custom event bus")
	}
}

func TestDecodeYAMLOverlaysDefaults(t *testing.T) {
	doc := `cluster_id: cluster-123
availability_zones: [us-east-1a, us-east-1c]
protected_node_ids: [hsm-abc]
max_nodes: 4
high_scheduler_arn: arn:aws:events:us-east-1:000000000000:rule/high
low_scheduler_arn: arn:aws:events:us-east-1:000000000000:rule/low
high_alarm_arn: arn:aws:cloudwatch:us-east-1:000000000000:alarm:high
low_alarm_arn: arn:aws:cloudwatch:us-east-1:000000000000:alarm:low
`
	cfg := DefaultConfig()
	if err := cfg.decodeYAML(strings.NewReader(doc)); err != nil {
		t.Fatalf("decodeYAML returned error: %v", err)
	}
	if cfg.MinNodes != defaultMinNodes {
		t.Errorf("expected default min %d, got %d", defaultMinNodes, cfg.MinNodes)
	}
	if cfg.MaxNodes != 4 {
		t.Errorf("expected max 4, got %d", cfg.MaxNodes)
	}
	if len(cfg.AvailabilityZones) != 2 || cfg.ProtectedNodeIDs[0] != "hsm-abc" {
		t.Errorf("unexpected lists: %v %v", cfg.AvailabilityZones, cfg.ProtectedNodeIDs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestDecodeYAMLRejectsUnknownKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.decodeYAML(strings.NewReader("cluster_idd: typo\n")); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvClusterID:         "cluster-env",
		EnvAvailabilityZones: "us-east-1a, us-east-1b,",
		EnvProtectedNodeIDs:  "hsm-1,hsm-2",
		EnvMinNodes:          "2",
		EnvMaxNodes:          "5",
		EnvDryRun:            "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := testConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv returned error: %v", err)
	}
	if cfg.ClusterID != "cluster-env" || cfg.MinNodes != 2 || cfg.MaxNodes != 5 || !cfg.DryRun {
		t.Errorf("env not applied: %+v", cfg)
	}
	if len(cfg.AvailabilityZones) != 2 || len(cfg.ProtectedNodeIDs) != 2 {
		t.Errorf("unexpected lists: %v %v", cfg.AvailabilityZones, cfg.ProtectedNodeIDs)
	}
	// Untouched keys keep their previous value.
	if cfg.HighAlarmARN != testHighAlarm {
		t.Errorf("high alarm overwritten: %s", cfg.HighAlarmARN)
	}

	env[EnvMaxNodes] = "six"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Error("expected error for non-numeric max")
	}
}

func TestOverlayOutput(t *testing.T) {
	// Stack outputs arrive as untyped maps with float64 numbers.
	value := map[string]interface{}{
		"clusterId":         "cluster-stack",
		"availabilityZones": []interface{}{"us-east-1a"},
		"maxNodes":          float64(3),
	}

	cfg := testConfig()
	if err := overlayOutput(value, cfg); err != nil {
		t.Fatalf("overlayOutput returned error: %v", err)
	}
	if cfg.ClusterID != "cluster-stack" || cfg.MaxNodes != 3 || len(cfg.AvailabilityZones) != 1 {
		t.Errorf("stack output not applied: %+v", cfg)
	}
	if cfg.LowSchedulerARN != testLowTick {
		t.Errorf("low scheduler overwritten: %s", cfg.LowSchedulerARN)
	}
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `cluster_id: cluster-file
availability_zones: [us-east-1a]
high_scheduler_arn: arn:aws:events:us-east-1:000000000000:rule/high
low_scheduler_arn: arn:aws:events:us-east-1:000000000000:rule/low
high_alarm_arn: arn:aws:cloudwatch:us-east-1:000000000000:alarm:high
low_alarm_arn: arn:aws:cloudwatch:us-east-1:000000000000:alarm:low
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	lookup := func(k string) (string, bool) {
		if k == EnvClusterID {
			return "cluster-env", true
		}
		return "", false
	}

	cfg, err := LoadConfig(context.Background(), LoadOptions{File: path, Lookup: lookup})
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ClusterID != "cluster-env" {
		t.Errorf("expected env to override file, got %s", cfg.ClusterID)
	}
	if cfg.MaxNodes != defaultMaxNodes {
		t.Errorf("expected default max %d, got %d", defaultMaxNodes, cfg.MaxNodes)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := LoadConfig(context.Background(), LoadOptions{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}
