package autoscaler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xd6wang/my-serverless-kms/internal/webhooks"
)

type triggerKind int

const (
	kindTick triggerKind = iota
	kindAlarm
)

type trigger struct {
	kind     triggerKind
	category AlarmCategory
}

func (t trigger) label() string {
	if t.kind == kindTick {
		return string(t.category) + "_tick"
	}
	return string(t.category) + "_alarm"
}

// Dispatch outcomes, used as the metrics "outcome" label.
const (
	outcomeScaledUp       = "scaled_up"
	outcomeScaledDown     = "scaled_down"
	outcomeBoundReached   = "bound_reached"
	outcomeNoop           = "noop"
	outcomeStaleTick      = "stale_tick"
	outcomeRulesSwitched  = "rules_switched"
	outcomeRuleDisabled   = "rule_disabled"
	outcomeIgnoredChange  = "ignored_change"
	outcomeUnknownTrigger = "unknown_trigger"
	outcomeDryRun         = "dry_run"
	outcomeError          = "error"
)

// mutating reports whether outcome issued a cluster or rule mutation.
func mutating(outcome string) bool {
	switch outcome {
	case outcomeScaledUp, outcomeScaledDown, outcomeBoundReached, outcomeRulesSwitched, outcomeRuleDisabled:
		return true
	}
	return false
}

// Engine routes one event to the tick or alarm-change handler. It keeps no
// state between events and is safe for concurrent use: every decision is
// re-derived from live cluster, alarm and rule state.
type Engine struct {
	Capacity *CapacityManager
	Rules    *RuleController
	Alarms   *AlarmQuery
	Metrics  *Metrics

	triggers   map[string]trigger
	ruleNames  map[AlarmCategory]string
	alarmNames map[AlarmCategory]string
	dryRun     bool
}

// NewEngine wires an Engine for cfg. cfg must have passed Validate.
func NewEngine(cfg *Config, cluster ClusterAPI, rules RuleAPI, alarms AlarmAPI, metrics *Metrics) (*Engine, error) {
	if cfg.DryRun {
		cluster = DryRunCluster{ClusterAPI: cluster}
		rules = DryRunRules{}
	}

	e := &Engine{
		Capacity: NewCapacityManager(cluster, cfg),
		Rules:    NewRuleController(rules),
		Alarms:   NewAlarmQuery(alarms),
		Metrics:  metrics,
		triggers: map[string]trigger{
			cfg.HighSchedulerARN: {kindTick, CategoryHigh},
			cfg.LowSchedulerARN:  {kindTick, CategoryLow},
			cfg.HighAlarmARN:     {kindAlarm, CategoryHigh},
			cfg.LowAlarmARN:      {kindAlarm, CategoryLow},
		},
		ruleNames:  make(map[AlarmCategory]string, 2),
		alarmNames: make(map[AlarmCategory]string, 2),
		dryRun:     cfg.DryRun,
	}

	for category, arns := range map[AlarmCategory][2]string{
		CategoryHigh: {cfg.HighSchedulerARN, cfg.HighAlarmARN},
		CategoryLow:  {cfg.LowSchedulerARN, cfg.LowAlarmARN},
	} {
		rule, err := RuleName(arns[0])
		if err != nil {
			return nil, fmt.Errorf("%s scheduler: %w", category, err)
		}
		alarm, err := AlarmName(arns[1])
		if err != nil {
			return nil, fmt.Errorf("%s alarm: %w", category, err)
		}
		e.ruleNames[category] = rule
		e.alarmNames[category] = alarm
	}

	return e, nil
}

// Handle processes one event. A nil return means the event is fully handled;
// any error fails the invocation. Use IsRetryable to tell transient failures
// from configuration mismatches.
func (e *Engine) Handle(ctx context.Context, ev webhooks.Event) error {
	start := time.Now()
	logger := log.With().Str("trigger", ev.Trigger()).Str("event_id", ev.ID).Logger()

	trig, ok := e.triggers[ev.Trigger()]
	if !ok || ev.Trigger() == "" {
		logger.Error().Strs("resources", ev.Resources).Msg("Unknown trigger")
		e.Metrics.observeEvent("unknown", outcomeUnknownTrigger, time.Since(start))
		return fmt.Errorf("%w: %q", ErrUnknownTrigger, ev.Trigger())
	}

	var (
		outcome string
		err     error
	)
	if trig.kind == kindTick {
		outcome, err = e.handleTick(ctx, logger, trig.category)
	} else {
		if ev.Detail != nil {
			logger = logger.With().
				Str("previous", ev.Detail.PreviousState.Value).
				Str("current", ev.Detail.State.Value).
				Logger()
		}
		outcome, err = e.handleAlarmChange(ctx, logger, trig.category, ev.Detail)
	}

	if err != nil {
		logger.Error().Err(err).Bool("retryable", IsRetryable(err)).Msg("Error handling event")
		e.Metrics.observeEvent(trig.label(), outcomeError, time.Since(start))
		return err
	}

	if e.dryRun && mutating(outcome) {
		logger = logger.With().Str("would", outcome).Logger()
		outcome = outcomeDryRun
	}
	logger.Info().Str("outcome", outcome).Dur("duration", time.Since(start)).Msg("Event handled")
	e.Metrics.observeEvent(trig.label(), outcome, time.Since(start))
	return nil
}

func (e *Engine) handleTick(ctx context.Context, logger zerolog.Logger, category AlarmCategory) (string, error) {
	alarmLike, err := e.Alarms.IsInAlarmLikeState(ctx, e.alarmNames[category], category)
	if err != nil {
		return "", err
	}
	if !alarmLike {
		// Typically the tick that fires right after a rule is created, before
		// the alarm settles.
		logger.Info().Msg("Scheduler tick while alarm is not alarm-like, ignoring")
		return outcomeStaleTick, nil
	}

	nodes, err := e.Capacity.CurrentNodes(ctx)
	if err != nil {
		return "", err
	}

	if category == CategoryHigh {
		active := len(activeOnly(nodes))
		if active >= e.Capacity.Max {
			logger.Info().Int("active", active).Int("max", e.Capacity.Max).Msg("Disabling high scheduler due to max node limit")
			return outcomeBoundReached, e.disable(ctx, category)
		}
		logger.Debug().Int("active", active).Msg("Trying to add one node due to high scheduler tick")
		id, err := e.Capacity.addNode(ctx, nodes)
		if err != nil {
			return "", err
		}
		if id == "" {
			return outcomeNoop, nil
		}
		if !e.dryRun {
			e.Metrics.observeNodeOp("create")
		}
		return outcomeScaledUp, nil
	}

	if len(nodes) <= e.Capacity.Min {
		logger.Info().Int("nodes", len(nodes)).Int("min", e.Capacity.Min).Msg("Disabling low scheduler due to min node limit")
		return outcomeBoundReached, e.disable(ctx, category)
	}
	logger.Debug().Int("nodes", len(nodes)).Msg("Trying to remove one node due to low scheduler tick")
	id, err := e.Capacity.removeNode(ctx, nodes)
	if err != nil {
		return "", err
	}
	if id == "" {
		return outcomeNoop, nil
	}
	if !e.dryRun {
		e.Metrics.observeNodeOp("delete")
	}
	return outcomeScaledDown, nil
}

func (e *Engine) handleAlarmChange(ctx context.Context, logger zerolog.Logger, category AlarmCategory, detail *webhooks.AlarmDetail) (string, error) {
	if detail == nil || detail.State.Value == "" || detail.PreviousState.Value == "" {
		return "", fmt.Errorf("%w: %s alarm change without state detail", ErrMalformedEvent, category)
	}

	transition := Classify(category, AlarmState(detail.PreviousState.Value), AlarmState(detail.State.Value))
	logger = logger.With().Str("transition", transition.String()).Logger()

	switch transition {
	case TransitionOKToAlarm:
		logger.Info().Msgf("Enabling %s scheduler, disabling %s scheduler", category, category.Opposite())
		if err := e.enable(ctx, category); err != nil {
			return "", err
		}
		if err := e.disable(ctx, category.Opposite()); err != nil {
			return "", err
		}
		return outcomeRulesSwitched, nil
	case TransitionAlarmToOK:
		// The opposite rule is deliberately left as is.
		logger.Info().Msgf("Disabling %s scheduler", category)
		if err := e.disable(ctx, category); err != nil {
			return "", err
		}
		return outcomeRuleDisabled, nil
	default:
		logger.Info().Msg("Ignored state change")
		return outcomeIgnoredChange, nil
	}
}

func (e *Engine) enable(ctx context.Context, category AlarmCategory) error {
	name := e.ruleNames[category]
	if err := e.Rules.Enable(ctx, name); err != nil {
		return err
	}
	if !e.dryRun {
		e.Metrics.observeRuleOp(name, "enable")
	}
	return nil
}

func (e *Engine) disable(ctx context.Context, category AlarmCategory) error {
	name := e.ruleNames[category]
	if err := e.Rules.Disable(ctx, name); err != nil {
		return err
	}
	if !e.dryRun {
		e.Metrics.observeRuleOp(name, "disable")
	}
	return nil
}
