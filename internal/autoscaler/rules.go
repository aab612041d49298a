package autoscaler

import (
	"context"

	"github.com/rs/zerolog/log"
)

// RuleController enables and disables the scheduler rules.
type RuleController struct {
	API RuleAPI
}

func NewRuleController(api RuleAPI) *RuleController {
	return &RuleController{API: api}
}

// Enable turns the rule on. Enabling an enabled rule is a no-op upstream.
func (r *RuleController) Enable(ctx context.Context, name string) error {
	log.Debug().Str("rule", name).Msg("Enabling rule")
	if err := r.API.EnableRule(ctx, name); err != nil {
		return dependencyError("enable rule "+name, err)
	}
	return nil
}

// Disable turns the rule off. Disabling a disabled rule is a no-op upstream.
func (r *RuleController) Disable(ctx context.Context, name string) error {
	log.Debug().Str("rule", name).Msg("Disabling rule")
	if err := r.API.DisableRule(ctx, name); err != nil {
		return dependencyError("disable rule "+name, err)
	}
	return nil
}
