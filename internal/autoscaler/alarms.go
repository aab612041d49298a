package autoscaler

import (
	"context"

	"github.com/rs/zerolog/log"
)

// AlarmQuery answers whether an alarm is currently in an alarm-like state.
type AlarmQuery struct {
	API AlarmAPI
}

func NewAlarmQuery(api AlarmAPI) *AlarmQuery {
	return &AlarmQuery{API: api}
}

// IsInAlarmLikeState reads the live alarm state. There is no fallback: a
// failed read aborts the invocation.
func (q *AlarmQuery) IsInAlarmLikeState(ctx context.Context, name string, category AlarmCategory) (bool, error) {
	state, err := q.API.AlarmState(ctx, name)
	if err != nil {
		return false, dependencyError("describe alarm "+name, err)
	}
	log.Debug().Str("alarm", name).Str("state", string(state)).Msg("Alarm state")
	return IsAlarmLike(category, state), nil
}
