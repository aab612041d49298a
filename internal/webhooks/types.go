package webhooks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// StateValue is one side of an alarm state change as EventBridge encodes it.
type StateValue struct {
	Value string `json:"value"`
}

// AlarmDetail is the detail block of a "CloudWatch Alarm State Change" event.
type AlarmDetail struct {
	AlarmName     string     `json:"alarmName,omitempty"`
	State         StateValue `json:"state"`
	PreviousState StateValue `json:"previousState"`
}

// Event is the unit of work handed to the dispatcher.
type Event struct {
	// ID is informational only; duplicates are expected under at-least-once delivery.
	ID string `json:"id,omitempty"`

	// Resources carries the trigger identity (rule or alarm ARN) in its first element.
	Resources []string `json:"resources"`

	// Detail is present only for alarm-change events.
	Detail *AlarmDetail `json:"detail,omitempty"`

	// Metadata for logging
	Source string `json:"source,omitempty"`
}

// Trigger returns the trigger identity of the event, or "" if it has none.
func (e Event) Trigger() string {
	if len(e.Resources) == 0 {
		return ""
	}
	return e.Resources[0]
}

// FromCloudWatchEvent converts the Lambda runtime's EventBridge envelope.
// Scheduled events carry "{}" as detail, which is mapped to a nil Detail.
func FromCloudWatchEvent(in events.CloudWatchEvent) (Event, error) {
	ev := Event{
		ID:        in.ID,
		Resources: in.Resources,
		Source:    in.Source,
	}

	if len(in.Detail) == 0 {
		return ev, nil
	}

	var detail AlarmDetail
	if err := json.Unmarshal(in.Detail, &detail); err != nil {
		return Event{}, fmt.Errorf("failed to decode event detail: %w", err)
	}
	if detail.State.Value != "" || detail.PreviousState.Value != "" {
		ev.Detail = &detail
	}
	return ev, nil
}

// Dispatcher handles one event synchronously.
type Dispatcher interface {
	Handle(ctx context.Context, ev Event) error
}
