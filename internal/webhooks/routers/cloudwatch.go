package routers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xd6wang/my-serverless-kms/internal/webhooks"
)

// CloudWatchHandler handles AWS SNS notifications from CloudWatch alarms and
// turns each one into an alarm-change event.
func CloudWatchHandler(d webhooks.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read body", http.StatusInternalServerError)
			return
		}
		defer r.Body.Close()

		// Minimal SNS Payload structure
		type SNSPayload struct {
			Type         string `json:"Type"`
			MessageID    string `json:"MessageId"`
			Message      string `json:"Message"`
			SubscribeURL string `json:"SubscribeURL"`
		}

		var snsPayload SNSPayload
		if err := json.Unmarshal(body, &snsPayload); err != nil {
			http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
			return
		}

		// Handle SubscriptionConfirmation (AWS requirement). Confirmation is
		// left to the operator.
		if snsPayload.Type == "SubscriptionConfirmation" {
			log.Warn().Str("subscribe_url", snsPayload.SubscribeURL).Msg("Received SNS SubscriptionConfirmation. Visit SubscribeURL to confirm.")
			w.WriteHeader(http.StatusOK)
			return
		}

		type AlarmMessage struct {
			AlarmName     string `json:"AlarmName"`
			AlarmArn      string `json:"AlarmArn"`
			NewStateValue string `json:"NewStateValue"` // ALARM, OK, INSUFFICIENT_DATA
			OldStateValue string `json:"OldStateValue"`
		}

		var alarmMsg AlarmMessage
		if err := json.Unmarshal([]byte(snsPayload.Message), &alarmMsg); err != nil {
			http.Error(w, "Message is not a CloudWatch alarm notification", http.StatusBadRequest)
			return
		}
		if alarmMsg.AlarmArn == "" {
			http.Error(w, "AlarmArn missing from alarm notification", http.StatusBadRequest)
			return
		}

		id := snsPayload.MessageID
		if id == "" {
			id = uuid.NewString()
		}

		ev := webhooks.Event{
			ID:        id,
			Resources: []string{alarmMsg.AlarmArn},
			Detail: &webhooks.AlarmDetail{
				AlarmName:     alarmMsg.AlarmName,
				State:         webhooks.StateValue{Value: alarmMsg.NewStateValue},
				PreviousState: webhooks.StateValue{Value: alarmMsg.OldStateValue},
			},
			Source: "sns",
		}

		writeResult(w, d.Handle(r.Context(), ev))
	}
}
