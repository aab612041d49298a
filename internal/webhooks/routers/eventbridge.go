package routers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/xd6wang/my-serverless-kms/internal/autoscaler"
	"github.com/xd6wang/my-serverless-kms/internal/webhooks"
)

// EventHandler accepts a raw EventBridge envelope, as delivered by an API
// destination or replayed by an operator.
func EventHandler(d webhooks.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev webhooks.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.Source == "" {
			ev.Source = "http"
		}

		writeResult(w, d.Handle(r.Context(), ev))
	}
}

// writeResult maps a dispatch error to a status code. Retryable failures get
// a 5xx so that the sender redelivers; everything else is a 4xx.
func writeResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case autoscaler.IsRetryable(err):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, autoscaler.ErrUnknownTrigger),
		errors.Is(err, autoscaler.ErrMalformedEvent),
		errors.Is(err, autoscaler.ErrRemovableSetExhausted):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
