package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"noteface-service/logging"
	"noteface-service/metrics"
	"noteface-service/models"
	"noteface-service/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

const maxPayloadBytes = 5 << 20

// ReceivePush handles POST /receive_push/{secret}. The push event is read
// from the form field "payload" or, for JSON deliveries, the request body.
func ReceivePush(dispatcher *pipeline.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := chi.URLParam(r, "secret")
		if !dispatcher.Authorized(secret) {
			metrics.WebhookOutcomes.WithLabelValues("unauthorized").Inc()
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}

		event, err := decodePushEvent(w, r)
		if err != nil {
			metrics.WebhookOutcomes.WithLabelValues("invalid").Inc()
			logging.Warn().Err(err).Msg("Undecodable push payload")
			writeError(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		result, err := dispatcher.Dispatch(r.Context(), secret, event)
		switch {
		case errors.Is(err, pipeline.ErrUnauthorized):
			metrics.WebhookOutcomes.WithLabelValues("unauthorized").Inc()
			writeError(w, http.StatusForbidden, "Forbidden")
		case err != nil:
			metrics.WebhookOutcomes.WithLabelValues("failed").Inc()
			logging.Error().Err(err).
				Int("enqueued", result.Enqueued).
				Str("commit", result.Commit).
				Msg("Dispatch failed")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":    "Failed to queue compilation",
				"enqueued": result.Enqueued,
			})
		case result.Outcome == pipeline.OutcomeIgnored:
			metrics.WebhookOutcomes.WithLabelValues(string(pipeline.OutcomeIgnored)).Inc()
			w.WriteHeader(http.StatusNotModified)
		default:
			metrics.WebhookOutcomes.WithLabelValues(string(pipeline.OutcomeAccepted)).Inc()
			writeJSON(w, http.StatusAccepted, result)
		}
	}
}

func decodePushEvent(w http.ResponseWriter, r *http.Request) (*models.PushEvent, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)

	var data []byte
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		data = body
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		data = []byte(r.PostForm.Get("payload"))
	}

	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}

	var event models.PushEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
