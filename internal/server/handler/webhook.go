// Package handler provides the HTTP handlers of build-warden.
package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/google/go-github/v73/github"
	"github.com/google/uuid"

	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/core"
)

// MaxPayloadBytes is the largest webhook body GitHub sends.
const MaxPayloadBytes = 25 << 20

// errMalformedPayload marks bodies that could not be read while signature
// verification is off. They are answered like unparsable webhooks.
var errMalformedPayload = errors.New("malformed webhook payload")

// WebhookHandler turns GitHub webhooks into queued build events.
type WebhookHandler struct {
	cfg        *config.Config
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with the given configuration and dispatcher.
func NewWebhookHandler(cfg *config.Config, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle processes GitHub webhook requests. It never waits for the worker.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxPayloadBytes)

	eventType := github.WebHookType(r)
	deliveryID := github.DeliveryID(r)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	log := h.logger.With("event", eventType, "delivery", deliveryID)

	payload, err := h.readPayload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("webhook payload too large", "limit", tooLarge.Limit)
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		if errors.Is(err, errMalformedPayload) {
			log.Warn("could not read webhook payload", "error", err)
			http.Error(w, "Could not parse webhook", http.StatusBadRequest)
			return
		}
		log.Warn("invalid webhook payload signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	switch eventType {
	case "ping", "check_run", "status":
	default:
		log.Debug("ignoring unhandled webhook event type")
		_, _ = fmt.Fprint(w, "Event type not handled")
		return
	}

	parsed, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		log.Warn("could not parse webhook", "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	var event *core.BuildEvent
	switch e := parsed.(type) {
	case *github.PingEvent:
		log.Info("received ping", "zen", e.GetZen(), "hook", e.GetHookID())
		_, _ = fmt.Fprint(w, "pong")
		return
	case *github.CheckRunEvent:
		if h.cfg.CIPlatform != config.PlatformActions {
			err = fmt.Errorf("check runs are ignored when the CI platform is %s", h.cfg.CIPlatform)
			break
		}
		event, err = eventFromCheckRun(e, h.cfg.Repositories)
	case *github.StatusEvent:
		if h.cfg.CIPlatform != config.PlatformBuildkite {
			err = fmt.Errorf("commit statuses are ignored when the CI platform is %s", h.cfg.CIPlatform)
			break
		}
		event, err = eventFromStatus(e, h.cfg.Repositories)
	}
	if err != nil {
		log.Debug("ignoring webhook", "reason", err.Error())
		_, _ = fmt.Fprintf(w, "Event ignored: %s", err)
		return
	}
	event.DeliveryID = deliveryID

	if err := h.dispatcher.Dispatch(r.Context(), event); err != nil {
		log.Error("failed to queue build event", "error", err, "repo", event.Repo)
		http.Error(w, "Service is shutting down", http.StatusServiceUnavailable)
		return
	}

	log.Info("build failure queued", "repo", event.Repo, "build", event.BuildID, "job", event.JobID, "pr", event.PRNumber)
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Build failure accepted")
}

// readPayload returns the request body, verifying its signature when
// verification is enabled.
func (h *WebhookHandler) readPayload(r *http.Request) ([]byte, error) {
	if h.cfg.WebhookVerify {
		return github.ValidatePayload(r, []byte(h.cfg.GitHub.WebhookSecret))
	}
	// GitHub always sends a Content-Type. Without one the body is read as JSON.
	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		var err error
		if mediaType, _, err = mime.ParseMediaType(ct); err != nil {
			return nil, fmt.Errorf("%w: content type %q: %w", errMalformedPayload, ct, err)
		}
	}
	payload, err := github.ValidatePayloadFromBody(mediaType, r.Body, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedPayload, err)
	}
	return payload, nil
}
