package pipeline

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/voicepost-platform/voicepost/internal/api"
	"github.com/voicepost-platform/voicepost/internal/middleware"
	"github.com/voicepost-platform/voicepost/internal/publisher"
	"github.com/voicepost-platform/voicepost/internal/schedule"
)

// maxAudioBytes caps the uploaded voice note size.
const maxAudioBytes = 25 << 20

const defaultPlatform = "twitter"

// ConfirmRequest is the confirm-post payload. ScheduledTime is RFC 3339;
// omitted means immediate publish.
type ConfirmRequest struct {
	Platform      string `json:"platform" validate:"required"`
	Text          string `json:"text" validate:"required,min=1"`
	ScheduledTime string `json:"scheduled_time,omitempty"`
}

// Handler exposes the pipeline and scheduler over HTTP.
type Handler struct {
	pipeline  *Pipeline
	gate      *Gate
	scheduler *schedule.Scheduler
	registry  PostPublisher
	validate  *validator.Validate
}

func NewHandler(p *Pipeline, gate *Gate, scheduler *schedule.Scheduler, registry PostPublisher) *Handler {
	return &Handler{
		pipeline:  p,
		gate:      gate,
		scheduler: scheduler,
		registry:  registry,
		validate:  validator.New(),
	}
}

// GeneratePost runs the full voice-to-post pipeline from a multipart upload.
// Form fields: audio (file, required), platform, tone, variations, schedule.
func (h *Handler) GeneratePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		api.HandleError(w, api.NewBadRequestError("expected a multipart form with an audio file"))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("audio file is required"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("reading audio upload"))
		return
	}
	if len(audio) == 0 {
		api.HandleError(w, api.NewBadRequestError("audio file is empty"))
		return
	}

	platform := r.FormValue("platform")
	if platform == "" {
		platform = defaultPlatform
	}
	if !h.registry.Supported(platform) {
		api.HandleError(w, api.ErrUnsupportedPlatform)
		return
	}

	variations, _ := strconv.ParseBool(r.FormValue("variations"))

	out, err := h.pipeline.Run(r.Context(), RunInput{
		Audio:           audio,
		MimeType:        header.Header.Get("Content-Type"),
		Platform:        platform,
		Tone:            r.FormValue("tone"),
		Variations:      variations,
		ScheduleRequest: r.FormValue("schedule"),
		RequestID:       middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		h.handlePipelineError(w, r, err)
		return
	}

	api.JSONRaw(w, http.StatusOK, out)
}

// ConfirmPost publishes already-generated text, immediately or at an
// RFC 3339 scheduled time. A malformed time is a client error and registers
// no job.
func (h *Handler) ConfirmPost(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}
	if !h.registry.Supported(req.Platform) {
		api.HandleError(w, api.ErrUnsupportedPlatform)
		return
	}

	if req.ScheduledTime == "" {
		result, err := h.registry.Publish(r.Context(), req.Platform, req.Text)
		if err != nil {
			h.handlePublishError(w, r, err)
			return
		}
		api.JSONRaw(w, http.StatusOK, Decision{Status: OutcomePublished, Publish: result})
		return
	}

	dueAt, err := time.Parse(time.RFC3339, req.ScheduledTime)
	if err != nil {
		api.HandleError(w, api.ErrInvalidScheduleTime)
		return
	}

	job, err := h.gate.RegisterJob(req.Platform, req.Text, dueAt)
	if err != nil {
		slog.Error("registering confirmed job", "error", err, "platform", req.Platform)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONRaw(w, http.StatusAccepted, Decision{Status: OutcomeScheduled, Job: &job})
}

// ListScheduled returns pending jobs ordered by due time.
func (h *Handler) ListScheduled(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, h.scheduler.List())
}

// CancelSchedule cancels a pending job before it fires.
func (h *Handler) CancelSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("jobID must be a UUID"))
		return
	}

	if err := h.scheduler.Cancel(id); err != nil {
		if errors.Is(err, schedule.ErrJobNotFound) {
			api.HandleError(w, api.NewNotFoundError("no pending job with that ID"))
			return
		}
		slog.Error("cancelling job", "error", err, "job_id", id)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONMessage(w, http.StatusOK, "Job cancelled.")
}

func (h *Handler) handlePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, ErrTranscriptionFailed):
		slog.Error("pipeline transcription failed", "request_id", requestID, "error", err)
		api.HandleError(w, api.ErrTranscription)
	case errors.Is(err, ErrGenerationFailed):
		slog.Error("pipeline generation failed", "request_id", requestID, "error", err)
		api.HandleError(w, api.ErrGeneration)
	default:
		h.handlePublishError(w, r, err)
	}
}

func (h *Handler) handlePublishError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, publisher.ErrUnsupportedPlatform):
		api.HandleError(w, api.ErrUnsupportedPlatform)
	case errors.Is(err, publisher.ErrMissingCredentials):
		api.HandleError(w, api.ErrMissingCredentials)
	default:
		slog.Error("publish failed", "request_id", requestID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}
