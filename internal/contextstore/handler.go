package contextstore

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/voicepost-platform/voicepost/internal/api"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// AddTexts indexes new texts into the retrieval index.
func (h *Handler) AddTexts(w http.ResponseWriter, r *http.Request) {
	var req AddTextsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	added, err := h.svc.AddTexts(r.Context(), req.Texts)
	if err != nil {
		slog.Error("indexing context texts", "error", err, "added", added)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, map[string]int{"indexed": added})
}
