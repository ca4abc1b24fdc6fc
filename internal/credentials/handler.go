package credentials

import (
	"encoding/json"
	"fmt"
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

// SaveKeys saves or updates OAuth2 client credentials for a social platform.
func (h *Handler) SaveKeys(w http.ResponseWriter, r *http.Request) {
	var req SaveKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	created, err := h.svc.Save(r.Context(), &req)
	if err != nil {
		slog.Error("saving credentials", "error", err, "platform", req.Platform)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	verb := "Updated"
	if created {
		verb = "Saved new"
	}
	api.JSONMessage(w, http.StatusOK, fmt.Sprintf("%s credentials for %s.", verb, req.Platform))
}
