package api

import (
	"errors"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest          = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrNotFound            = &AppError{Code: http.StatusNotFound, Message: "not found"}
	ErrConflict            = &AppError{Code: http.StatusConflict, Message: "conflict"}
	ErrInternalServer      = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrValidation          = &AppError{Code: http.StatusBadRequest, Message: "validation error"}
	ErrUnsupportedPlatform = &AppError{Code: http.StatusBadRequest, Message: "unsupported platform"}
	ErrMissingCredentials  = &AppError{Code: http.StatusNotFound, Message: "no credentials saved for platform"}
	ErrInvalidScheduleTime = &AppError{Code: http.StatusBadRequest, Message: "scheduled_time is not a valid RFC 3339 timestamp"}
	ErrTranscription       = &AppError{Code: http.StatusBadGateway, Message: "speech transcription failed"}
	ErrGeneration          = &AppError{Code: http.StatusBadGateway, Message: "post generation failed"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorMessage(w, appErr.Code, appErr.Message)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
