package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "neurotwin-backend/pkg/errors"

	"go.uber.org/zap"
)

// errorResponse is the wire shape of an error
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondError maps the application error taxonomy to HTTP statuses:
// validation and range failures are client errors, unknown resources
// are 404, everything else is a 500.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case pkgerrors.IsGraphValidation(err):
		status = http.StatusUnprocessableEntity
	case pkgerrors.IsRange(err):
		status = http.StatusBadRequest
	case pkgerrors.IsNotFound(err):
		status = http.StatusNotFound
	case pkgerrors.IsMappingData(err):
		status = http.StatusUnprocessableEntity
	}

	body := errorBody{Type: string(pkgerrors.ErrorTypeInternal), Message: "internal error"}
	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		body = errorBody{
			Type:    string(appErr.Type),
			Message: appErr.Message,
			Field:   appErr.Field,
		}
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
	}

	respondJSON(w, status, errorResponse{Error: body})
}
