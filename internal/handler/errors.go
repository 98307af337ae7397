package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"taskdeck/internal/repository"
	"taskdeck/internal/service"
	"taskdeck/pkg/response"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decode reads a JSON body into req and validates it. It writes the 400
// itself and returns false when the request is unusable.
func decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// writeError maps service errors onto status codes. Anything unknown is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(w, what+" not found")
	case errors.Is(err, service.ErrAccessDenied):
		response.Forbidden(w, "Access denied")
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken):
		response.Conflict(w, err.Error())
	case errors.Is(err, repository.ErrDocumentConflict):
		response.Conflict(w, what+" was modified concurrently")
	case errors.Is(err, service.ErrAdminExists),
		errors.Is(err, service.ErrSelfAction),
		errors.Is(err, service.ErrTaskNotInSprint),
		errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(w, err.Error())
	default:
		log.Printf("[API] %s: %v", what, err)
		response.InternalError(w, "Internal server error")
	}
}
