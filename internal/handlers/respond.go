package handlers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"bipv-docs/internal/api"
	"bipv-docs/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, resp *api.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, payload any) {
	writeJSON(w, status, api.Success(message, payload))
}

// writeError turns err into a failed envelope. AppErrors keep their message and
// status, validation errors become 400 and anything else is an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := utils.AsAppError(err); ok {
		status := utils.AppErrorToHTTPStatus(appErr.Code)
		switch {
		case status >= http.StatusInternalServerError:
			logrus.WithError(err).WithField("code", appErr.Code).Error("Request failed")
		case utils.IsAuthError(appErr):
			logrus.WithField("code", appErr.Code).Info("Request rejected")
		}
		writeJSON(w, status, api.Fail(appErr.Message, appErr.Code))
		return
	}

	var valErr validator.ValidationErrors
	if errors.As(err, &valErr) {
		lists := make([]string, 0, len(valErr))
		details := make([]api.FieldError, 0, len(valErr))
		for _, fe := range valErr {
			lists = append(lists, fe.Field()+" ("+fe.Tag()+")")
			details = append(details, api.FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Message: ruleMessage(fe),
			})
		}
		writeJSON(w, http.StatusBadRequest, api.Failure(
			"validation failed on "+strings.Join(lists, ", "),
			&api.ErrorPayload{Code: utils.ErrInvalidInput, Errors: details},
		))
		return
	}

	logrus.WithError(err).Error("Unhandled error")
	writeJSON(w, http.StatusInternalServerError, api.Failure("unknown server error", nil))
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "url":
		return fe.Field() + " must be a valid URL"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "nefield":
		return fe.Field() + " must differ from " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, api.Failure("Method not allowed", nil))
}

// decodeRequest reads a JSON body into dst and validates it.
func (s *Server) decodeRequest(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return utils.NewAppError(utils.ErrInvalidInput, "Invalid request body", err)
	}
	return s.validate.Struct(dst)
}
