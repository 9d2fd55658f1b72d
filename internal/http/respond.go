package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"babettepos/internal/apperr"
	"babettepos/internal/erp"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldIssue describes one rejected request field.
type fieldIssue struct {
	Path    []string `json:"path"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
}

func validationIssues(err error) []fieldIssue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []fieldIssue{{Path: []string{}, Code: "invalid", Message: err.Error()}}
	}
	out := make([]fieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldIssue{
			Path:    []string{fe.Field()},
			Code:    fe.Tag(),
			Message: issueMessage(fe),
		})
	}
	return out
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must contain at least %s character(s)", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s character(s)", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

// decodeJSON reads a JSON body into target. An empty body leaves target at
// its zero value so the handler reports the missing field itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writePDF(w http.ResponseWriter, name string, content []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// writeAppError maps a service error to its status and JSON body. fallback
// is used for errors that carry no message worth showing.
func (s *Server) writeAppError(w http.ResponseWriter, err error, fallback string) {
	var rl *apperr.RateLimitError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter))
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":      "Too many login attempts",
			"retryAfter": rl.RetryAfter,
			"message":    rl.Error(),
		})
		return
	}

	status := statusFor(err)
	body := map[string]interface{}{"error": fallback}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		body["error"] = appErr.Message
		maps.Copy(body, appErr.Fields)
	case errors.Is(err, apperr.ErrUpstream):
		body["error"] = erp.Message(err)
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// bind decodes and validates a request body, answering 400 itself when
// either step fails.
func (s *Server) bind(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if err := decodeJSON(w, r, target); err != nil {
		s.writeAppError(w, err, "Invalid input")
		return false
	}
	if err := validate.Struct(target); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid input",
			"details": validationIssues(err),
		})
		return false
	}
	return true
}
