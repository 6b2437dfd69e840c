package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their JSON name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if data == nil {
		w.WriteHeader(status)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, data)
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, r *http.Request, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}

	respondJSON(w, r, http.StatusBadRequest, &domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fields,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName lowercases the first letter of a Go field name
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, &domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	default:
		return domain.ErrorTypeInternal
	}
}

// respondServiceError maps a service error to its HTTP status. Anything
// that is not a rule refusal is logged and hidden behind a 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, op string) {
	if errors.Is(err, service.ErrUnauthorized) {
		respondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	re, ok := domain.AsRuleError(err)
	if !ok {
		logger.Error("failed to "+op, zap.Error(err), zap.String("path", r.URL.Path))
		respondWithError(w, r, http.StatusInternalServerError, "Failed to "+op)
		return
	}

	switch re.Kind {
	case domain.KindNotFound:
		respondWithError(w, r, http.StatusNotFound, re.Reason)
	case domain.KindForbidden:
		respondWithError(w, r, http.StatusForbidden, re.Reason)
	case domain.KindConflict:
		respondWithError(w, r, http.StatusConflict, re.Reason)
	case domain.KindValidation:
		apiErr := &domain.APIError{
			Type:   domain.ErrorTypeValidation,
			Title:  "Validation Error",
			Status: http.StatusBadRequest,
			Detail: re.Error(),
		}
		if re.Field != "" {
			apiErr.Errors = map[string]string{re.Field: re.Reason}
		}
		respondJSON(w, r, http.StatusBadRequest, apiErr)
	default:
		respondWithError(w, r, http.StatusInternalServerError, "Failed to "+op)
	}
}

// decodeRequest parses and validates a JSON body into dst. It writes the
// 400 response itself and reports whether the handler may continue.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, r, err)
		return false
	}
	return true
}

// pathID parses the UUID route parameter name, answering 400 when invalid
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid %s: must be a valid UUID", name))
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads page and pageSize; the service clamps them
func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

// sortConfig reads sortBy and sortOrder, falling back to createdAt desc
func sortConfig(r *http.Request) repository.SortConfig {
	cfg := repository.DefaultSortConfig()
	if field := r.URL.Query().Get("sortBy"); field != "" {
		cfg.Field = field
	}
	if order := r.URL.Query().Get("sortOrder"); order != "" {
		cfg.Order = repository.ParseSortOrder(order)
	}
	return cfg
}

// queryParser collects the first malformed query parameter so handlers can
// parse every filter and check once
type queryParser struct {
	r   *http.Request
	err error
}

func (q *queryParser) fail(key, want string) {
	if q.err == nil {
		q.err = fmt.Errorf("invalid %s: must be %s", key, want)
	}
}

func (q *queryParser) decimalParam(key string) *decimal.Decimal {
	raw := q.r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		q.fail(key, "a number")
		return nil
	}
	return &d
}

func (q *queryParser) timeParam(key string) *time.Time {
	raw := q.r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		q.fail(key, "an RFC 3339 timestamp or a date")
		return nil
	}
	return &t
}

func (q *queryParser) boolParam(key string) *bool {
	raw := q.r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(key, "true or false")
		return nil
	}
	return &b
}

func (q *queryParser) uuidParam(key string) *uuid.UUID {
	raw := q.r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		q.fail(key, "a valid UUID")
		return nil
	}
	return &id
}
