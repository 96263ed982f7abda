package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps POST bodies; a feature vector is well under 1 KiB.
const maxBodyBytes = 64 << 10

// pairRule is the validator rule for currency pair path parameters.
const pairRule = "len=6,alpha"

// ValidationError describes one rejected field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

type errorResponse struct {
	Error   string            `json:"error"`
	Details []ValidationError `json:"details,omitempty"`
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into req and runs struct validation.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) []ValidationError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(req); err != nil {
		return []ValidationError{{Code: "ERR_DECODE", Message: err.Error()}}
	}
	if err := s.validate.StructCtx(r.Context(), req); err != nil {
		return validationErrors(err)
	}
	return nil
}

// pairParam returns the upper-cased {pair} path parameter or a validation error.
func (s *Server) pairParam(r *http.Request) (string, []ValidationError) {
	pair := strings.ToUpper(chi.URLParam(r, "pair"))
	if err := s.validate.Var(pair, pairRule); err != nil {
		errs := validationErrors(err)
		for i := range errs {
			errs[i].Field = "pair"
			errs[i].Message = fmt.Sprintf("pair must be six letters, got %q", pair)
		}
		return "", errs
	}
	return pair, nil
}

func validationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		errs := make([]ValidationError, 0, len(fieldErrs))
		for _, e := range fieldErrs {
			errs = append(errs, ValidationError{
				Code:    "ERR_" + strings.ToUpper(e.Tag()),
				Field:   e.Field(),
				Message: errorMessage(e),
				Params:  errorParams(e),
			})
		}
		return errs
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

func errorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func errorParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "len":
		return map[string]interface{}{"max": fe.Param()}
	case "gtefield":
		return map[string]interface{}{"field": fe.Param()}
	}
	return nil
}
