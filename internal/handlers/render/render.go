package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	ValidationErrorType = "validation_failed"
	DecodingErrorType   = "decoding_failed"
	ServiceErrorType    = "service_error"
)

var validate = validator.New()

func init() {
	// Report fields by their json tag name instead of the Go field name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON sends data as a json response with the given status code
func JSON(w http.ResponseWriter, code int, data any) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// ServiceError sends a generic error response with a fixed message
func ServiceError(w http.ResponseWriter, message string, code int) {
	JSON(w, code, ErrorResponse{
		Error:   ServiceErrorType,
		Message: message,
	})
}

// DecodeError reports a request body that could not be parsed
func DecodeError(w http.ResponseWriter, err error) {
	response := ErrorResponse{Error: DecodingErrorType}

	switch err := err.(type) {
	case *json.UnmarshalTypeError:
		response.Message = fmt.Sprintf("Invalid data type for field '%s'", err.Field)
	default:
		response.Message = fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}

	JSON(w, http.StatusBadRequest, response)
}

// ValidationErrors reports per-field validation failures
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	response := ErrorResponse{
		Error:   ValidationErrorType,
		Message: "Request validation failed",
		Fields:  make(map[string]string, len(errs)),
	}

	for _, fieldError := range errs {
		var message string
		switch fieldError.Tag() {
		case "required":
			message = "This field is required"
		case "email":
			message = "Valid email is required"
		case "min":
			message = fmt.Sprintf("Value is too short (minimum %s)", fieldError.Param())
		case "oneof":
			message = fmt.Sprintf("Value must be one of: %s", fieldError.Param())
		default:
			message = "Invalid value"
		}

		response.Fields[fieldError.Field()] = message
	}

	JSON(w, http.StatusBadRequest, response)
}

// BindAndValidate decodes the JSON request body into T and validates it
// using struct tags. On failure it writes the error response itself, the
// caller only has to return.
func BindAndValidate[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		DecodeError(w, err)
		return value, err
	}

	if err := validate.Struct(value); err != nil {
		// The cast is safe as long as T is a struct
		errs := err.(validator.ValidationErrors)
		ValidationErrors(w, errs)
		return value, err
	}

	return value, nil
}
