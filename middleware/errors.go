package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"storefront/utils"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// HandlerFunc is an httprouter handler that reports failure by returning an
// error instead of writing it.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error

// Handle adapts h to httprouter and sends any returned error through the
// central translator.
func Handle(h HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := h(w, r, ps); err != nil {
			WriteError(w, r, err)
		}
	}
}

// WriteError logs err and writes the {success:false, message} envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := TranslateError(err)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")
	utils.RespondWithError(w, status, msg)
}

// TranslateError maps handler, driver and library errors to a status code
// and client-facing message.
func TranslateError(err error) (int, string) {
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Message
	}

	if mongo.IsDuplicateKeyError(err) {
		return http.StatusBadRequest, "Duplicate field value entered"
	}
	if errors.Is(err, primitive.ErrInvalidHex) {
		return http.StatusBadRequest, "Invalid ID format"
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return http.StatusNotFound, "Resource not found"
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, validationMessage(verrs)
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired, please log in again"
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return http.StatusUnauthorized, "Invalid token"
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return http.StatusBadRequest, "Invalid JSON payload"
	}

	return http.StatusInternalServerError, "Internal Server Error"
}

func validationMessage(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "min", "gte":
			msgs = append(msgs, field+" must be at least "+fe.Param())
		case "max", "lte":
			msgs = append(msgs, field+" must be at most "+fe.Param())
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+fe.Param())
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, ", ")
}
