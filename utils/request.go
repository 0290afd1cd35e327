package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront/globals"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

// DecodeJSON reads a JSON body into v and runs struct validation.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("Request body is required")
		}
		return err
	}
	return Validate(v)
}

// DecodeOptionalJSON is DecodeJSON for endpoints where the body may be omitted.
func DecodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return Validate(v)
	}
	err := DecodeJSON(r, v)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message == "Request body is required" {
		return Validate(v)
	}
	return err
}

func GetUserIDFromRequest(r *http.Request) string {
	requestingUserID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

func GetRoleFromRequest(r *http.Request) string {
	role, _ := r.Context().Value(globals.RoleKey).(string)
	return role
}

// UserObjectID returns the authenticated user's id as an ObjectID.
func UserObjectID(r *http.Request) (primitive.ObjectID, error) {
	id := GetUserIDFromRequest(r)
	if id == "" {
		return primitive.NilObjectID, Unauthorized("Not authorized")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, Unauthorized("Invalid token subject")
	}
	return oid, nil
}

// ObjectID parses a hex id taken from the URL or body.
func ObjectID(hex string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, BadRequest("Invalid ID: " + hex)
	}
	return oid, nil
}
