// Package formutil parses identifiers out of requests.
//
// Malformed ids are rejected here, before any store is consulted, with a
// validation error the HTTP layer renders as 400 INVALID_ID.
package formutil

import (
	"net/http"
	"strings"

	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrBadID is returned for any id that is not a 24-char hex ObjectID.
var ErrBadID = apperr.E(apperr.Validation, "INVALID_ID", "Invalid id.")

// ObjectID parses a hex ObjectID.
func ObjectID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil || id.IsZero() {
		return primitive.NilObjectID, ErrBadID
	}
	return id, nil
}

// URLParam parses the chi URL parameter name as an ObjectID.
func URLParam(r *http.Request, name string) (primitive.ObjectID, error) {
	return ObjectID(chi.URLParam(r, name))
}

// ObjectIDs parses every entry or fails on the first bad one.
func ObjectIDs(raw []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := ObjectID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
