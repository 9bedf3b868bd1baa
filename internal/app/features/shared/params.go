// Package shared holds request helpers used by every JSON feature.
package shared

import (
	"net/http"

	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/app/system/authz"
	"github.com/dalemusser/planhub/internal/app/system/inputval"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caller returns the authenticated user's id or an Unauthenticated error.
func Caller(r *http.Request) (primitive.ObjectID, error) {
	id, _, ok := authz.UserCtx(r)
	if !ok {
		return primitive.NilObjectID, apperr.Unauthenticated("Authentication required.")
	}
	return id, nil
}

// ObjectID parses the chi URL parameter name. A malformed id is a
// BadRequest naming the parameter.
func ObjectID(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest("Invalid %s.", name)
	}
	return id, nil
}

// ObjectIDs parses several URL parameters in order, stopping at the first
// bad one.
func ObjectIDs(r *http.Request, names ...string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, len(names))
	for i, n := range names {
		id, err := ObjectID(r, n)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// DecodeValid decodes the JSON body into dst and runs its validate tags.
func DecodeValid(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := respond.Decode(w, r, dst); err != nil {
		return err
	}
	if res := inputval.Validate(dst); res.HasErrors() {
		return apperr.BadRequest("%s", res.First())
	}
	return nil
}
