// Package ownership holds the per-row access policy shared by every
// owner-scoped resource: a row is visible to, and mutable by, only the user
// recorded as its owner.
package ownership

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/internal/platform/auth"
)

// ErrNotOwned is returned by Check when the caller does not own the row.
var ErrNotOwned = errors.New("row is not owned by caller")

// Owned is implemented by every owner-scoped row.
type Owned interface {
	OwnerID() uuid.UUID
}

// Check returns ErrNotOwned unless caller owns row.
func Check(caller uuid.UUID, row Owned) error {
	if caller == uuid.Nil || row.OwnerID() != caller {
		return ErrNotOwned
	}
	return nil
}

// Loader fetches a row by id. It must return an error wrapping notFound when
// the row does not exist.
type Loader[T Owned] func(ctx context.Context, id uuid.UUID) (T, error)

// Resolve loads the row and applies Check. A missing row and a row owned by
// someone else both yield apierror.NotFound so the two cases cannot be told
// apart. Other load errors are returned unchanged.
func Resolve[T Owned](ctx context.Context, caller, id uuid.UUID, notFound error, load Loader[T]) (T, error) {
	var zero T
	row, err := load(ctx, id)
	if err != nil {
		if errors.Is(err, notFound) {
			return zero, apierror.NotFound()
		}
		return zero, err
	}
	if err := Check(caller, row); err != nil {
		return zero, apierror.NotFound()
	}
	return row, nil
}

// Caller returns the authenticated user id carried by ctx.
func Caller(ctx context.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierror.Authentication("Authentication credentials were not provided.")
	}
	return id, nil
}
