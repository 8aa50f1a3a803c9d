// Package store persists one assessment flow per operator and serializes
// mutations of it.
package store

import (
	"context"
	"errors"

	"github.com/Alijeyrad/assessflow/internal/flow"
)

var ErrConflict = errors.New("flow store: too many concurrent updates")

// Store keeps each operator's flow. Load never fails for an unknown operator;
// it returns a fresh flow instead.
type Store interface {
	Load(ctx context.Context, operatorID string) (*flow.Flow, error)
	// Update applies fn to the operator's flow and saves the result
	// atomically. If fn returns an error nothing is saved and the error is
	// returned unchanged.
	Update(ctx context.Context, operatorID string, fn func(*flow.Flow) error) (*flow.Flow, error)
	Delete(ctx context.Context, operatorID string) error
}
