package services

import (
	"errors"
	"fmt"

	"github.com/rishabhv97/kiwisqft/internal/repository"
)

var (
	ErrNotFound  = repository.ErrNotFound
	ErrConflict  = repository.ErrConflict
	ErrForbidden = errors.New("not allowed to act on this listing")
	// ErrListingSold is returned for owner edits of a sold listing.
	ErrListingSold = errors.New("listing has been sold")
	// ErrNotAcceptingLeads is returned when a buyer enquires about a listing
	// that is not currently approved.
	ErrNotAcceptingLeads = errors.New("listing is not accepting enquiries")
)

// Collaborator names used in CollaboratorError.
const (
	CollaboratorStore = "store"
	CollaboratorBlob  = "blob storage"
	CollaboratorQueue = "task queue"
)

// CollaboratorError reports that an external system failed while the
// service was carrying out Op. The request may be retried.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed to %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// storeErr wraps a repository failure. Not-found and conflict outcomes are
// answers, not failures, and pass through untouched.
func storeErr(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return &CollaboratorError{Collaborator: CollaboratorStore, Op: op, Err: err}
}
