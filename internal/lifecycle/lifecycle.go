// Package lifecycle defines which moderation moves an administrator may make
// on a listing and what each move does to the verification flag.
package lifecycle

import (
	"fmt"

	"github.com/rishabhv97/kiwisqft/internal/models"
)

// InitialStatus is where every new submission starts.
const InitialStatus = models.StatusPending

// Outcome is the full state written by a transition. Status and IsVerified
// always travel together.
type Outcome struct {
	Status     models.ListingStatus
	IsVerified bool
}

type edge struct {
	from, to models.ListingStatus
}

var transitions = map[edge]bool{
	{models.StatusPending, models.StatusApproved}:  true,
	{models.StatusPending, models.StatusRejected}:  false,
	{models.StatusApproved, models.StatusSold}:     true,
	{models.StatusApproved, models.StatusRejected}: false,
	{models.StatusRejected, models.StatusApproved}: true,
	{models.StatusDraft, models.StatusPending}:     false,
}

// InvalidTransitionError is returned for any move not in the transition table.
type InvalidTransitionError struct {
	From    models.ListingStatus
	To      models.ListingStatus
	Unknown bool // target is not a status at all
}

func (e *InvalidTransitionError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("unknown listing status %q", e.To)
	}
	return fmt.Sprintf("cannot move listing from %s to %s", e.From, e.To)
}

// Plan validates from -> to and returns the state to write.
func Plan(from, to models.ListingStatus) (Outcome, error) {
	if !to.Valid() {
		return Outcome{}, &InvalidTransitionError{From: from, To: to, Unknown: true}
	}
	verified, ok := transitions[edge{from, to}]
	if !ok {
		return Outcome{}, &InvalidTransitionError{From: from, To: to}
	}
	return Outcome{Status: to, IsVerified: verified}, nil
}

// Apply runs Plan and, on success, writes the outcome to l. On failure l is untouched.
func Apply(l *models.Listing, to models.ListingStatus) error {
	out, err := Plan(l.Status, to)
	if err != nil {
		return err
	}
	l.Status = out.Status
	l.IsVerified = out.IsVerified
	return nil
}

// Targets lists the statuses reachable from s, for the moderation UI.
func Targets(s models.ListingStatus) []models.ListingStatus {
	var out []models.ListingStatus
	for _, to := range models.AllStatuses {
		if _, ok := transitions[edge{s, to}]; ok {
			out = append(out, to)
		}
	}
	return out
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.ListingStatus) bool {
	return len(Targets(s)) == 0
}

// ReviewAfterEdit is the state a listing returns to after its owner changes
// a material field. Edits never bypass moderation.
func ReviewAfterEdit(current models.ListingStatus) (Outcome, bool) {
	switch current {
	case models.StatusApproved, models.StatusRejected:
		return Outcome{Status: models.StatusPending, IsVerified: false}, true
	}
	return Outcome{}, false
}
