package events

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("event not found")
	ErrAlreadyDeleted  = errors.New("event already deleted")
	ErrInvalidInput    = errors.New("title and date are required")
	ErrCreatorNotFound = errors.New("creator user not found")
	ErrForbidden       = errors.New("only the creator may modify this event")
	ErrSelfJoin        = errors.New("cannot join your own event")
	ErrAlreadyJoined   = errors.New("already a participant")
)

// QuotaError reports a denied creation attempt, carrying the observed
// count and the configured limit so the caller can render a precise
// message.
type QuotaError struct {
	Count int
	Limit int
}

func (e QuotaError) Error() string {
	return fmt.Sprintf("event creation limit reached: %d of %d in the current window", e.Count, e.Limit)
}
