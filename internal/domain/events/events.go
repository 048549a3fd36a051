package events

import (
	"context"
	"time"
)

// Event is a scheduled event. The enrichment fields at the bottom are
// populated only by List, relative to the viewing user.
type Event struct {
	ID          int64
	Title       string
	Description string
	StartsAt    time.Time
	CreatedBy   int64
	CreatorName string
	CreatedAt   time.Time
	DeletedAt   *time.Time

	ParticipantsCount int
	IsUserParticipant bool
	IsCreatedByUser   bool
}

// Participant is a user who joined an event.
type Participant struct {
	UserID   int64
	Name     string
	Email    string
	JoinedAt time.Time
}

type CreateParams struct {
	Title       string
	Description string
	StartsAt    time.Time
	CreatedBy   int64
}

// UpdatePatch carries optional field overwrites. A nil field is left
// unchanged; an empty string is treated the same as unset.
type UpdatePatch struct {
	Title       *string
	Description *string
	StartsAt    *time.Time
}

// Filters narrow a List call.
type Filters struct {
	Search             string
	StartDate          *time.Time
	EndDate            *time.Time
	IncludeSoftDeleted bool
	CreatedBy          int64
}

// Page is offset pagination, 1-based.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

type ListResult struct {
	Total  int
	Page   int
	Pages  int
	Events []Event
}

// Repository is the persistence contract for the event/participation
// ledger. The participation uniqueness constraint lives in storage:
// AddParticipant must fail with ErrAlreadyJoined when the (event,
// user) pair exists, even under concurrent joins.
type Repository interface {
	// WithTx runs fn against a repository bound to a single
	// transaction. The quota check and the insert share one.
	WithTx(ctx context.Context, fn func(Repository) error) error

	CreatorActive(ctx context.Context, userID int64) (bool, error)
	// CountCreatedSince counts events created by the user at or after
	// the given instant, soft-deleted rows included.
	CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int, error)

	Insert(ctx context.Context, params CreateParams) (Event, error)
	GetByID(ctx context.Context, id int64, includeDeleted bool) (Event, error)
	Update(ctx context.Context, id int64, patch UpdatePatch) (Event, error)
	SoftDelete(ctx context.Context, id int64, at time.Time) error

	AddParticipant(ctx context.Context, eventID, userID int64) error
	Participants(ctx context.Context, eventID int64) ([]Participant, error)

	List(ctx context.Context, filters Filters, page Page, viewerID int64) ([]Event, int, error)
}
