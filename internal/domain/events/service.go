package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Service owns event records, creator linkage, soft-delete state and
// the participation relation.
type Service struct {
	repo   Repository
	quota  *QuotaGuard
	logger zerolog.Logger
}

func NewService(repo Repository, quota *QuotaGuard, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		quota:  quota,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Create validates input, checks the creator and the quota, and
// inserts the event. The quota check and the insert run in one
// transaction so concurrent creations cannot exceed the limit.
func (s *Service) Create(ctx context.Context, creatorID int64, title, description string, startsAt time.Time) (Event, error) {
	title = strings.TrimSpace(title)
	if title == "" || startsAt.IsZero() {
		return Event{}, ErrInvalidInput
	}

	var created Event
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		active, err := tx.CreatorActive(ctx, creatorID)
		if err != nil {
			return fmt.Errorf("check creator: %w", err)
		}
		if !active {
			return ErrCreatorNotFound
		}

		if err := s.quota.Check(ctx, tx, creatorID, time.Now()); err != nil {
			return err
		}

		created, err = tx.Insert(ctx, CreateParams{
			Title:       title,
			Description: strings.TrimSpace(description),
			StartsAt:    startsAt,
			CreatedBy:   creatorID,
		})
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	})
	if err != nil {
		return Event{}, err
	}

	s.logger.Info().Int64("event_id", created.ID).Int64("creator", creatorID).Msg("event created")
	return created, nil
}

// Get returns an event by id, treating soft-deleted rows as absent.
func (s *Service) Get(ctx context.Context, id int64) (Event, error) {
	return s.repo.GetByID(ctx, id, false)
}

// Update overwrites only the non-empty patch fields. Restricted to the
// event's creator; soft-deleted events are not updatable.
func (s *Service) Update(ctx context.Context, id, actorID int64, patch UpdatePatch) (Event, error) {
	event, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return Event{}, err
	}
	if event.CreatedBy != actorID {
		return Event{}, ErrForbidden
	}

	// An empty string is indistinguishable from "unset" under this
	// policy; clearing a field is not supported.
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		patch.Title = nil
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		patch.Description = nil
	}
	if patch.StartsAt != nil && patch.StartsAt.IsZero() {
		patch.StartsAt = nil
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return Event{}, err
	}
	return updated, nil
}

// SoftDelete marks the event deleted. A second delete of the same
// event is rejected, distinctly from a plain not-found.
func (s *Service) SoftDelete(ctx context.Context, id, actorID int64) error {
	event, err := s.repo.GetByID(ctx, id, true)
	if err != nil {
		return err
	}
	if event.CreatedBy != actorID {
		return ErrForbidden
	}
	if event.DeletedAt != nil {
		return ErrAlreadyDeleted
	}

	if err := s.repo.SoftDelete(ctx, id, time.Now()); err != nil {
		return err
	}
	s.logger.Info().Int64("event_id", id).Msg("event soft-deleted")
	return nil
}

// Join adds the user as a participant. The creator cannot join their
// own event, and a user joins a given event at most once; the second
// of two concurrent joins observes ErrAlreadyJoined via the storage
// uniqueness constraint.
func (s *Service) Join(ctx context.Context, eventID, userID int64) error {
	event, err := s.repo.GetByID(ctx, eventID, false)
	if err != nil {
		return err
	}
	if event.CreatedBy == userID {
		return ErrSelfJoin
	}

	if err := s.repo.AddParticipant(ctx, eventID, userID); err != nil {
		return err
	}
	s.logger.Info().Int64("event_id", eventID).Int64("user_id", userID).Msg("participant joined")
	return nil
}

// Participants lists who joined the event, ordered by join time.
func (s *Service) Participants(ctx context.Context, eventID int64) ([]Participant, error) {
	if _, err := s.repo.GetByID(ctx, eventID, false); err != nil {
		return nil, err
	}
	return s.repo.Participants(ctx, eventID)
}

// List returns a filtered page of events ordered by creation time
// descending, enriched relative to the viewing user.
func (s *Service) List(ctx context.Context, filters Filters, page Page, viewerID int64) (ListResult, error) {
	items, total, err := s.repo.List(ctx, filters, page, viewerID)
	if err != nil {
		return ListResult{}, fmt.Errorf("list events: %w", err)
	}

	pages := 0
	if total > 0 {
		pages = (total + page.Limit - 1) / page.Limit
	}
	return ListResult{
		Total:  total,
		Page:   page.Page,
		Pages:  pages,
		Events: items,
	}, nil
}

// IsNotFound reports whether the error should surface as a not-found
// to the caller. Re-deleting an already-deleted event falls in this
// bucket while keeping its distinct message.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyDeleted)
}
