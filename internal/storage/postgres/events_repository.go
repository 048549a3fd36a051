package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatherly/server/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(events.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &EventRepository{pool: r.pool, tx: tx}
	if err := fn(wrapped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *EventRepository) CreatorActive(ctx context.Context, userID int64) (bool, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM users
	 WHERE id = $1
	   AND deleted_at IS NULL
)
`, userID)

	var active bool
	if err := row.Scan(&active); err != nil {
		return false, fmt.Errorf("check creator: %w", err)
	}
	return active, nil
}

// CountCreatedSince deliberately ignores deleted_at: soft-deleted
// events still count toward the creation quota.
func (r *EventRepository) CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT count(*)
  FROM events
 WHERE created_by = $1
   AND created_at >= $2
`, userID, since)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func (r *EventRepository) Insert(ctx context.Context, params events.CreateParams) (events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO events (title, description, starts_at, created_by)
VALUES ($1, $2, $3, $4)
RETURNING id, title, description, starts_at, created_by, created_at, deleted_at
`, params.Title, params.Description, params.StartsAt, params.CreatedBy)

	event, err := scanEvent(row)
	if err != nil {
		return events.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64, includeDeleted bool) (events.Event, error) {
	query := `
SELECT e.id, e.title, e.description, e.starts_at, e.created_by, e.created_at, e.deleted_at, u.name
  FROM events e
  JOIN users u ON u.id = e.created_by
 WHERE e.id = $1`
	if !includeDeleted {
		query += `
   AND e.deleted_at IS NULL`
	}

	row := r.queryer().QueryRow(ctx, query, id)

	var event events.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.StartsAt,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.DeletedAt,
		&event.CreatorName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return events.Event{}, events.ErrNotFound
		}
		return events.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Update(ctx context.Context, id int64, patch events.UpdatePatch) (events.Event, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.StartsAt != nil {
		args = append(args, *patch.StartsAt)
		sets = append(sets, fmt.Sprintf("starts_at = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id, false)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
UPDATE events
   SET %s
 WHERE id = $%d
   AND deleted_at IS NULL
RETURNING id, title, description, starts_at, created_by, created_at, deleted_at
`, strings.Join(sets, ", "), len(args))

	event, err := scanEvent(r.queryer().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return events.Event{}, events.ErrNotFound
		}
		return events.Event{}, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE events
   SET deleted_at = $2
 WHERE id = $1
   AND deleted_at IS NULL
`, id, at)
	if err != nil {
		return fmt.Errorf("soft delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// AddParticipant relies on the (event_id, user_id) uniqueness
// constraint: of two concurrent joins, the loser observes
// ErrAlreadyJoined rather than a generic failure.
func (r *EventRepository) AddParticipant(ctx context.Context, eventID, userID int64) error {
	_, err := r.queryer().Exec(ctx, `
INSERT INTO event_participants (event_id, user_id)
VALUES ($1, $2)
`, eventID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return events.ErrAlreadyJoined
		}
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

func (r *EventRepository) Participants(ctx context.Context, eventID int64) ([]events.Participant, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT p.user_id, u.name, u.email, p.created_at
  FROM event_participants p
  JOIN users u ON u.id = p.user_id
 WHERE p.event_id = $1
 ORDER BY p.created_at, p.id
`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]events.Participant, 0)
	for rows.Next() {
		var p events.Participant
		if err := rows.Scan(&p.UserID, &p.Name, &p.Email, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters, page events.Page, viewerID int64) ([]events.Event, int, error) {
	where, args := buildEventFilters(filters)

	countQuery := "SELECT count(*) FROM events e" + where
	var total int
	if err := r.queryer().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	args = append(args, viewerID)
	viewerArg := len(args)
	args = append(args, page.Limit, page.Offset())

	query := fmt.Sprintf(`
SELECT e.id, e.title, e.description, e.starts_at, e.created_by, e.created_at, e.deleted_at, u.name,
       (SELECT count(*) FROM event_participants p WHERE p.event_id = e.id) AS participants_count,
       EXISTS (SELECT 1 FROM event_participants p WHERE p.event_id = e.id AND p.user_id = $%d) AS is_participant
  FROM events e
  JOIN users u ON u.id = e.created_by%s
 ORDER BY e.created_at DESC, e.id DESC
 LIMIT $%d OFFSET $%d
`, viewerArg, where, viewerArg+1, viewerArg+2)

	rows, err := r.queryer().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0, page.Limit)
	for rows.Next() {
		var event events.Event
		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.StartsAt,
			&event.CreatedBy,
			&event.CreatedAt,
			&event.DeletedAt,
			&event.CreatorName,
			&event.ParticipantsCount,
			&event.IsUserParticipant,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		event.IsCreatedByUser = event.CreatedBy == viewerID
		items = append(items, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate events: %w", err)
	}
	return items, total, nil
}

func buildEventFilters(filters events.Filters) (string, []any) {
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 5)

	if !filters.IncludeSoftDeleted {
		clauses = append(clauses, "e.deleted_at IS NULL")
	}
	if filters.CreatedBy != 0 {
		args = append(args, filters.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("e.created_by = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		clauses = append(clauses, fmt.Sprintf("(e.title ILIKE $%d OR e.description ILIKE $%d)", len(args), len(args)))
	}
	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		clauses = append(clauses, fmt.Sprintf("e.starts_at >= $%d", len(args)))
	}
	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		clauses = append(clauses, fmt.Sprintf("e.starts_at <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "\n WHERE " + strings.Join(clauses, "\n   AND "), args
}

func scanEvent(row pgx.Row) (events.Event, error) {
	var event events.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.StartsAt,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.DeletedAt,
	)
	return event, err
}
