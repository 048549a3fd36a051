package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatherly/server/internal/api/middleware"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubEventsRepo struct {
	creatorActiveFn  func(userID int64) (bool, error)
	countSinceFn     func(userID int64, since time.Time) (int, error)
	insertFn         func(params events.CreateParams) (events.Event, error)
	getFn            func(id int64, includeDeleted bool) (events.Event, error)
	updateFn         func(id int64, patch events.UpdatePatch) (events.Event, error)
	softDeleteFn     func(id int64, at time.Time) error
	addParticipantFn func(eventID, userID int64) error
	participantsFn   func(eventID int64) ([]events.Participant, error)
	listFn           func(filters events.Filters, page events.Page, viewerID int64) ([]events.Event, int, error)
}

func (s stubEventsRepo) WithTx(_ context.Context, fn func(events.Repository) error) error {
	return fn(s)
}

func (s stubEventsRepo) CreatorActive(_ context.Context, userID int64) (bool, error) {
	if s.creatorActiveFn == nil {
		return true, nil
	}
	return s.creatorActiveFn(userID)
}

func (s stubEventsRepo) CountCreatedSince(_ context.Context, userID int64, since time.Time) (int, error) {
	if s.countSinceFn == nil {
		return 0, nil
	}
	return s.countSinceFn(userID, since)
}

func (s stubEventsRepo) Insert(_ context.Context, params events.CreateParams) (events.Event, error) {
	return s.insertFn(params)
}

func (s stubEventsRepo) GetByID(_ context.Context, id int64, includeDeleted bool) (events.Event, error) {
	return s.getFn(id, includeDeleted)
}

func (s stubEventsRepo) Update(_ context.Context, id int64, patch events.UpdatePatch) (events.Event, error) {
	return s.updateFn(id, patch)
}

func (s stubEventsRepo) SoftDelete(_ context.Context, id int64, at time.Time) error {
	return s.softDeleteFn(id, at)
}

func (s stubEventsRepo) AddParticipant(_ context.Context, eventID, userID int64) error {
	return s.addParticipantFn(eventID, userID)
}

func (s stubEventsRepo) Participants(_ context.Context, eventID int64) ([]events.Participant, error) {
	return s.participantsFn(eventID)
}

func (s stubEventsRepo) List(_ context.Context, filters events.Filters, page events.Page, viewerID int64) ([]events.Event, int, error) {
	return s.listFn(filters, page, viewerID)
}

func newEventsHandler(repo stubEventsRepo, limit int) *EventsHandler {
	quota := events.NewQuotaGuard(limit, 24*time.Hour)
	service := events.NewService(repo, quota, zerolog.Nop())
	return NewEventsHandler(service, "test")
}

func authedRequest(method, target string, body []byte, userID int64) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := middleware.ContextWithIdentity(req.Context(), middleware.Identity{UserID: userID, Email: "ada@example.com", Name: "Ada"})
	return req.WithContext(ctx)
}

func TestEventsCreateSuccess(t *testing.T) {
	repo := stubEventsRepo{
		insertFn: func(params events.CreateParams) (events.Event, error) {
			require.Equal(t, int64(7), params.CreatedBy)
			require.Equal(t, "Launch party", params.Title)
			return events.Event{ID: 1, Title: params.Title, StartsAt: params.StartsAt, CreatedBy: params.CreatedBy}, nil
		},
	}
	handler := newEventsHandler(repo, 10)

	body, _ := json.Marshal(map[string]any{
		"title": "Launch party",
		"date":  time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	})
	req := authedRequest(http.MethodPost, "/api/v1/events", body, 7)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "Launch party", payload["title"])
	require.Equal(t, true, payload["isCreatedByUser"])
}

func TestEventsCreateQuotaExceeded(t *testing.T) {
	repo := stubEventsRepo{
		countSinceFn: func(int64, time.Time) (int, error) { return 2, nil },
		insertFn: func(events.CreateParams) (events.Event, error) {
			t.Fatal("insert must not run once the quota is exhausted")
			return events.Event{}, nil
		},
	}
	handler := newEventsHandler(repo, 2)

	body, _ := json.Marshal(map[string]any{
		"title": "One too many",
		"date":  time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	req := authedRequest(http.MethodPost, "/api/v1/events", body, 7)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var payload struct {
		Type   string         `json:"type"`
		Errors map[string]any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Contains(t, payload.Type, "quota-exceeded")
	require.Equal(t, float64(2), payload.Errors["currentCount"])
	require.Equal(t, float64(2), payload.Errors["limit"])
}

func TestEventsCreateMissingFields(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{}, 10)

	body, _ := json.Marshal(map[string]any{"description": "no title, no date"})
	req := authedRequest(http.MethodPost, "/api/v1/events", body, 7)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsGetNotFound(t *testing.T) {
	repo := stubEventsRepo{
		getFn: func(int64, bool) (events.Event, error) { return events.Event{}, events.ErrNotFound },
	}
	handler := newEventsHandler(repo, 10)

	req := authedRequest(http.MethodGet, "/api/v1/events/42", nil, 7)
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsGetBadID(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{}, 10)

	req := authedRequest(http.MethodGet, "/api/v1/events/abc", nil, 7)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsUpdateForbidden(t *testing.T) {
	repo := stubEventsRepo{
		getFn: func(id int64, _ bool) (events.Event, error) {
			return events.Event{ID: id, Title: "Not yours", CreatedBy: 99}, nil
		},
	}
	handler := newEventsHandler(repo, 10)

	body, _ := json.Marshal(map[string]any{"title": "Hijacked"})
	req := authedRequest(http.MethodPut, "/api/v1/events/5", body, 7)
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEventsDeleteAlreadyDeleted(t *testing.T) {
	deletedAt := time.Now().Add(-time.Hour)
	repo := stubEventsRepo{
		getFn: func(id int64, includeDeleted bool) (events.Event, error) {
			require.True(t, includeDeleted)
			return events.Event{ID: id, CreatedBy: 7, DeletedAt: &deletedAt}, nil
		},
	}
	handler := newEventsHandler(repo, 10)

	req := authedRequest(http.MethodDelete, "/api/v1/events/5", nil, 7)
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsJoinOwnEvent(t *testing.T) {
	repo := stubEventsRepo{
		getFn: func(id int64, _ bool) (events.Event, error) {
			return events.Event{ID: id, CreatedBy: 7}, nil
		},
	}
	handler := newEventsHandler(repo, 10)

	req := authedRequest(http.MethodPost, "/api/v1/events/5/join", nil, 7)
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()
	handler.Join(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsJoinDuplicate(t *testing.T) {
	repo := stubEventsRepo{
		getFn: func(id int64, _ bool) (events.Event, error) {
			return events.Event{ID: id, CreatedBy: 99}, nil
		},
		addParticipantFn: func(int64, int64) error { return events.ErrAlreadyJoined },
	}
	handler := newEventsHandler(repo, 10)

	req := authedRequest(http.MethodPost, "/api/v1/events/5/join", nil, 7)
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()
	handler.Join(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestEventsListEnvelope(t *testing.T) {
	repo := stubEventsRepo{
		listFn: func(filters events.Filters, page events.Page, viewerID int64) ([]events.Event, int, error) {
			require.Equal(t, int64(7), viewerID)
			require.Equal(t, 2, page.Page)
			require.Equal(t, 10, page.Limit)
			return []events.Event{{ID: 11, Title: "Second page"}}, 25, nil
		},
	}
	handler := newEventsHandler(repo, 10)

	req := authedRequest(http.MethodGet, "/api/v1/events?page=2", nil, 7)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Total int              `json:"total"`
		Page  int              `json:"page"`
		Pages int              `json:"pages"`
		Data  []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 25, payload.Total)
	require.Equal(t, 2, payload.Page)
	require.Equal(t, 3, payload.Pages)
	require.Len(t, payload.Data, 1)
}

func TestEventsListBadFilter(t *testing.T) {
	handler := newEventsHandler(stubEventsRepo{}, 10)

	req := authedRequest(http.MethodGet, "/api/v1/events?startDate=notadate", nil, 7)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsParticipants(t *testing.T) {
	joined := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := stubEventsRepo{
		getFn: func(id int64, _ bool) (events.Event, error) {
			return events.Event{ID: id, CreatedBy: 99}, nil
		},
		participantsFn: func(eventID int64) ([]events.Participant, error) {
			return []events.Participant{{UserID: 7, Name: "Ada", Email: "ada@example.com", JoinedAt: joined}}, nil
		},
	}
	handler := newEventsHandler(repo, 10)

	req := authedRequest(http.MethodGet, "/api/v1/events/5/participants", nil, 7)
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()
	handler.Participants(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload, 1)
	require.Equal(t, "Ada", payload[0]["name"])
}
