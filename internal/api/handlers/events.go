package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gatherly/server/internal/api/middleware"
	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/go-playground/validator/v10"
)

type EventsHandler struct {
	Service  *events.Service
	Env      string
	validate *validator.Validate
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{
		Service:  service,
		Env:      env,
		validate: validator.New(),
	}
}

type createEventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
}

// Create makes an event for the authenticated identity. The creator id
// comes from the verified token, never from the request body.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithDetail("title and date are required"))
		return
	}

	event, err := h.Service.Create(r.Context(), identity.UserID, req.Title, req.Description, req.Date)
	if err != nil {
		var quotaErr events.QuotaError
		switch {
		case errors.As(err, &quotaErr):
			problem.Write(w, r, http.StatusTooManyRequests, problem.TypeQuota, "Event creation limit exceeded", err, h.Env,
				problem.WithErrors(map[string]interface{}{
					"currentCount": quotaErr.Count,
					"limit":        quotaErr.Limit,
				}))
		case errors.Is(err, events.ErrInvalidInput):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		case errors.Is(err, events.ErrCreatorNotFound):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Creator user not found", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	event.IsCreatedByUser = true
	writeJSON(w, http.StatusCreated, toEventPayload(event))
}

type listResponse struct {
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Pages int            `json:"pages"`
	Data  []eventPayload `json:"data"`
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())

	filters, page, err := events.ParseFilters(r.URL.Query())
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	result, err := h.Service.List(r.Context(), filters, page, identity.UserID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	data := make([]eventPayload, 0, len(result.Events))
	for _, event := range result.Events {
		data = append(data, toEventPayload(event))
	}
	writeJSON(w, http.StatusOK, listResponse{
		Total: result.Total,
		Page:  result.Page,
		Limit: page.Limit,
		Pages: result.Pages,
		Data:  data,
	})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", events.FilterError{Field: "id", Message: "must be a number"}, h.Env)
		return
	}

	event, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if events.IsNotFound(err) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	identity, _ := middleware.IdentityFromContext(r.Context())
	event.IsCreatedByUser = event.CreatedBy == identity.UserID
	writeJSON(w, http.StatusOK, toEventPayload(event))
}

type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	id, err := pathID(r)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", events.FilterError{Field: "id", Message: "must be a number"}, h.Env)
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.Update(r.Context(), id, identity.UserID, events.UpdatePatch{
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.Date,
	})
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}

	event.IsCreatedByUser = true
	writeJSON(w, http.StatusOK, toEventPayload(event))
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	id, err := pathID(r)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", events.FilterError{Field: "id", Message: "must be a number"}, h.Env)
		return
	}

	if err := h.Service.SoftDelete(r.Context(), id, identity.UserID); err != nil {
		h.writeEventError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

func (h *EventsHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	id, err := pathID(r)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", events.FilterError{Field: "id", Message: "must be a number"}, h.Env)
		return
	}

	if err := h.Service.Join(r.Context(), id, identity.UserID); err != nil {
		switch {
		case errors.Is(err, events.ErrSelfJoin):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Cannot join your own event", err, h.Env)
		case errors.Is(err, events.ErrAlreadyJoined):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Already a participant", err, h.Env)
		case events.IsNotFound(err):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "joined event"})
}

type participantPayload struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (h *EventsHandler) Participants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", events.FilterError{Field: "id", Message: "must be a number"}, h.Env)
		return
	}

	participants, err := h.Service.Participants(r.Context(), id)
	if err != nil {
		if events.IsNotFound(err) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	payload := make([]participantPayload, 0, len(participants))
	for _, p := range participants {
		payload = append(payload, participantPayload{ID: p.UserID, Name: p.Name, Email: p.Email, JoinedAt: p.JoinedAt})
	}
	writeJSON(w, http.StatusOK, payload)
}

// writeEventError maps update/delete failures. Authorization failures
// are surfaced distinctly from authentication ones.
func (h *EventsHandler) writeEventError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, events.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Only the creator may modify this event", err, h.Env)
	case errors.Is(err, events.ErrAlreadyDeleted):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event already deleted", err, h.Env)
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
	}
}
