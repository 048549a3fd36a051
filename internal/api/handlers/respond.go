package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gatherly/server/internal/domain/events"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

type eventPayload struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Date              time.Time  `json:"date"`
	CreatedBy         int64      `json:"createdBy"`
	CreatorName       string     `json:"creatorName,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	DeletedAt         *time.Time `json:"deletedAt,omitempty"`
	ParticipantsCount int        `json:"participantsCount"`
	IsUserParticipant bool       `json:"isUserParticipant"`
	IsCreatedByUser   bool       `json:"isCreatedByUser"`
}

func toEventPayload(event events.Event) eventPayload {
	return eventPayload{
		ID:                event.ID,
		Title:             event.Title,
		Description:       event.Description,
		Date:              event.StartsAt,
		CreatedBy:         event.CreatedBy,
		CreatorName:       event.CreatorName,
		CreatedAt:         event.CreatedAt,
		DeletedAt:         event.DeletedAt,
		ParticipantsCount: event.ParticipantsCount,
		IsUserParticipant: event.IsUserParticipant,
		IsCreatedByUser:   event.IsCreatedByUser,
	}
}
