package storage

import (
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/sessions"
	"github.com/gatherly/server/internal/domain/users"
)

// Repository aggregates the per-domain repositories backed by one
// store.
type Repository interface {
	Users() users.Repository
	Tokens() sessions.TokenRepository
	Events() events.Repository
}
