package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/domain/sessions"
	"github.com/gatherly/server/internal/domain/users"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type staticUsersRepo struct {
	user users.User
}

func (r staticUsersRepo) Create(_ context.Context, _ users.CreateParams) (users.User, error) {
	return users.User{}, users.ErrEmailTaken
}

func (r staticUsersRepo) GetByEmail(_ context.Context, _ string) (users.User, error) {
	return r.user, nil
}

func (r staticUsersRepo) GetByID(_ context.Context, _ int64) (users.User, error) {
	return r.user, nil
}

type mapTokenLedger map[string]int64

func (l mapTokenLedger) Revoke(_ context.Context, token string, userID int64, _ time.Time) error {
	l[token] = userID
	return nil
}

func (l mapTokenLedger) IsRevoked(_ context.Context, token string, userID int64) (bool, error) {
	owner, ok := l[token]
	return ok && owner == userID, nil
}

func (l mapTokenLedger) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newSessionService(t *testing.T, ledger sessions.TokenRepository) (*sessions.Service, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	repo := staticUsersRepo{user: users.User{ID: 9, Name: "Ada", Email: "ada@example.com", PasswordHash: string(hash)}}
	userService := users.NewService(repo, zerolog.Nop())
	jwtManager := auth.NewJWTManager("middleware-test-secret", time.Hour, "gatherly")
	service := sessions.NewService(userService, ledger, jwtManager, zerolog.Nop())

	session, err := service.Login(context.Background(), "ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return service, session.Token
}

func identityEcho(t *testing.T, want Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Error("expected identity in context")
		}
		if identity != want {
			t.Errorf("expected identity %+v, got %+v", want, identity)
		}
		if RawTokenFromContext(r.Context()) == "" {
			t.Error("expected raw token in context")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthValidToken(t *testing.T) {
	service, token := newSessionService(t, mapTokenLedger{})
	handler := RequireAuth(service, "test")(identityEcho(t, Identity{UserID: 9, Email: "ada@example.com", Name: "Ada"}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRequireAuthMissingHeader(t *testing.T) {
	service, _ := newSessionService(t, mapTokenLedger{})
	handler := RequireAuth(service, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuthGarbageToken(t *testing.T) {
	service, _ := newSessionService(t, mapTokenLedger{})
	handler := RequireAuth(service, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a malformed token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuthRevokedToken(t *testing.T) {
	ledger := mapTokenLedger{}
	service, token := newSessionService(t, ledger)
	if err := service.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	handler := RequireAuth(service, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a revoked token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Title != "Token has been revoked" {
		t.Errorf("expected revocation title, got %q", payload.Title)
	}
}
