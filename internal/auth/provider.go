package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mlane/campaignlens/internal/config"
	"github.com/mlane/campaignlens/internal/domain"
)

// ErrUnauthenticated is returned when a request carries no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Provider verifies the identity attached to a request. Implementations are
// resolved once at process start from configuration.
type Provider interface {
	Authenticate(r *http.Request) (domain.User, error)
}

// NewProvider resolves the configured auth provider.
func NewProvider(cfg config.AuthConfig) (Provider, error) {
	switch cfg.Mode {
	case "", "mock":
		log.Printf("[Auth] mock mode")
		return &MockProvider{}, nil
	case "token":
		if cfg.Token == "" {
			return nil, fmt.Errorf("auth token is required in token mode")
		}
		log.Printf("[Auth] token mode")
		return &TokenProvider{token: cfg.Token}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// MockProvider trusts an X-User-ID header, or hands out a fixed development
// identity when the header is absent. Development and tests only.
type MockProvider struct{}

var mockUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func (p *MockProvider) Authenticate(r *http.Request) (domain.User, error) {
	if raw := strings.TrimSpace(r.Header.Get("X-User-ID")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return domain.User{}, fmt.Errorf("%w: invalid X-User-ID", ErrUnauthenticated)
		}
		return domain.User{ID: id, Email: "dev@example.com", Name: "Dev User"}, nil
	}
	return domain.User{ID: mockUserID, Email: "dev@example.com", Name: "Dev User"}, nil
}

// TokenProvider checks a shared bearer token and reads the acting user from
// the X-User-ID header.
type TokenProvider struct {
	token string
}

func (p *TokenProvider) Authenticate(r *http.Request) (domain.User, error) {
	header := r.Header.Get("Authorization")
	bearer, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return domain.User{}, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	if subtle.ConstantTimeCompare([]byte(bearer), []byte(p.token)) != 1 {
		return domain.User{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	id, err := uuid.Parse(strings.TrimSpace(r.Header.Get("X-User-ID")))
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: missing or invalid X-User-ID", ErrUnauthenticated)
	}
	return domain.User{ID: id}, nil
}

// Middleware authenticates every request and stores the user on the context.
// Unauthenticated requests are rejected with 401.
func Middleware(provider Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := provider.Authenticate(r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}
