package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/assessflow/pkg/backend"
	redispkg "github.com/Alijeyrad/assessflow/pkg/redis"
	"github.com/Alijeyrad/assessflow/pkg/reqctx"
)

const defaultUserCacheTTL = 5 * time.Minute

// redisKeyUser returns the cache key for the user behind a bearer token.
// Tokens are never stored verbatim.
func redisKeyUser(token string) string {
	sum := sha256.Sum256([]byte(token))
	return redispkg.Key("user", hex.EncodeToString(sum[:]))
}

// Backend is the identity part of the assessment API.
type Backend interface {
	Login(ctx context.Context, in backend.Credentials) (*backend.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*backend.Tokens, error)
	Me(ctx context.Context) (*backend.User, error)
}

// ---------------------------------------------------------------------------
// Operator
// ---------------------------------------------------------------------------

// Operator is the authenticated backend user driving the console.
type Operator struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Roles     []string  `json:"roles"`
	Superuser bool      `json:"is_superuser"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

var _ reqctx.AuthClaims = (*Operator)(nil)

func (o *Operator) GetUserID() uuid.UUID { return o.ID }
func (o *Operator) GetRoles() []string   { return o.Roles }
func (o *Operator) IsSuperuser() bool    { return o.Superuser }

func (o *Operator) IsExpired() bool {
	return !o.ExpiresAt.IsZero() && time.Now().After(o.ExpiresAt)
}

// OperatorFromUser projects a backend user onto the console's claims.
func OperatorFromUser(u *backend.User) (*Operator, error) {
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q", ErrInvalidToken, u.ID)
	}
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		if r.RoleName != "" {
			roles = append(roles, strings.ToLower(r.RoleName))
		}
	}
	return &Operator{
		ID:        id,
		Email:     u.Email,
		FullName:  u.FullName,
		Roles:     roles,
		Superuser: u.IsSuperuser,
	}, nil
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Login(ctx context.Context, email, password string) (*backend.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*backend.Tokens, error)
	// Authenticate resolves a bearer token to its operator. expiresAt is the
	// token's own expiry and caps how long the answer is cached.
	Authenticate(ctx context.Context, token string, expiresAt time.Time) (*Operator, error)
	Forget(ctx context.Context, token string) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type authService struct {
	api      Backend
	rdb      *redis.Client
	cacheTTL time.Duration
}

// New builds the auth service. rdb may be nil, in which case every
// Authenticate call goes to the backend.
func New(api Backend, rdb *redis.Client, cacheTTL time.Duration) Service {
	if cacheTTL <= 0 {
		cacheTTL = defaultUserCacheTTL
	}
	return &authService{api: api, rdb: rdb, cacheTTL: cacheTTL}
}

func (s *authService) Login(ctx context.Context, email, password string) (*backend.Tokens, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	tokens, err := s.api.Login(ctx, backend.Credentials{Email: email, Password: password})
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrValidation) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	slog.Info("auth: operator logged in", "email", email)
	return tokens, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*backend.Tokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidToken
	}
	tokens, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrValidation) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return tokens, nil
}

func (s *authService) Authenticate(ctx context.Context, token string, expiresAt time.Time) (*Operator, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	if !expiresAt.IsZero() && !time.Now().Before(expiresAt) {
		return nil, ErrInvalidToken
	}

	if op, ok := s.cached(ctx, token); ok {
		op.ExpiresAt = expiresAt
		return op, nil
	}

	u, err := s.api.Me(reqctx.WithAccessToken(ctx, token))
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrForbidden) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}
	op, err := OperatorFromUser(u)
	if err != nil {
		return nil, err
	}
	op.ExpiresAt = expiresAt
	s.store(ctx, token, op)
	return op, nil
}

func (s *authService) Forget(ctx context.Context, token string) error {
	if s.rdb == nil {
		return nil
	}
	if err := s.rdb.Del(ctx, redisKeyUser(token)).Err(); err != nil {
		return fmt.Errorf("redis del user: %w", err)
	}
	return nil
}

func (s *authService) cached(ctx context.Context, token string) (*Operator, bool) {
	if s.rdb == nil {
		return nil, false
	}
	b, err := s.rdb.Get(ctx, redisKeyUser(token)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("auth: user cache read failed", "err", err)
		}
		return nil, false
	}
	var op Operator
	if err := json.Unmarshal(b, &op); err != nil {
		return nil, false
	}
	return &op, true
}

func (s *authService) store(ctx context.Context, token string, op *Operator) {
	if s.rdb == nil {
		return
	}
	ttl := s.cacheTTL
	if !op.ExpiresAt.IsZero() {
		ttl = min(ttl, time.Until(op.ExpiresAt))
	}
	if ttl <= 0 {
		return
	}
	b, err := json.Marshal(op)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, redisKeyUser(token), b, ttl).Err(); err != nil {
		slog.Warn("auth: user cache write failed", "err", err)
	}
}
