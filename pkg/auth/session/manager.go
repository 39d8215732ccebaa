package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/google/uuid"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrNotFound is returned by a Store when no session matches.
	ErrNotFound = errors.New("session not found")
)

// Record is the persisted half of a session. The raw refresh token is never stored.
type Record struct {
	SessionID        string
	RefreshTokenHash string
	ExpiresAt        time.Time
}

// Store persists at most one live session per user.
type Store interface {
	SaveSession(ctx context.Context, userID uuid.UUID, rec Record) error
	// ReplaceSession swaps the session only while oldHash is still current.
	ReplaceSession(ctx context.Context, userID uuid.UUID, oldHash string, rec Record) (bool, error)
	FindByRefreshHash(ctx context.Context, hash string) (uuid.UUID, *Record, error)
	LoadSession(ctx context.Context, userID uuid.UUID) (*Record, error)
	ClearSession(ctx context.Context, userID uuid.UUID) error
}

// RevocationChecker exposes the read-only surface needed by middleware.
type RevocationChecker interface {
	IsActive(ctx context.Context, userID uuid.UUID, sessionID string) (bool, error)
}

// Issued is returned to callers after a login or rotation.
type Issued struct {
	SessionID    string
	RefreshToken string
	ExpiresAt    time.Time
}

// Manager handles refresh token creation, storage, rotation, and revocation.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager constructs a session manager over the provided store.
func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := cfg.AccessTokenTTL()
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// Issue starts a fresh session for the user, replacing any previous one.
func (m *Manager) Issue(ctx context.Context, userID uuid.UUID) (*Issued, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	issued, rec, err := m.newSession()
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveSession(ctx, userID, rec); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return issued, nil
}

// Rotate exchanges a valid refresh token for a new session. The presented token stops working.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (uuid.UUID, *Issued, error) {
	if !wellFormed(refreshToken) {
		return uuid.Nil, nil, ErrInvalidRefreshToken
	}
	hash := HashToken(refreshToken)

	userID, current, err := m.store.FindByRefreshHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, nil, ErrInvalidRefreshToken
		}
		return uuid.Nil, nil, err
	}
	if current == nil || !m.now().Before(current.ExpiresAt) {
		return uuid.Nil, nil, ErrInvalidRefreshToken
	}

	issued, rec, err := m.newSession()
	if err != nil {
		return uuid.Nil, nil, err
	}
	swapped, err := m.store.ReplaceSession(ctx, userID, hash, rec)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("replace session: %w", err)
	}
	if !swapped {
		return uuid.Nil, nil, ErrInvalidRefreshToken
	}
	return userID, issued, nil
}

// Revoke ends the user's session; outstanding access tokens stop validating.
func (m *Manager) Revoke(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	return m.store.ClearSession(ctx, userID)
}

// IsActive reports whether sessionID is the user's current, unexpired session.
func (m *Manager) IsActive(ctx context.Context, userID uuid.UUID, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, nil
	}
	rec, err := m.store.LoadSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if rec == nil || rec.SessionID != sessionID {
		return false, nil
	}
	return m.now().Before(rec.ExpiresAt), nil
}

func (m *Manager) newSession() (*Issued, Record, error) {
	token, err := generateRefreshToken()
	if err != nil {
		return nil, Record{}, err
	}
	expires := m.now().Add(m.ttl).UTC()
	sid := uuid.NewString()
	return &Issued{SessionID: sid, RefreshToken: token, ExpiresAt: expires},
		Record{SessionID: sid, RefreshTokenHash: HashToken(token), ExpiresAt: expires},
		nil
}

// HashToken returns the hex SHA-256 digest used to persist refresh tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRefreshToken() (string, error) {
	bytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func wellFormed(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil && len(raw) == refreshTokenBytes
}
