// Package session keeps the server-side session rows that carry each user's
// backend token pair. The browser only ever sees an opaque signed session id;
// tokens are sealed at rest.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sofratec/erp-app/internal/auth"
)

// Session is the gorm model backing one authenticated browser session.
type Session struct {
	ID         string `gorm:"primaryKey;size:36"`
	Email      string `gorm:"index"`
	Tokens     []byte // sealed auth.TokenPair
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time `gorm:"index"`
}

type Store struct {
	db     *gorm.DB
	key    []byte
	secret string
	ttl    time.Duration
}

// NewStore derives the sealing key from the session secret. The same secret
// signs the cookie, so rotating it invalidates every live session at once.
func NewStore(db *gorm.DB, secret string, ttl time.Duration) *Store {
	key := sha256.Sum256([]byte(secret))
	return &Store{db: db, key: key[:], secret: secret, ttl: ttl}
}

// Create opens a session for an authenticated user and returns its id.
func (s *Store) Create(ctx context.Context, email string, pair auth.TokenPair) (string, error) {
	blob, err := s.sealPair(pair)
	if err != nil {
		return "", err
	}
	now := time.Now()
	row := Session{
		ID:         uuid.NewString(),
		Email:      email,
		Tokens:     blob,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return row.ID, nil
}

// Get loads a live session row. Expired or unknown ids map to ErrNoSession.
func (s *Store) Get(ctx context.Context, sid string) (*Session, error) {
	var row Session
	if err := s.db.WithContext(ctx).First(&row, "id = ?", sid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if time.Now().After(row.ExpiresAt) {
		_ = s.Delete(ctx, sid)
		return nil, auth.ErrNoSession
	}
	return &row, nil
}

// LoadPair implements auth.Store.
func (s *Store) LoadPair(ctx context.Context, sid string) (auth.TokenPair, error) {
	row, err := s.Get(ctx, sid)
	if err != nil {
		return auth.TokenPair{}, err
	}
	return s.openPair(row.Tokens)
}

// SavePair implements auth.Store. Called after each token refresh.
func (s *Store) SavePair(ctx context.Context, sid string, pair auth.TokenPair) error {
	blob, err := s.sealPair(pair)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", sid).
		Updates(map[string]any{"tokens": blob, "last_seen_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("save session tokens: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return auth.ErrNoSession
	}
	return nil
}

// Touch pushes LastSeenAt forward; called by the middleware on page loads.
func (s *Store) Touch(ctx context.Context, sid string) {
	s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", sid).
		Update("last_seen_at", time.Now())
}

func (s *Store) Delete(ctx context.Context, sid string) error {
	return s.db.WithContext(ctx).Delete(&Session{}, "id = ?", sid).Error
}

// PurgeExpired removes dead rows; run periodically from main.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&Session{}, "expires_at < ?", time.Now())
	return res.RowsAffected, res.Error
}

// Count returns the number of live sessions, for the dashboard.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Session{}).Where("expires_at >= ?", time.Now()).Count(&n).Error
	return n, err
}

func (s *Store) sealPair(pair auth.TokenPair) ([]byte, error) {
	plain, err := json.Marshal(pair)
	if err != nil {
		return nil, fmt.Errorf("encode token pair: %w", err)
	}
	return seal(s.key, plain)
}

func (s *Store) openPair(blob []byte) (auth.TokenPair, error) {
	plain, err := open(s.key, blob)
	if err != nil {
		return auth.TokenPair{}, err
	}
	var pair auth.TokenPair
	if err := json.Unmarshal(plain, &pair); err != nil {
		return auth.TokenPair{}, fmt.Errorf("decode token pair: %w", err)
	}
	return pair, nil
}
