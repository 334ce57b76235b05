package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Record is the database row of a portal session.
type Record struct {
	ID        string    `gorm:"primaryKey;size:36"`
	TokenHash string    `gorm:"size:64;index;not null"`
	Payload   []byte    `gorm:"not null"`
	Revision  int64     `gorm:"not null;default:0"`
	Version   int64     `gorm:"not null;default:0"`
	Completed bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

func (Record) TableName() string { return "portal_sessions" }

// GormStore keeps sessions in PostgreSQL or SQLite.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// Migrate creates or updates the sessions table.
func (g *GormStore) Migrate() error {
	return g.db.AutoMigrate(&Record{})
}

func (g *GormStore) Get(ctx context.Context, id string) (*Session, error) {
	var rec Record
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if g.now().After(rec.ExpiresAt) {
		return nil, ErrExpired
	}

	var s Session
	if err := json.Unmarshal(rec.Payload, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (g *GormStore) Save(ctx context.Context, s *Session) error {
	prev := s.Version
	s.Version = prev + 1
	err := g.save(ctx, s, prev)
	if err != nil {
		s.Version = prev
	}
	return err
}

func (g *GormStore) save(ctx context.Context, s *Session, prev int64) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if prev == 0 {
		rec := Record{
			ID:        s.ID,
			TokenHash: s.TokenHash,
			Payload:   payload,
			Revision:  s.Revision,
			Version:   s.Version,
			Completed: s.Completed,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
			ExpiresAt: s.ExpiresAt,
		}
		if err := g.db.WithContext(ctx).Create(&rec).Error; err != nil {
			if g.exists(ctx, s.ID) {
				return ErrConflict
			}
			return mapPgError(err)
		}
		return nil
	}

	res := g.db.WithContext(ctx).Model(&Record{}).
		Where("id = ? AND version = ?", s.ID, prev).
		Updates(map[string]any{
			"token_hash": s.TokenHash,
			"payload":    payload,
			"revision":   s.Revision,
			"version":    s.Version,
			"completed":  s.Completed,
			"updated_at": s.UpdatedAt,
			"expires_at": s.ExpiresAt,
		})
	if res.Error != nil {
		return mapPgError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (g *GormStore) exists(ctx context.Context, id string) bool {
	var n int64
	g.db.WithContext(ctx).Model(&Record{}).Where("id = ?", id).Count(&n)
	return n > 0
}

func (g *GormStore) Delete(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&Record{}).Error
}

func (g *GormStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Where("expires_at < ?", now.UTC()).Delete(&Record{})
	return res.RowsAffected, res.Error
}

// mapPgError turns serialization failures and unique violations into ErrConflict.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	return fmt.Errorf("save session: %w", err)
}
