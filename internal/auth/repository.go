package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"orbitus-api/internal/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrUserNotFound = errors.New("teacher user not found")

type Repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) *Repository {
	return &Repository{
		db:      db,
		metrics: m,
	}
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*TeacherUser, error) {
	start := time.Now()
	user := new(TeacherUser)
	err := r.db.NewSelect().Model(user).Where("email = ?", email).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "teacher_users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*TeacherUser, error) {
	start := time.Now()
	user := new(TeacherUser)
	err := r.db.NewSelect().Model(user).Where("id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "teacher_users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// CreateUser inserts the user, leaving an existing row with the same email untouched.
func (r *Repository) CreateUser(ctx context.Context, user *TeacherUser) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	start := time.Now()
	_, err := r.db.NewInsert().
		Model(user).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "teacher_users", time.Since(start), err)

	return err
}

// CreateRefreshToken stores a new refresh token
func (r *Repository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	start := time.Now()
	refreshToken := &RefreshToken{
		ID:            uuid.New(),
		TeacherUserID: userID,
		Token:         token,
		ExpiresAt:     expiresAt,
	}

	_, err := r.db.NewInsert().Model(refreshToken).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "refresh_tokens", time.Since(start), err)

	return err
}

// GetRefreshToken retrieves an unexpired refresh token by token string
func (r *Repository) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	start := time.Now()
	refreshToken := &RefreshToken{}
	err := r.db.NewSelect().
		Model(refreshToken).
		Where("token = ?", token).
		Where("expires_at > ?", time.Now()).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "refresh_tokens", time.Since(start), err)

	if err != nil {
		return nil, err
	}

	return refreshToken, nil
}

// DeleteRefreshToken removes a refresh token (for logout and rotation).
// Returns ErrInvalidRefreshToken when no row was deleted, so only one
// caller can consume a given token.
func (r *Repository) DeleteRefreshToken(ctx context.Context, token string) error {
	start := time.Now()
	res, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidRefreshToken
	}
	return nil
}

// DeleteExpiredTokens removes all expired refresh tokens
func (r *Repository) DeleteExpiredTokens(ctx context.Context) error {
	start := time.Now()
	_, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("expires_at < ?", time.Now()).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)

	return err
}
