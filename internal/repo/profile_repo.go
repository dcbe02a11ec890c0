package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillfoster544-cpu/telegram/internal/model"
)

const profileCodeConstraint = "profiles_invitation_code_key"

// ProfileRepo defines the interface for user profile repository operations
type ProfileRepo interface {
	GetByID(ctx context.Context, userID int64) (model.UserProfile, error)
	GetByCode(ctx context.Context, code string) (model.UserProfile, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Touch(ctx context.Context, userID int64, displayName, handle, locale string) (model.UserProfile, error)
	Create(ctx context.Context, p model.UserProfile) (model.UserProfile, error)
}

type profileRepo struct {
	db *sql.DB
}

// NewProfileRepo creates a new ProfileRepo instance
func NewProfileRepo(db *sql.DB) ProfileRepo {
	return &profileRepo{db: db}
}

const profileColumns = `user_id, display_name, handle, invitation_code, locale, created_at, updated_at`

func scanProfile(row *sql.Row) (model.UserProfile, error) {
	var p model.UserProfile
	err := row.Scan(
		&p.UserID,
		&p.DisplayName,
		&p.Handle,
		&p.InvitationCode,
		&p.Locale,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// GetByID retrieves a profile by platform user id
func (r *profileRepo) GetByID(ctx context.Context, userID int64) (model.UserProfile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserProfile{}, ErrNotFound
		}
		return model.UserProfile{}, fmt.Errorf("failed to query profile: %w", err)
	}
	return p, nil
}

// GetByCode retrieves a profile by invitation code, ignoring case
func (r *profileRepo) GetByCode(ctx context.Context, code string) (model.UserProfile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE invitation_code = $1`, strings.ToLower(code)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserProfile{}, ErrNotFound
		}
		return model.UserProfile{}, fmt.Errorf("failed to query profile by code: %w", err)
	}
	return p, nil
}

// CodeExists reports whether any profile already holds the code
func (r *profileRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE invitation_code = $1)`, strings.ToLower(code)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return exists, nil
}

// Touch updates the mutable profile fields in place. An empty locale keeps the stored one.
func (r *profileRepo) Touch(ctx context.Context, userID int64, displayName, handle, locale string) (model.UserProfile, error) {
	query := `
		UPDATE profiles
		SET display_name = $2,
		    handle = $3,
		    locale = COALESCE(NULLIF($4, ''), locale),
		    updated_at = now()
		WHERE user_id = $1
		RETURNING ` + profileColumns
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID, displayName, handle, locale))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserProfile{}, ErrNotFound
		}
		return model.UserProfile{}, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

// Create inserts a new profile. Returns ErrCodeTaken or ErrAlreadyExists on unique violations.
func (r *profileRepo) Create(ctx context.Context, p model.UserProfile) (model.UserProfile, error) {
	query := `
		INSERT INTO profiles (user_id, display_name, handle, invitation_code, locale)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + profileColumns
	created, err := scanProfile(r.db.QueryRowContext(ctx, query,
		p.UserID, p.DisplayName, p.Handle, strings.ToLower(p.InvitationCode), p.Locale))
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			if constraint == profileCodeConstraint {
				return model.UserProfile{}, ErrCodeTaken
			}
			return model.UserProfile{}, ErrAlreadyExists
		}
		return model.UserProfile{}, fmt.Errorf("failed to create profile: %w", err)
	}
	return created, nil
}
