package relay

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirillfoster544-cpu/telegram/internal/cache"
	"github.com/kirillfoster544-cpu/telegram/internal/model"
	"github.com/kirillfoster544-cpu/telegram/internal/repo"
)

const (
	codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	// largest multiple of len(codeAlphabet) that fits in a byte; higher bytes are rejected to avoid bias
	codeByteCeiling = 252

	MinCodeLength     = 8
	MaxCodeLength     = 10
	DefaultCodeLength = 8

	codeCacheTTL = 24 * time.Hour
)

var codePattern = regexp.MustCompile(`^[a-z0-9]{8,10}$`)

// NormalizeCode lowercases and trims a code; ok is false if it cannot be a valid code.
func NormalizeCode(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	return code, codePattern.MatchString(code)
}

// Identity is the platform-supplied identity of the acting user
type Identity struct {
	UserID      int64
	DisplayName string
	Handle      string
	Locale      string
}

// Registry maps user ids to profiles and invitation codes
type Registry struct {
	profiles   repo.ProfileRepo
	codeCache  cache.Cache
	codeLength int
	newCode    func(n int) (string, error)
	logger     *slog.Logger
}

// NewRegistry creates a registry. codeCache may be nil.
func NewRegistry(profiles repo.ProfileRepo, codeCache cache.Cache, codeLength int, logger *slog.Logger) *Registry {
	if codeLength < MinCodeLength || codeLength > MaxCodeLength {
		codeLength = DefaultCodeLength
	}
	return &Registry{
		profiles:   profiles,
		codeCache:  codeCache,
		codeLength: codeLength,
		newCode:    generateCode,
		logger:     logger,
	}
}

// RegisterOrTouch updates an existing profile in place or creates one with a fresh code.
// The code of an existing profile never changes.
func (r *Registry) RegisterOrTouch(ctx context.Context, id Identity) (model.UserProfile, error) {
	p, err := r.profiles.Touch(ctx, id.UserID, id.DisplayName, id.Handle, id.Locale)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.UserProfile{}, fmt.Errorf("touch profile: %w", err)
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.UserProfile{}, err
		}

		code, err := r.newCode(r.codeLength)
		if err != nil {
			return model.UserProfile{}, fmt.Errorf("generate code: %w", err)
		}

		taken, err := r.profiles.CodeExists(ctx, code)
		if err != nil {
			return model.UserProfile{}, err
		}
		if taken {
			r.logger.Debug("invitation code collision", "attempt", attempt)
			continue
		}

		created, err := r.profiles.Create(ctx, model.UserProfile{
			UserID:         id.UserID,
			DisplayName:    id.DisplayName,
			Handle:         id.Handle,
			InvitationCode: code,
			Locale:         id.Locale,
		})
		switch {
		case err == nil:
			r.remember(ctx, created)
			r.logger.Info("profile created", "user_id", id.UserID)
			return created, nil
		case errors.Is(err, repo.ErrCodeTaken):
			// lost a race for the code against another insert
			r.logger.Debug("invitation code collision on insert", "attempt", attempt)
			continue
		case errors.Is(err, repo.ErrAlreadyExists):
			// a concurrent event for the same user created the profile first
			return r.profiles.Touch(ctx, id.UserID, id.DisplayName, id.Handle, id.Locale)
		default:
			return model.UserProfile{}, err
		}
	}
}

// ResolveByCode looks up the owner of an invitation code, ignoring case.
func (r *Registry) ResolveByCode(ctx context.Context, code string) (model.UserProfile, error) {
	code, ok := NormalizeCode(code)
	if !ok {
		return model.UserProfile{}, repo.ErrNotFound
	}

	if p, ok := r.cached(ctx, code); ok {
		return p, nil
	}

	p, err := r.profiles.GetByCode(ctx, code)
	if err != nil {
		return model.UserProfile{}, err
	}
	r.remember(ctx, p)
	return p, nil
}

// ResolveByID looks up a profile by user id
func (r *Registry) ResolveByID(ctx context.Context, userID int64) (model.UserProfile, error) {
	return r.profiles.GetByID(ctx, userID)
}

// cached consults the code cache. Any cache problem falls through to storage.
func (r *Registry) cached(ctx context.Context, code string) (model.UserProfile, bool) {
	if r.codeCache == nil {
		return model.UserProfile{}, false
	}
	v, err := r.codeCache.Get(ctx, cache.CodeKey(code))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			r.logger.Warn("code cache read failed", "error", err)
		}
		return model.UserProfile{}, false
	}
	userID, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return model.UserProfile{}, false
	}
	p, err := r.profiles.GetByID(ctx, userID)
	if err != nil || p.InvitationCode != code {
		return model.UserProfile{}, false
	}
	return p, true
}

func (r *Registry) remember(ctx context.Context, p model.UserProfile) {
	if r.codeCache == nil {
		return
	}
	err := r.codeCache.Set(ctx, cache.CodeKey(p.InvitationCode), strconv.FormatInt(p.UserID, 10), codeCacheTTL)
	if err != nil {
		r.logger.Warn("code cache write failed", "error", err)
	}
}

// generateCode returns n characters drawn uniformly from codeAlphabet
func generateCode(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= codeByteCeiling {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
