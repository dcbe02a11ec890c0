package relay

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillfoster544-cpu/telegram/internal/cache"
	"github.com/kirillfoster544-cpu/telegram/internal/repo"
)

func TestGenerateCode_format(t *testing.T) {
	for _, n := range []int{MinCodeLength, 9, MaxCodeLength} {
		code, err := generateCode(n)
		require.NoError(t, err)
		assert.Len(t, code, n)
		assert.Regexp(t, `^[a-z0-9]+$`, code)
	}
}

func TestNormalizeCode(t *testing.T) {
	code, ok := NormalizeCode("  AB12CD34 ")
	assert.True(t, ok)
	assert.Equal(t, "ab12cd34", code)

	for _, bad := range []string{"", "short", "toolongcode1", "ab12-cd34"} {
		_, ok := NormalizeCode(bad)
		assert.False(t, ok, bad)
	}
}

func TestRegistry_RegisterOrTouch_keepsCode(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	first, err := h.registry.RegisterOrTouch(ctx, Identity{UserID: 10, DisplayName: "Dana", Handle: "dana", Locale: "en"})
	require.NoError(t, err)

	second, err := h.registry.RegisterOrTouch(ctx, Identity{UserID: 10, DisplayName: "Dana K", Handle: "danak"})
	require.NoError(t, err)

	assert.Equal(t, first.InvitationCode, second.InvitationCode)
	assert.Equal(t, "Dana K", second.DisplayName)
	assert.Equal(t, "danak", second.Handle)
	assert.Equal(t, "en", second.Locale, "empty locale keeps the stored one")
}

func TestRegistry_RegisterOrTouch_retriesOnCollision(t *testing.T) {
	h := newHarness()
	h.seedAliceBob()
	ctx := context.Background()

	// the first two candidates collide with existing codes
	candidates := []string{"ab12cd34", "xy98zz01", "fresh001"}
	h.registry.newCode = func(int) (string, error) {
		c := candidates[0]
		candidates = candidates[1:]
		return c, nil
	}

	p, err := h.registry.RegisterOrTouch(ctx, Identity{UserID: 3, DisplayName: "Carol"})
	require.NoError(t, err)
	assert.Equal(t, "fresh001", p.InvitationCode)
	assert.Empty(t, candidates)
}

// racyProfiles reports a code as free but rejects it on insert, as a concurrent insert would
type racyProfiles struct {
	*memProfiles
}

func (r *racyProfiles) CodeExists(context.Context, string) (bool, error) { return false, nil }

func TestRegistry_RegisterOrTouch_retriesOnInsertRace(t *testing.T) {
	h := newHarness()
	h.seedAliceBob()
	profiles := &racyProfiles{memProfiles: h.profiles}
	reg := NewRegistry(profiles, nil, DefaultCodeLength, discardLogger())

	candidates := []string{"ab12cd34", "fresh002"}
	reg.newCode = func(int) (string, error) {
		c := candidates[0]
		candidates = candidates[1:]
		return c, nil
	}

	p, err := reg.RegisterOrTouch(context.Background(), Identity{UserID: 3})
	require.NoError(t, err)
	assert.Equal(t, "fresh002", p.InvitationCode)
}

func TestRegistry_CodesAreUniqueAndResolve(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	seen := make(map[string]int64)
	for id := int64(1); id <= 200; id++ {
		p, err := h.registry.RegisterOrTouch(ctx, Identity{UserID: id})
		require.NoError(t, err)
		owner, dup := seen[p.InvitationCode]
		require.False(t, dup, "code %s issued to %d and %d", p.InvitationCode, owner, id)
		seen[p.InvitationCode] = id
	}

	for code, id := range seen {
		p, err := h.registry.ResolveByCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, id, p.UserID)
	}
}

func TestRegistry_ResolveByCode_notFound(t *testing.T) {
	h := newHarness()
	h.seedAliceBob()

	_, err := h.registry.ResolveByCode(context.Background(), "qqqqqqqq")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRegistry_ResolveByCode_usesCache(t *testing.T) {
	h := newHarness()
	h.seedAliceBob()
	codeCache := newMemCache()
	reg := NewRegistry(h.profiles, codeCache, DefaultCodeLength, discardLogger())
	ctx := context.Background()

	p, err := reg.ResolveByCode(ctx, "XY98ZZ01")
	require.NoError(t, err)
	assert.Equal(t, bob.UserID, p.UserID)
	assert.Equal(t, strconv.FormatInt(bob.UserID, 10), codeCache.values[cache.CodeKey("xy98zz01")])

	// a stale cache entry pointing at the wrong user is ignored
	codeCache.values[cache.CodeKey("ab12cd34")] = "2"
	p, err = reg.ResolveByCode(ctx, "ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, p.UserID)
}

func TestRegistry_RegisterOrTouch_storageFailure(t *testing.T) {
	h := newHarness()
	h.profiles.failAll = true

	_, err := h.registry.RegisterOrTouch(context.Background(), alice)
	assert.ErrorIs(t, err, errStorage)
}
