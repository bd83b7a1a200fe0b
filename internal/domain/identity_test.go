package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestResolver(store *memStore) *IdentityResolver {
	return NewIdentityResolver(store, store, zap.NewNop())
}

func TestResolvePlayerNameFallbackChain(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		profile ProfileFields
		want    string
	}{
		{"full_name wins", ProfileFields{"full_name": "أحمد علي", "name": "ahmed", "displayName": "A"}, "أحمد علي"},
		{"name next", ProfileFields{"name": "ahmed", "displayName": "A"}, "ahmed"},
		{"displayName next", ProfileFields{"displayName": "A"}, "A"},
		{"type label last", ProfileFields{}, "لاعب"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			store.addAccount(&Account{ID: "p1", AccountType: AccountTypePlayer}, tc.profile)

			identity := newTestResolver(store).Resolve(ctx, "p1", AccountTypePlayer)
			assert.Equal(t, tc.want, identity.DisplayName)
		})
	}
}

func TestResolveTypeLabels(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		accountType AccountType
		label       string
	}{
		{AccountTypeClub, "نادي"},
		{AccountTypeAcademy, "أكاديمية"},
		{AccountTypeAgent, "وكيل"},
		{AccountTypeTrainer, "مدرب"},
		{AccountTypePlayer, "لاعب"},
	}
	for _, tc := range cases {
		store := newMemStore()
		store.addAccount(&Account{ID: "a1", AccountType: tc.accountType}, nil)

		identity := newTestResolver(store).Resolve(ctx, "a1", tc.accountType)
		assert.Equal(t, tc.label, identity.DisplayName)
	}
}

func TestResolveFallsBackToRawAccountName(t *testing.T) {
	store := newMemStore()
	store.addAccount(&Account{ID: "c1", AccountType: AccountTypeClub, Name: "Al Hilal"}, nil)

	identity := newTestResolver(store).Resolve(context.Background(), "c1", AccountTypeClub)
	assert.Equal(t, "Al Hilal", identity.DisplayName)
}

func TestResolveMissingAccountDegradesToLabel(t *testing.T) {
	store := newMemStore()

	identity := newTestResolver(store).Resolve(context.Background(), "ghost", AccountTypeAgent)
	assert.Equal(t, "وكيل", identity.DisplayName)
	assert.NotEmpty(t, identity.AvatarURL, "placeholder avatar expected")
}

func TestResolveAvatarPriority(t *testing.T) {
	ctx := context.Background()

	t.Run("stored avatar wins", func(t *testing.T) {
		store := newMemStore()
		store.addAccount(&Account{ID: "p1", AccountType: AccountTypePlayer, AvatarURL: "raw.png"},
			ProfileFields{"profile_image_url": "profile.png"})
		store.avatars["player:p1"] = "https://cdn/stored.png"

		identity := newTestResolver(store).Resolve(ctx, "p1", AccountTypePlayer)
		assert.Equal(t, "https://cdn/stored.png", identity.AvatarURL)
	})

	t.Run("profile field next", func(t *testing.T) {
		store := newMemStore()
		store.addAccount(&Account{ID: "p1", AccountType: AccountTypePlayer, AvatarURL: "raw.png"},
			ProfileFields{"profile_image": "profile.png"})

		identity := newTestResolver(store).Resolve(ctx, "p1", AccountTypePlayer)
		assert.Equal(t, "profile.png", identity.AvatarURL)
	})

	t.Run("raw account field next", func(t *testing.T) {
		store := newMemStore()
		store.addAccount(&Account{ID: "p1", AccountType: AccountTypePlayer, AvatarURL: "raw.png"}, ProfileFields{})

		identity := newTestResolver(store).Resolve(ctx, "p1", AccountTypePlayer)
		assert.Equal(t, "raw.png", identity.AvatarURL)
	})

	t.Run("placeholder last", func(t *testing.T) {
		store := newMemStore()
		store.addAccount(&Account{ID: "p1", AccountType: AccountTypePlayer, FullName: "Omar"}, ProfileFields{})

		identity := newTestResolver(store).Resolve(ctx, "p1", AccountTypePlayer)
		assert.Contains(t, identity.AvatarURL, "ui-avatars.com")
		assert.Contains(t, identity.AvatarURL, "Omar")
	})
}

func TestResolveOrganizationChain(t *testing.T) {
	store := newMemStore()
	store.addAccount(&Account{ID: "p1", AccountType: AccountTypePlayer, FullName: "Omar"},
		ProfileFields{"clubName": "Al Ahly", "academyName": "Elite"})

	identity := newTestResolver(store).Resolve(context.Background(), "p1", AccountTypePlayer)
	assert.Equal(t, "Al Ahly", identity.OrganizationName, "current_club absent, clubName next in chain")
}

func TestProfileFieldsGet(t *testing.T) {
	p := ProfileFields{"b": "two", "c": "three"}
	assert.Equal(t, "two", p.Get("a", "b", "c"))
	assert.Equal(t, "", p.Get("x", "y"))
	assert.Equal(t, "", ProfileFields(nil).Get("a"))
}
