package domain

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// ResolvedIdentity is the display-ready view of an account.
type ResolvedIdentity struct {
	DisplayName      string `json:"display_name"`
	AvatarURL        string `json:"avatar_url,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
}

// IdentitySource provides raw account and type-specific profile lookups.
// Both collections are owned by external collaborators; the core reads only.
type IdentitySource interface {
	GetRawAccount(ctx context.Context, accountID string) (*Account, error)
	GetProfile(ctx context.Context, accountType AccountType, accountID string) (ProfileFields, error)
}

// AvatarStore looks up an account's stored avatar. An empty url with a nil
// error means "no stored avatar"; the resolver then falls through the chain.
type AvatarStore interface {
	GetAvatar(ctx context.Context, accountID string, accountType AccountType) (string, error)
}

// fallbackChain is the declarative resolution policy for one account type.
// Field keys are tried in order against the profile record.
type fallbackChain struct {
	NameFields   []string
	OrgFields    []string
	AvatarFields []string
}

var avatarFields = []string{"profile_image_url", "profile_image", "avatar", "photoURL"}

// identityFallbacks encodes the per-type name and organization chains. The
// type label is always the terminal fallback and is not repeated here.
var identityFallbacks = map[AccountType]fallbackChain{
	AccountTypePlayer: {
		NameFields:   []string{"full_name", "name", "displayName"},
		OrgFields:    []string{"current_club", "clubName", "academyName"},
		AvatarFields: avatarFields,
	},
	AccountTypeClub: {
		NameFields:   []string{"name", "club_name", "displayName"},
		OrgFields:    []string{"organizationName", "clubName"},
		AvatarFields: avatarFields,
	},
	AccountTypeAcademy: {
		NameFields:   []string{"name", "academy_name", "displayName"},
		OrgFields:    []string{"organizationName", "academyName"},
		AvatarFields: avatarFields,
	},
	AccountTypeAgent: {
		NameFields:   []string{"name", "agent_name", "agency_name", "displayName"},
		OrgFields:    []string{"organizationName", "agencyName"},
		AvatarFields: avatarFields,
	},
	AccountTypeTrainer: {
		NameFields:   []string{"name", "trainer_name", "displayName"},
		OrgFields:    []string{"organizationName", "specialization"},
		AvatarFields: avatarFields,
	},
}

// rawNameFields is the generic chain applied to the raw account record when
// the type-specific profile is absent or useless.
func rawAccountName(a *Account) string {
	for _, v := range []string{a.Name, a.FullName, a.DisplayName} {
		if v != "" {
			return v
		}
	}
	return ""
}

// IdentityResolver resolves display name, avatar and organizational
// affiliation for an account, applying the per-type fallback tables.
type IdentityResolver struct {
	source  IdentitySource
	avatars AvatarStore
	logger  *zap.Logger
}

func NewIdentityResolver(source IdentitySource, avatars AvatarStore, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{
		source:  source,
		avatars: avatars,
		logger:  logger,
	}
}

// Resolve returns the display identity for an account. It never fails:
// lookups that error degrade to the type-labelled defaults and are logged,
// so one bad account cannot abort a batch.
func (r *IdentityResolver) Resolve(ctx context.Context, accountID string, accountType AccountType) ResolvedIdentity {
	account, err := r.source.GetRawAccount(ctx, accountID)
	if err != nil {
		r.logger.Warn("raw account lookup failed, using defaults",
			zap.String("account_id", accountID),
			zap.String("account_type", string(accountType)),
			zap.Error(err),
		)
		account = &Account{ID: accountID, AccountType: accountType}
	}
	identity, _ := r.resolveAccount(ctx, account, accountType)
	return identity
}

// resolveAccount resolves against an already-fetched raw account and also
// returns the profile record it consulted, so batch callers (the directory
// builder) can reuse it for dependent detection without a second fetch.
func (r *IdentityResolver) resolveAccount(ctx context.Context, account *Account, accountType AccountType) (ResolvedIdentity, ProfileFields) {
	chain := identityFallbacks[accountType]

	profile, err := r.source.GetProfile(ctx, accountType, account.ID)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		r.logger.Warn("profile lookup failed",
			zap.String("account_id", account.ID),
			zap.String("account_type", string(accountType)),
			zap.Error(err),
		)
	}

	name := profile.Get(chain.NameFields...)
	if name == "" {
		name = rawAccountName(account)
	}
	if name == "" {
		name = accountType.Label()
	}

	identity := ResolvedIdentity{
		DisplayName:      name,
		OrganizationName: profile.Get(chain.OrgFields...),
		AvatarURL:        r.resolveAvatar(ctx, account, accountType, profile, name),
	}
	return identity, profile
}

// resolveAvatar applies the avatar order: storage lookup, profile field, raw
// account field, generated placeholder.
func (r *IdentityResolver) resolveAvatar(ctx context.Context, account *Account, accountType AccountType, profile ProfileFields, displayName string) string {
	if r.avatars != nil {
		stored, err := r.avatars.GetAvatar(ctx, account.ID, accountType)
		if err != nil {
			r.logger.Debug("avatar storage lookup failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		} else if stored != "" {
			return stored
		}
	}
	if v := profile.Get(avatarFields...); v != "" {
		return v
	}
	if account.AvatarURL != "" {
		return account.AvatarURL
	}
	return PlaceholderAvatarURL(displayName)
}

// PlaceholderAvatarURL builds a deterministic generated avatar from whatever
// display data is available.
func PlaceholderAvatarURL(displayName string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=0D8ABC&color=fff", url.QueryEscape(displayName))
}
