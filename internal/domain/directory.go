package domain

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// AccountLister scans the raw account collection.
type AccountLister interface {
	ListAccounts(ctx context.Context, limit int) ([]*Account, error)
}

// PresenceChecker reports which accounts are currently online.
type PresenceChecker interface {
	OnlineStatuses(ctx context.Context, accountIDs []string) (map[string]bool, error)
}

// dependentParentFields maps the player profile foreign keys to the parent
// account type, in detection order. The first non-empty key wins.
var dependentParentFields = []struct {
	Field string
	Type  AccountType
}{
	{"club_id", AccountTypeClub},
	{"academy_id", AccountTypeAcademy},
	{"trainer_id", AccountTypeTrainer},
	{"agent_id", AccountTypeAgent},
}

const defaultDirectoryLimit = 100

// DirectoryService builds the deduplicated contact directory from the raw
// account collection.
type DirectoryService struct {
	accounts AccountLister
	resolver *IdentityResolver
	presence PresenceChecker
	logger   *zap.Logger
}

func NewDirectoryService(accounts AccountLister, resolver *IdentityResolver, presence PresenceChecker, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{
		accounts: accounts,
		resolver: resolver,
		presence: presence,
		logger:   logger,
	}
}

// BuildDirectory scans up to limit accounts and resolves each into a Contact.
// The current user and admin accounts are excluded. Resolution runs with
// per-account isolation: one account's resolver failure yields a best-effort
// Contact, never a dropped entry. Only a failure of the underlying scan
// aborts the whole batch, surfaced as ErrDirectoryUnavailable.
func (s *DirectoryService) BuildDirectory(ctx context.Context, currentUserID string, limit int) ([]*Contact, error) {
	if currentUserID == "" {
		return nil, ErrNotAuthenticated
	}
	if limit <= 0 {
		limit = defaultDirectoryLimit
	}

	accounts, err := s.accounts.ListAccounts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		contacts = make([]*Contact, 0, len(accounts))
		seen     = make(map[string]bool, len(accounts))
	)

	for _, account := range accounts {
		if account.ID == currentUserID || account.IsDeleted {
			continue
		}
		if !account.AccountType.IsContactable() {
			continue
		}
		compositeID := CompositeContactID(account.AccountType, account.ID)
		if seen[compositeID] {
			continue
		}
		seen[compositeID] = true

		wg.Add(1)
		go func(account *Account) {
			defer wg.Done()
			contact := s.buildContact(ctx, account)
			mu.Lock()
			contacts = append(contacts, contact)
			mu.Unlock()
		}(account)
	}
	wg.Wait()

	s.applyPresence(ctx, contacts)

	s.logger.Debug("contact directory built",
		zap.String("user_id", currentUserID),
		zap.Int("contacts", len(contacts)),
	)
	return contacts, nil
}

// buildContact resolves one account. A panic or lookup failure inside the
// resolver degrades to a labelled default entry rather than dropping it.
func (s *DirectoryService) buildContact(ctx context.Context, account *Account) (contact *Contact) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("contact resolution panicked",
				zap.String("account_id", account.ID),
				zap.Any("panic", r),
			)
			contact = s.fallbackContact(account)
		}
	}()

	identity, profile := s.resolver.resolveAccount(ctx, account, account.AccountType)

	contact = &Contact{
		CompositeID:      CompositeContactID(account.AccountType, account.ID),
		AccountID:        account.ID,
		Name:             identity.DisplayName,
		Type:             account.AccountType,
		AvatarURL:        identity.AvatarURL,
		OrganizationName: identity.OrganizationName,
	}

	// Dependent detection only applies to players.
	if account.AccountType == AccountTypePlayer {
		for _, parent := range dependentParentFields {
			if id := profile[parent.Field]; id != "" {
				contact.IsDependent = true
				contact.ParentAccountID = id
				contact.ParentAccountType = parent.Type
				contact.Name = fmt.Sprintf("%s (تابع لـ %s)", identity.DisplayName, parent.Type.Label())
				break
			}
		}
	}
	return contact
}

func (s *DirectoryService) fallbackContact(account *Account) *Contact {
	name := rawAccountName(account)
	if name == "" {
		name = account.AccountType.Label()
	}
	return &Contact{
		CompositeID: CompositeContactID(account.AccountType, account.ID),
		AccountID:   account.ID,
		Name:        name,
		Type:        account.AccountType,
		AvatarURL:   PlaceholderAvatarURL(name),
	}
}

// applyPresence marks online contacts in place. Presence is advisory; a
// tracker failure leaves every contact offline and logs once.
func (s *DirectoryService) applyPresence(ctx context.Context, contacts []*Contact) {
	if s.presence == nil || len(contacts) == 0 {
		return
	}
	ids := make([]string, len(contacts))
	for i, c := range contacts {
		ids[i] = c.AccountID
	}
	online, err := s.presence.OnlineStatuses(ctx, ids)
	if err != nil {
		s.logger.Warn("presence lookup failed", zap.Error(err))
		return
	}
	for _, c := range contacts {
		c.IsOnline = online[c.AccountID]
	}
}
