package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDirectory(store *memStore) *DirectoryService {
	return NewDirectoryService(store, newTestResolver(store), store, zap.NewNop())
}

func findContact(contacts []*Contact, accountID string) *Contact {
	for _, c := range contacts {
		if c.AccountID == accountID {
			return c
		}
	}
	return nil
}

func TestBuildDirectoryExcludesCallerAdminsAndDeleted(t *testing.T) {
	store := newMemStore()
	store.addAccount(&Account{ID: "me", AccountType: AccountTypePlayer, FullName: "Me"}, nil)
	store.addAccount(&Account{ID: "c1", AccountType: AccountTypeClub, Name: "Club"}, nil)
	store.addAccount(&Account{ID: "adm", AccountType: AccountTypeAdmin, Name: "Admin"}, nil)
	store.addAccount(&Account{ID: "gone", AccountType: AccountTypePlayer, FullName: "Gone", IsDeleted: true}, nil)

	contacts, err := newTestDirectory(store).BuildDirectory(context.Background(), "me", 0)
	require.NoError(t, err)

	assert.Len(t, contacts, 1)
	assert.Equal(t, "c1", contacts[0].AccountID)
	assert.Equal(t, "club:c1", contacts[0].CompositeID)
}

func TestBuildDirectoryRequiresAuthentication(t *testing.T) {
	store := newMemStore()
	_, err := newTestDirectory(store).BuildDirectory(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestBuildDirectoryScanFailure(t *testing.T) {
	store := newMemStore()
	store.listAccountsErr = errStoreDown

	_, err := newTestDirectory(store).BuildDirectory(context.Background(), "me", 0)
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestBuildDirectoryEmptyPlatform(t *testing.T) {
	store := newMemStore()
	contacts, err := newTestDirectory(store).BuildDirectory(context.Background(), "me", 0)
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestBuildDirectoryDependentPlayer(t *testing.T) {
	store := newMemStore()
	store.addAccount(&Account{ID: "p1", AccountType: AccountTypePlayer},
		ProfileFields{"full_name": "Karim", "club_id": "c9"})
	store.addAccount(&Account{ID: "p2", AccountType: AccountTypePlayer},
		ProfileFields{"full_name": "Sami", "academy_id": "a3", "agent_id": "g7"})
	store.addAccount(&Account{ID: "p3", AccountType: AccountTypePlayer},
		ProfileFields{"full_name": "Nabil"})

	contacts, err := newTestDirectory(store).BuildDirectory(context.Background(), "me", 0)
	require.NoError(t, err)
	require.Len(t, contacts, 3)

	dep := findContact(contacts, "p1")
	require.NotNil(t, dep)
	assert.True(t, dep.IsDependent)
	assert.Equal(t, "c9", dep.ParentAccountID)
	assert.Equal(t, AccountTypeClub, dep.ParentAccountType)
	assert.Equal(t, "Karim (تابع لـ نادي)", dep.Name)

	// Detection order: academy_id beats agent_id.
	dep2 := findContact(contacts, "p2")
	require.NotNil(t, dep2)
	assert.Equal(t, AccountTypeAcademy, dep2.ParentAccountType)
	assert.Equal(t, "a3", dep2.ParentAccountID)

	indep := findContact(contacts, "p3")
	require.NotNil(t, indep)
	assert.False(t, indep.IsDependent)
	assert.Equal(t, "Nabil", indep.Name)
}

func TestBuildDirectoryPerAccountIsolation(t *testing.T) {
	// A profile store failure degrades the affected entries to raw-account
	// data instead of dropping them or failing the batch.
	store := newMemStore()
	store.addAccount(&Account{ID: "c1", AccountType: AccountTypeClub, Name: "Al Hilal"}, nil)
	store.addAccount(&Account{ID: "p1", AccountType: AccountTypePlayer}, nil)
	store.profileErr = errStoreDown

	contacts, err := newTestDirectory(store).BuildDirectory(context.Background(), "me", 0)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	club := findContact(contacts, "c1")
	require.NotNil(t, club)
	assert.Equal(t, "Al Hilal", club.Name)

	player := findContact(contacts, "p1")
	require.NotNil(t, player)
	assert.Equal(t, "لاعب", player.Name)
}

func TestBuildDirectoryAppliesPresence(t *testing.T) {
	store := newMemStore()
	store.addAccount(&Account{ID: "c1", AccountType: AccountTypeClub, Name: "Club"}, nil)
	store.addAccount(&Account{ID: "p1", AccountType: AccountTypePlayer, FullName: "Omar"}, nil)
	store.online["p1"] = true

	contacts, err := newTestDirectory(store).BuildDirectory(context.Background(), "me", 0)
	require.NoError(t, err)

	assert.True(t, findContact(contacts, "p1").IsOnline)
	assert.False(t, findContact(contacts, "c1").IsOnline)
}

func TestBuildDirectoryPresenceFailureIsAdvisory(t *testing.T) {
	store := newMemStore()
	store.addAccount(&Account{ID: "p1", AccountType: AccountTypePlayer, FullName: "Omar"}, nil)
	store.online["p1"] = true
	store.presenceErr = errStoreDown

	contacts, err := newTestDirectory(store).BuildDirectory(context.Background(), "me", 0)
	require.NoError(t, err)
	assert.False(t, contacts[0].IsOnline)
}

func TestFilterContacts(t *testing.T) {
	contacts := []*Contact{
		{AccountID: "1", Name: "Ahmed Ali", Type: AccountTypePlayer, OrganizationName: "Al Hilal"},
		{AccountID: "2", Name: "Elite Academy", Type: AccountTypeAcademy},
		{AccountID: "3", Name: "Omar", Type: AccountTypePlayer, OrganizationName: "Elite"},
	}

	assert.Len(t, FilterContacts(contacts, ContactFilter{}), 3)
	assert.Len(t, FilterContacts(contacts, ContactFilter{Type: AccountTypePlayer}), 2)

	byName := FilterContacts(contacts, ContactFilter{Search: "ahmed"})
	require.Len(t, byName, 1)
	assert.Equal(t, "1", byName[0].AccountID)

	// Search matches organization too.
	byOrg := FilterContacts(contacts, ContactFilter{Search: "elite"})
	assert.Len(t, byOrg, 2)

	both := FilterContacts(contacts, ContactFilter{Search: "elite", Type: AccountTypePlayer})
	require.Len(t, both, 1)
	assert.Equal(t, "3", both[0].AccountID)
}
