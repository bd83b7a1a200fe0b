package domain

import (
	"strings"
)

// Contact is a derived, ephemeral directory entry built from an Account.
// It is never persisted; the directory is rebuilt on demand.
type Contact struct {
	// CompositeID is accountType + ":" + accountID, globally unique across
	// types even if raw ids collide between profile collections.
	CompositeID       string      `json:"id"`
	AccountID         string      `json:"account_id"`
	Name              string      `json:"name"`
	Type              AccountType `json:"type"`
	AvatarURL         string      `json:"avatar_url,omitempty"`
	IsOnline          bool        `json:"is_online"`
	OrganizationName  string      `json:"organization_name,omitempty"`
	IsDependent       bool        `json:"is_dependent"`
	ParentAccountID   string      `json:"parent_account_id,omitempty"`
	ParentAccountType AccountType `json:"parent_account_type,omitempty"`
}

// CompositeContactID builds the directory-wide unique id for an account.
func CompositeContactID(t AccountType, accountID string) string {
	return string(t) + ":" + accountID
}

// ContactFilter narrows a built directory. All fields are optional; empty
// values match everything.
type ContactFilter struct {
	Search string
	Type   AccountType
}

// FilterContacts applies the filter client-side against name, organization
// and account type. Pure; the input slice is not modified.
func FilterContacts(contacts []*Contact, f ContactFilter) []*Contact {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*Contact, 0, len(contacts))
	for _, c := range contacts {
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.OrganizationName), search) {
			continue
		}
		out = append(out, c)
	}
	return out
}
