package domain

// AccountType identifies which kind of account a record belongs to.
// Account ids are only unique within a type's profile collection, so most
// lookups carry the type alongside the id.
type AccountType string

const (
	AccountTypeClub    AccountType = "club"
	AccountTypeAcademy AccountType = "academy"
	AccountTypeAgent   AccountType = "agent"
	AccountTypeTrainer AccountType = "trainer"
	AccountTypePlayer  AccountType = "player"
	AccountTypeAdmin   AccountType = "admin"
)

// ContactableTypes lists the account types that may appear in the contact
// directory. Admin accounts are deliberately excluded.
var ContactableTypes = map[AccountType]bool{
	AccountTypeClub:    true,
	AccountTypeAcademy: true,
	AccountTypeAgent:   true,
	AccountTypeTrainer: true,
	AccountTypePlayer:  true,
}

// IsContactable reports whether accounts of this type can be messaged.
func (t AccountType) IsContactable() bool {
	return ContactableTypes[t]
}

// Label returns the Arabic display label for the account type, used as the
// last resort in name resolution and in dependent-player labels.
func (t AccountType) Label() string {
	switch t {
	case AccountTypeClub:
		return "نادي"
	case AccountTypeAcademy:
		return "أكاديمية"
	case AccountTypeAgent:
		return "وكيل"
	case AccountTypeTrainer:
		return "مدرب"
	case AccountTypePlayer:
		return "لاعب"
	case AccountTypeAdmin:
		return "مشرف"
	default:
		return "مستخدم"
	}
}

// Account is the raw account record owned by the external identity source.
// The core only reads it.
type Account struct {
	ID          string      `json:"id"`
	AccountType AccountType `json:"account_type"`
	Name        string      `json:"name,omitempty"`
	FullName    string      `json:"full_name,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	IsDeleted   bool        `json:"-"`
}

// ProfileFields holds a type-specific profile record as a flat field map.
// Keeping it schemaless lets the identity resolver consume the per-type
// fallback tables without one struct per account type.
type ProfileFields map[string]string

// Get returns the first non-empty value among the given keys.
func (p ProfileFields) Get(keys ...string) string {
	for _, k := range keys {
		if v := p[k]; v != "" {
			return v
		}
	}
	return ""
}
