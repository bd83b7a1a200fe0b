package domain

import "fmt"

// ProfileLink builds the dashboard route for an account profile. The core
// does not navigate; it hands these links to the surrounding application
// via notification records and API responses.
func ProfileLink(accountType AccountType, accountID string) string {
	if accountType == "" {
		return fmt.Sprintf("/dashboard/profile/%s", accountID)
	}
	return fmt.Sprintf("/dashboard/%s/profile/%s", accountType, accountID)
}
