// Package tenancy resolves which tenant namespace an inbound webhook contact
// belongs to. The chat platform carries no tenant hint, so resolution works
// purely from the operator's phone number, scanning tenant schemas and
// caching the match.
package tenancy

// Operator is a field operator row from a tenant's user table.
type Operator struct {
	ID         int64
	TenantID   int
	Title      string
	Email      string
	Phone      string
	LanguageID int
}

// Match pairs a resolved operator with the tenant schema it was found in.
type Match struct {
	Schema   string
	Operator Operator
}

// DisplayName returns the operator's title, or a neutral fallback for
// greeting templates when none is set.
func (o Operator) DisplayName() string {
	if o.Title != "" {
		return o.Title
	}
	return "there"
}
