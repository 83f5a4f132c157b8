package domain

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Actor identifies the authenticated caller of a ledger operation. It is
// resolved once at the HTTP boundary and passed explicitly, so the core
// never reads ambient session state.
type Actor struct {
	ID              string
	Email           string
	Role            string
	AssignedStoreID string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
