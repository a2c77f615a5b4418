package domain

// User is the directory's view of an account. Identity is established
// upstream; this service only needs enough to stamp claims and to refuse
// deactivated accounts.
type User struct {
	ID     string
	Email  string
	Role   string
	Active bool
}
