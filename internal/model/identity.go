package model

// Identity is the current backend session as reported by /api/auth/me.
type Identity struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Authenticated reports whether the backend recognised the session.
func (i *Identity) Authenticated() bool {
	return i != nil && i.Email != ""
}
