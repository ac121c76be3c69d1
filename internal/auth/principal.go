package auth

// Principal is an authenticated user together with the permission set
// resolved for the scope of one request.
type Principal struct {
	User        *User
	ProjectID   string
	Permissions map[string]struct{}
}

// NewPrincipal constructs a principal from a resolved permission set.
func NewPrincipal(user *User, projectID string, perms map[string]struct{}) Principal {
	if perms == nil {
		perms = map[string]struct{}{}
	}
	return Principal{User: user, ProjectID: projectID, Permissions: perms}
}

// HasPermission reports whether the principal holds the named permission.
func (p Principal) HasPermission(name string) bool {
	_, ok := p.Permissions[name]
	return ok
}

// HasAll reports whether every named permission is held. An empty requirement
// is trivially satisfied.
func (p Principal) HasAll(names []string) bool {
	for _, name := range names {
		if !p.HasPermission(name) {
			return false
		}
	}
	return true
}
