package store

// Role names stored in user_roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// KnownRoles lists the roles an administrator may assign.
var KnownRoles = []string{RoleAdmin, RoleUser}

// ActingUser is the identity a mutation is performed on behalf of. It is
// passed explicitly into every authorization decision.
type ActingUser struct {
	ID    string
	Roles map[string]struct{}
}

// NewActingUser builds an ActingUser holding the given roles.
func NewActingUser(id string, roles ...string) ActingUser {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return ActingUser{ID: id, Roles: set}
}

func (a ActingUser) HasRole(role string) bool {
	_, ok := a.Roles[role]
	return ok
}

func (a ActingUser) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// Authored is implemented by records that may carry an author reference.
// ok is false when the record has no author (e.g. the author was deleted).
type Authored interface {
	Author() (id string, ok bool)
}

// AuthorRef is an Authored value holding just an author id. An empty
// AuthorRef has no author.
type AuthorRef string

func (r AuthorRef) Author() (string, bool) { return string(r), r != "" }

// CanMutate reports whether actor may edit or delete rec. Administrators may
// mutate anything; everyone else only records whose author is present and
// equal to their own id.
func CanMutate(actor ActingUser, rec Authored) bool {
	if actor.IsAdmin() {
		return true
	}
	if rec == nil {
		return false
	}
	id, ok := rec.Author()
	return ok && id != "" && id == actor.ID
}
