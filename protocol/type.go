package protocol

// Role is an account authority role.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleActive  Role = "active"
	RolePosting Role = "posting"
	RoleMemo    Role = "memo"
)

// Roles in derivation order. The position is the hierarchical role index.
var Roles = []Role{RoleOwner, RoleActive, RolePosting, RoleMemo}

// Index returns the role's child index in the hierarchical path, -1 if unknown.
func (r Role) Index() int {
	for i, role := range Roles {
		if role == r {
			return i
		}
	}
	return -1
}

func (r Role) Valid() bool {
	return r.Index() >= 0
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts a role name; empty means active.
func ParseRole(s string) (Role, bool) {
	if s == "" {
		return RoleActive, true
	}
	r := Role(s)
	return r, r.Valid()
}

// Login types stored next to credentials.
const (
	LoginTypeKeychain   = "keychain"
	LoginTypeHiveSigner = "hivesigner"
	LoginTypePrivateKey = "privateKey"
)

// Authority levels understood by the extension bridge.
const (
	AuthorityPosting = "Posting"
	AuthorityActive  = "Active"
)
