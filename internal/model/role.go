package model

// Role is an employee's base role. The set is closed.
type Role string

const (
	RoleManager    Role = "manager"
	RoleAllrounder Role = "allrounder"
	RoleVersorger  Role = "versorger"
	RoleVerkauf    Role = "verkauf"
	RoleEssen      Role = "essen"
)

// Roles lists every role from most to least senior.
var Roles = []Role{RoleManager, RoleAllrounder, RoleVersorger, RoleVerkauf, RoleEssen}

// hierarchy maps a base role to the slot roles it may fill.
// A role always covers itself and every more junior role.
var hierarchy = map[Role][]Role{
	RoleManager:    {RoleManager, RoleAllrounder, RoleVersorger, RoleVerkauf, RoleEssen},
	RoleAllrounder: {RoleAllrounder, RoleVersorger, RoleVerkauf, RoleEssen},
	RoleVersorger:  {RoleVersorger, RoleVerkauf, RoleEssen},
	RoleVerkauf:    {RoleVerkauf, RoleEssen},
	RoleEssen:      {RoleEssen},
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := hierarchy[r]
	return ok
}

// Covers returns the slot roles r can fill, most senior first.
func (r Role) Covers() []Role {
	return hierarchy[r]
}

// CanCover reports whether an employee with base role r may fill a slot for role slot.
func (r Role) CanCover(slot Role) bool {
	for _, c := range hierarchy[r] {
		if c == slot {
			return true
		}
	}
	return false
}

// Rank is the seniority index of r (0 is most senior), or -1 for unknown roles.
func (r Role) Rank() int {
	for i, role := range Roles {
		if role == r {
			return i
		}
	}
	return -1
}
