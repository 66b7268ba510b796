package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of caller roles.
type Role string

const (
	RoleUser          Role = "user"
	RoleOrganizer     Role = "organizer"
	RoleTicketChecker Role = "ticketChecker"
	RoleAdmin         Role = "admin"
)

var allRoles = []Role{RoleUser, RoleOrganizer, RoleTicketChecker, RoleAdmin}

func (r Role) Valid() bool {
	return r.bit() != 0
}

func (r Role) String() string {
	return string(r)
}

func (r Role) bit() RoleSet {
	for i, role := range allRoles {
		if role == r {
			return 1 << i
		}
	}
	return 0
}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	for _, role := range allRoles {
		if strings.EqualFold(strings.TrimSpace(s), string(role)) {
			return role, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleSet is an immutable capability set of roles.
type RoleSet uint8

func NewRoleSet(roles ...Role) RoleSet {
	var set RoleSet
	for _, r := range roles {
		set |= r.bit()
	}
	return set
}

func (s RoleSet) Has(r Role) bool {
	b := r.bit()
	return b != 0 && s&b == b
}

func (s RoleSet) Roles() []Role {
	var out []Role
	for _, r := range allRoles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	names := make([]string, 0, len(allRoles))
	for _, r := range s.Roles() {
		names = append(names, string(r))
	}
	return strings.Join(names, ",")
}

// ParseRoleSet parses a comma separated list such as "organizer,admin".
func ParseRoleSet(names []string) (RoleSet, error) {
	var set RoleSet
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		r, err := ParseRole(name)
		if err != nil {
			return 0, err
		}
		set |= r.bit()
	}
	return set, nil
}

var (
	// ScanRoles may preview and check in tickets.
	ScanRoles = NewRoleSet(RoleOrganizer, RoleTicketChecker, RoleAdmin)

	// StaffRoles see scanner identities and event statistics.
	StaffRoles = NewRoleSet(RoleOrganizer, RoleAdmin)
)
