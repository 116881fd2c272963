package rbac

import "strings"

// grants is one role's permissions split by match style.
type grants struct {
	all      bool
	exact    map[string]struct{}
	prefixes []string
}

func (g grants) allows(perm string) bool {
	if g.all {
		return true
	}
	if _, ok := g.exact[perm]; ok {
		return true
	}
	for _, p := range g.prefixes {
		if strings.HasPrefix(perm, p) {
			return true
		}
	}
	return false
}

// Checker answers permission questions for a fixed role table. Entries are
// either exact ("attempt:submit"), a resource wildcard ("quiz:*") or "*".
type Checker struct {
	roles map[string]grants
}

// NewChecker compiles table; nil selects RolePermissions.
func NewChecker(table map[string][]string) *Checker {
	if table == nil {
		table = RolePermissions
	}
	c := &Checker{roles: make(map[string]grants, len(table))}
	for role, perms := range table {
		g := grants{exact: map[string]struct{}{}}
		for _, p := range perms {
			switch {
			case p == "*":
				g.all = true
			case strings.HasSuffix(p, "*"):
				g.prefixes = append(g.prefixes, strings.TrimSuffix(p, "*"))
			default:
				g.exact[p] = struct{}{}
			}
		}
		c.roles[role] = g
	}
	return c
}

// Has is false for unknown and empty roles.
func (c *Checker) Has(role, perm string) bool {
	g, ok := c.roles[role]
	return ok && g.allows(perm)
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}
