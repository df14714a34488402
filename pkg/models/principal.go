package models

// Principal is the caller of a request as established by the identity
// provider. The zero value is an anonymous caller.
type Principal struct {
	Subject string   `json:"sub,omitempty"`
	Email   string   `json:"email,omitempty"`
	Groups  []string `json:"groups,omitempty"`
	// Bypass is set for the synthetic developer principal used when
	// authentication is disabled in DEV.
	Bypass bool `json:"-"`
}

// Anonymous reports whether no identity was established.
func (p Principal) Anonymous() bool {
	return !p.Bypass && p.Subject == "" && p.Email == ""
}

// HasGroup reports whether the principal is a member of group.
func (p Principal) HasGroup(group string) bool {
	if group == "" {
		return false
	}
	for _, g := range p.Groups {
		if g == group {
			return true
		}
	}
	return false
}
