// Package authz decides whether an authenticated identity may view a secret.
package authz

// IsAuthorized evaluates a secret's ACL against the caller. The policy is an
// OR across the two allow-lists: a caller named in allowedUsers or sharing a
// group with allowedGroups is admitted. When both lists are empty the secret
// is open to any authenticated identity.
func IsAuthorized(identity string, groups, allowedUsers, allowedGroups []string) bool {
	if len(allowedUsers) == 0 && len(allowedGroups) == 0 {
		return true
	}

	for _, u := range allowedUsers {
		if u == identity {
			return true
		}
	}

	// Not in the user list; group membership still grants access.
	for _, g := range groups {
		for _, ag := range allowedGroups {
			if g == ag {
				return true
			}
		}
	}

	return false
}
