package models

import "time"

// Secret is an encrypted payload plus the access-control and expiry
// metadata that governs who may reveal it and until when.
type Secret struct {
	ID            string    `json:"id"`
	Token         string    `json:"-"` // public link token, sole lookup key
	Title         string    `json:"title,omitempty"`
	Ciphertext    []byte    `json:"-"`
	Creator       string    `json:"creator"`
	AllowedUsers  []string  `json:"allowed_users,omitempty"`
	AllowedGroups []string  `json:"allowed_groups,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	Revoked       bool      `json:"revoked"`
}

// Inert reports whether the secret is permanently inaccessible for reveal
// purposes at the given instant, regardless of any ACL.
func (s *Secret) Inert(now time.Time) bool {
	return s.Revoked || !now.UTC().Before(s.ExpiresAt.UTC())
}
