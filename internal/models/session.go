package models

import "strings"

// PlaceholderName is the roster entry shipped with a fresh trip document. It
// is replaced by the first real identity that joins and must never survive a
// login reconciliation.
const PlaceholderName = "You"

// UserSession is the device-local identity. Exactly one exists per device; it
// is persisted locally and never synchronized (each device keeps its own).
type UserSession struct {
	// Name is the display name, which is also the participant join key.
	Name string `json:"name"`

	// Avatar is an optional binary image, base64-encoded in JSON. It stays on
	// the device; the shared roster stores names only.
	Avatar []byte `json:"avatar,omitempty"`
}

// WithoutAvatar returns a copy of the session with the avatar dropped. Used
// when a persist fails on payload size and is retried with the large binary
// field omitted.
func (s UserSession) WithoutAvatar() UserSession {
	return UserSession{Name: s.Name}
}

// NormalizeName trims surrounding whitespace from a roster name. An empty
// result means the name is unusable and the operation carrying it is rejected.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ContainsName reports whether roster holds name.
func ContainsName(roster []string, name string) bool {
	for _, n := range roster {
		if n == name {
			return true
		}
	}
	return false
}
