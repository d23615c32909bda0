// Package models defines the domain objects shared by the client layers:
// locally stored accounts, display projections, and login credentials.
package models

import "strings"

// LocalAccount is a persisted record of one Matrix identity previously added
// to this device. Exactly one record exists per UserID.
//
// An account must keep at least one viable re-authentication path: either
// Token is set, or both Username and Password are set.
type LocalAccount struct {
	UserID        string // primary key, "@name:homeserver"
	HomeServerURL string
	Username      string // only for password-based accounts
	Password      string
	Token         string // cached access token
	DeviceID      string
	RefreshToken  string
	IsNew         bool // account has not completed its first sync yet
	UnreadCount   int  // cached, not authoritative
}

// CanReAuth reports whether the account still has a usable
// re-authentication path.
func (a *LocalAccount) CanReAuth() bool {
	return a.Token != "" || (a.Username != "" && a.Password != "")
}

// AccountItem is a display-only projection of a LocalAccount combined with a
// remote profile fetch. It is derived per request and never persisted.
// An empty AvatarURL means no avatar is known.
type AccountItem struct {
	UserID      string
	DisplayName string
	AvatarURL   string
	UnreadCount int
}

// LocalPart extracts the localpart of a Matrix user id:
// "@alice:example.org" -> "alice". Malformed ids are returned stripped of
// the leading '@' only.
func LocalPart(userID string) string {
	s := strings.TrimPrefix(userID, "@")
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}
