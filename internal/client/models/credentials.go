package models

import "time"

// Credentials is the ephemeral result of a successful login or registration.
// It is consumed immediately by the session factory; only the token fields
// propagate into a LocalAccount.
type Credentials struct {
	UserID       string
	DeviceID     string
	HomeServer   string
	AccessToken  string
	RefreshToken string
}

// HomeServerConfig carries per-call connection settings for a homeserver.
// It is passed explicitly into every remote auth call; there is no
// process-wide current-homeserver state.
type HomeServerConfig struct {
	URL     string
	Timeout time.Duration // zero means the client default
}

// LoginType records how a session was obtained.
type LoginType string

const (
	LoginTypeDirect   LoginType = "direct"
	LoginTypePassword LoginType = "password"
	LoginTypeToken    LoginType = "token"
)

// AuthParams is the interactive-auth stage parameter sent on a registration
// retry. On a dummy-stage retry it carries exactly the stage type and the
// server-issued session id, nothing else.
type AuthParams struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
}

// RegistrationParams are the caller-supplied parameters for registering a
// new account.
type RegistrationParams struct {
	Username                 string      `json:"username,omitempty"`
	Password                 string      `json:"password,omitempty"`
	DeviceID                 string      `json:"device_id,omitempty"`
	InitialDeviceDisplayName string      `json:"initial_device_display_name,omitempty"`
	Auth                     *AuthParams `json:"auth,omitempty"`
}
