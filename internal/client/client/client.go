// Package client talks to a Matrix homeserver's authentication endpoints:
// password and token login, interactive-auth registration, and profile
// lookups. It is the only layer that knows the wire format.
package client

import (
	"context"

	"github.com/okatkov/mxkeeper/internal/client/models"
)

// Matrix login and identifier types used on the wire.
const (
	LoginTypePassword = "m.login.password"
	LoginTypeToken    = "m.login.token"
	LoginTypeDummy    = "m.login.dummy"
	IdentifierUser    = "m.id.user"
)

// Profile response keys. The profile endpoint returns a loosely-typed JSON
// map; these are the well-known keys.
const (
	ProfileDisplayNameKey = "displayname"
	ProfileAvatarURLKey   = "avatar_url"
)

// AuthClient issues authentication calls against one homeserver. The
// homeserver is fixed at construction; callers needing another homeserver
// construct another client via a Factory.
type AuthClient interface {
	// LoginByPassword authenticates with username and password. deviceID may
	// be empty, letting the server assign one. Wrong credentials surface as a
	// *common.ServerError (403); transport failures wrap ErrUnavailable.
	LoginByPassword(ctx context.Context, username, password, deviceID string) (*models.Credentials, error)

	// LoginByToken authenticates with a cached login token, avoiding
	// re-sending a plaintext password. Same failure modes as LoginByPassword.
	LoginByToken(ctx context.Context, token string) (*models.Credentials, error)

	// Register creates a new account. Registration is multi-step: the first
	// attempt uses the caller-supplied params; on a flow-required response the
	// call is resubmitted with only a dummy-stage auth parameter bound to the
	// server-issued session id. Any other error is fatal.
	Register(ctx context.Context, params models.RegistrationParams) (*models.Credentials, error)

	// GetProfile fetches the public profile of a user as a loose JSON map.
	GetProfile(ctx context.Context, userID string) (map[string]any, error)
}

// Factory builds an AuthClient bound to the given homeserver config.
// Passing the config explicitly per construction keeps concurrent
// multi-homeserver operations from interfering with each other.
type Factory func(cfg models.HomeServerConfig) AuthClient
