package services

import (
	"context"
	"fmt"

	"github.com/okatkov/mxkeeper/internal/client/repositories/settings"
	"github.com/okatkov/mxkeeper/internal/common"
)

// Connection types selecting how the client reaches homeservers.
const (
	ConnectionTypeDirect = "direct"
	ConnectionTypeOnion  = "onion"
	ConnectionTypeI2P    = "i2p"
)

// GetConnectionType returns the stored connection type, defaulting to
// direct when none has been chosen yet.
func GetConnectionType(ctx context.Context, repo settings.Repository) (string, error) {
	v, err := repo.Get(ctx, settings.KeyConnectionType)
	if err != nil {
		return "", fmt.Errorf("failed to load connection type: %w", err)
	}
	if v == nil {
		return ConnectionTypeDirect, nil
	}
	return string(v), nil
}

// SetConnectionType validates and persists the connection type.
func SetConnectionType(ctx context.Context, repo settings.Repository, value string) error {
	switch value {
	case ConnectionTypeDirect, ConnectionTypeOnion, ConnectionTypeI2P:
	default:
		return fmt.Errorf("unknown connection type %q: %w", value, common.ErrorValidation)
	}
	if err := repo.Set(ctx, settings.KeyConnectionType, []byte(value)); err != nil {
		return fmt.Errorf("failed to store connection type: %w", err)
	}
	return nil
}
