package services

import (
	"context"
	"fmt"

	"github.com/okatkov/mxkeeper/internal/client/repositories/settings"
	"github.com/okatkov/mxkeeper/internal/common"
)

const sealKeySize = 32

// EnsureSealKey loads the device-local key used to seal account secrets at
// rest, generating and persisting a fresh one on first start. The key never
// leaves this device.
func EnsureSealKey(ctx context.Context, repo settings.Repository) ([]byte, error) {
	key, err := repo.Get(ctx, settings.KeyLocalSealKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load seal key: %w", err)
	}
	if len(key) == sealKeySize {
		return key, nil
	}
	if key != nil {
		return nil, fmt.Errorf("stored seal key has wrong size %d: %w", len(key), common.ErrorInternal)
	}

	key = common.GenerateRandByteArray(sealKeySize)
	if err := repo.Set(ctx, settings.KeyLocalSealKey, key); err != nil {
		return nil, fmt.Errorf("failed to store seal key: %w", err)
	}
	return key, nil
}
