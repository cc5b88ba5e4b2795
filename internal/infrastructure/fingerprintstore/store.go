// Package fingerprintstore persists the fingerprints of registered passphrases.
package fingerprintstore

import (
	"context"
	"fmt"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/infrastructure/configloader"
)

// New returns the store selected by cfg.Driver and a close func.
func New(ctx context.Context, cfg configloader.FingerprintConfig, log port.Logger) (port.FingerprintStore, func(context.Context) error, error) {
	switch cfg.Driver {
	case "", "memory":
		log.Info("Using in-memory fingerprint store")
		return NewMemoryStore(), func(context.Context) error { return nil }, nil
	case "mongo":
		s, err := NewMongoStore(ctx, cfg.URI, cfg.Database, cfg.Collection)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using mongo fingerprint store", "database", cfg.Database, "collection", cfg.Collection)
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown fingerprint store driver %q", cfg.Driver)
	}
}
