package main

import (
	"fmt"

	"github.com/vaultwatch/vaultwatch/internal/backup"
	"github.com/vaultwatch/vaultwatch/internal/catalog"
	"github.com/vaultwatch/vaultwatch/internal/config"
	"github.com/vaultwatch/vaultwatch/internal/crypto"
	"github.com/vaultwatch/vaultwatch/internal/notify"
	"github.com/vaultwatch/vaultwatch/internal/objectstore"
)

// openCatalog and buildPipeline are shared between the daemon and the
// one-shot CLI commands (restore, versions) so both talk to the same
// catalog schema and object-store wiring.

func openCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat, err := catalog.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return cat, nil
}

func buildStore(cfg *config.Config) (objectstore.Store, error) {
	store, err := objectstore.NewAzureStore(cfg.Azure.ConnectionString, cfg.Azure.ContainerName)
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}
	return objectstore.RateLimited(store, cfg.Backup.UploadLimitKBPerS), nil
}

func buildPipeline(cfg *config.Config, cat *catalog.Catalog, store objectstore.Store) *backup.Pipeline {
	sealer := crypto.NewSealer(cfg.Backup.EncryptionKey, cfg.Backup.KeyDerivationIter)

	var notifier *notify.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.New(notify.Config{
			WebhookURL: cfg.Notify.WebhookURL,
			OnSuccess:  cfg.Notify.OnSuccess,
			OnFailure:  cfg.Notify.OnFailure,
			OnCleanup:  cfg.Notify.OnCleanup,
		}, cfg.Device.ID)
	}

	return &backup.Pipeline{
		Catalog:          cat,
		Store:            store,
		Sealer:           sealer,
		DeviceID:         cfg.Device.ID,
		CompressionLevel: cfg.Backup.CompressionLevel,
		RetryAttempts:    cfg.Backup.RetryAttempts,
		Notifier:         notifier,
	}
}
