// Package storage provides the sinks that receive rewritten class files.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripclass/pkg/config"
)

// Storage stores output objects by key. For the local backend a key is a
// file path; for COS it is an object key.
type Storage interface {
	// Put stores data at key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the object stored at key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete deletes the object at the specified key.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns where the object for key lives.
	GetURL(key string) string
}

// StorageType names a sink backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// ParseStorageType parses a backend name. The empty name is local.
func ParseStorageType(s string) (StorageType, error) {
	switch t := StorageType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return StorageTypeLocal, nil
	case StorageTypeLocal, StorageTypeCOS:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported storage type: %s", s)
	}
}

// NewStorage builds the sink described by cfg.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	t, _ := ParseStorageType(cfg.Type)
	if t == StorageTypeLocal {
		return NewLocalStorage(cfg.LocalPath)
	}
	return NewCOSStorage(&COSConfig{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		SecretID:  cfg.SecretID,
		SecretKey: cfg.SecretKey,
		Domain:    cfg.Domain,
		Scheme:    cfg.Scheme,
		Prefix:    cfg.Prefix,
	})
}

// ValidateConfig checks that cfg names a known backend and, for COS, that
// every required setting is present. Local storage needs nothing.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("storage config is nil")
	}
	t, err := ParseStorageType(cfg.Type)
	if err != nil {
		return err
	}
	if t != StorageTypeCOS {
		return nil
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"bucket", cfg.Bucket},
		{"region", cfg.Region},
		{"secret_id", cfg.SecretID},
		{"secret_key", cfg.SecretKey},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("COS storage is missing %s", strings.Join(missing, ", "))
	}
	return nil
}
