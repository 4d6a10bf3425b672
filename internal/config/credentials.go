package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"studyhelper/internal/apperr"
)

// SecretStore is a read-only key/value source consulted before the environment.
type SecretStore interface {
	Lookup(key string) (string, bool)
}

// MapSecrets is an in-memory SecretStore.
type MapSecrets map[string]string

func (m MapSecrets) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// LoadSecrets parses a dotenv-style secrets file without touching the process
// environment. A missing file yields an empty store.
func LoadSecrets(path string) (MapSecrets, error) {
	if path == "" {
		return MapSecrets{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return MapSecrets{}, nil
		}
		return nil, fmt.Errorf("stat secrets %s: %w", path, err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read secrets %s: %w", path, err)
	}
	return MapSecrets(values), nil
}

// ResolveCredential returns the first non-empty value for key, checking the
// secret store before the process environment.
func ResolveCredential(store SecretStore, key string) (string, error) {
	if store != nil {
		if v, ok := store.Lookup(key); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, nil
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", key, apperr.ErrMissingCredential)
}

// LoadDotEnv loads ./.env into the process environment when present.
// Existing variables are never overridden.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
