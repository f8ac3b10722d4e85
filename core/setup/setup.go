// Package setup tracks whether the system has been installed.
package setup

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
)

// InstalledKey is the key-value entry holding the installed flag.
const InstalledKey = "educonnect_installed"

// KVStore is a get/set key-value store.
type KVStore interface {
	// Get returns the value stored at key. ok is false if key is not set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type Service struct {
	store KVStore
}

func NewService(store KVStore) *Service {
	return &Service{store: store}
}

// IsInstalled reports whether the installation has been completed.
func (svc *Service) IsInstalled(ctx context.Context) (bool, error) {
	val, ok, err := svc.store.Get(ctx, InstalledKey)
	if err != nil {
		return false, errors.Wrap(err, "getting installed flag")
	}
	if !ok {
		return false, nil
	}
	installed, err := strconv.ParseBool(val)
	if err != nil {
		return false, nil // garbage: not installed
	}
	return installed, nil
}

// MarkInstalled records that the installation has been completed. It is idempotent.
func (svc *Service) MarkInstalled(ctx context.Context) error {
	if err := svc.store.Set(ctx, InstalledKey, "true"); err != nil {
		return errors.Wrap(err, "setting installed flag")
	}
	return nil
}
