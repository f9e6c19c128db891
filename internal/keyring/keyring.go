// Package keyring stores catalog passphrases in the OS keyring.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "sealfile"

// ErrNotFound is returned when no passphrase is stored for a catalog
var ErrNotFound = keyring.ErrNotFound

// SavePassword stores a passphrase in the OS keyring
func SavePassword(catalogID string, password string) error {
	return keyring.Set(serviceName, catalogID, password)
}

// GetPassword retrieves a passphrase from the OS keyring
func GetPassword(catalogID string) (string, error) {
	return keyring.Get(serviceName, catalogID)
}

// DeletePassword removes a passphrase from the OS keyring
func DeletePassword(catalogID string) error {
	err := keyring.Delete(serviceName, catalogID)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// HasPassword checks if a passphrase is stored in the keyring
func HasPassword(catalogID string) bool {
	_, err := keyring.Get(serviceName, catalogID)
	return err == nil
}
