package secret

import (
	"errors"

	"lightsync/internal/errs"

	"github.com/zalando/go-keyring"
)

const service = "lightsync"

// Store hands out WebDAV passwords keyed by server ID. Plaintext never
// reaches logs or the database.
type Store interface {
	GetPassword(serverID string) (string, error)
	SetPassword(serverID, password string) error
	DeletePassword(serverID string) error
}

// Keyring stores passwords in the operating system keychain.
type Keyring struct{}

func NewKeyring() *Keyring {
	return &Keyring{}
}

func (k *Keyring) GetPassword(serverID string) (string, error) {
	pw, err := keyring.Get(service, serverID)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", errs.Newf(errs.KindAuth, "no password stored for server %s", serverID)
	}
	if err != nil {
		return "", errs.Wrap(errs.KindAuth, "keyring read failed", err)
	}

	return pw, nil
}

func (k *Keyring) SetPassword(serverID, password string) error {
	return errs.Wrap(errs.KindAuth, "keyring write failed", keyring.Set(service, serverID, password))
}

func (k *Keyring) DeletePassword(serverID string) error {
	err := keyring.Delete(service, serverID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}

	return errs.Wrap(errs.KindAuth, "keyring delete failed", err)
}

// Static is a fixed-password store for tests.
type Static map[string]string

func (s Static) GetPassword(serverID string) (string, error) {
	pw, ok := s[serverID]
	if !ok {
		return "", errs.Newf(errs.KindAuth, "no password stored for server %s", serverID)
	}
	return pw, nil
}

func (s Static) SetPassword(serverID, password string) error {
	s[serverID] = password
	return nil
}

func (s Static) DeletePassword(serverID string) error {
	delete(s, serverID)
	return nil
}
