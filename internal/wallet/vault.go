package wallet

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zalando/go-keyring"
)

// vaultService namespaces etenda entries in the OS keychain.
const vaultService = "etenda"

// Vault remembers key passwords in the OS keychain (Keychain, Secret
// Service or Credential Manager). Entries are keyed by address, so the same
// key imported under two homes shares one entry.
type Vault struct {
	service string
}

// NewVault returns a vault over the OS keychain.
func NewVault() *Vault {
	return &Vault{service: vaultService}
}

// Password returns the remembered password for account. A keychain that is
// missing or locked counts as a miss.
func (v *Vault) Password(account common.Address) ([]byte, bool) {
	pw, err := keyring.Get(v.service, account.Hex())
	if err != nil || pw == "" {
		return nil, false
	}
	return []byte(pw), true
}

// Remember stores password for account, replacing any earlier entry.
func (v *Vault) Remember(account common.Address, password []byte) error {
	if err := keyring.Set(v.service, account.Hex(), string(password)); err != nil {
		return fmt.Errorf("storing password in keychain: %w", err)
	}
	return nil
}

// Forget removes the entry for account. Forgetting an unknown account is
// not an error.
func (v *Vault) Forget(account common.Address) error {
	err := keyring.Delete(v.service, account.Hex())
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("removing password from keychain: %w", err)
}
