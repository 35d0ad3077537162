package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
)

// DerivationPath returns the BIP44 path used for account index.
func DerivationPath(index uint32) string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", index)
}

// DeriveKey derives the secp256k1 key at m/44'/60'/0'/0/index.
func DeriveKey(mnemonic, passphrase string, index uint32) (*ecdsa.PrivateKey, error) {
	seed, err := MnemonicSeed(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(seed)

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}

	path := []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + 60,
		bip32.FirstHardenedChild,
		0,
		index,
	}
	k := master
	for _, child := range path {
		if k, err = k.NewChildKey(child); err != nil {
			return nil, fmt.Errorf("deriving %s: %w", DerivationPath(index), err)
		}
	}

	key, err := crypto.ToECDSA(k.Key)
	ZeroBytes(k.Key)
	if err != nil {
		return nil, fmt.Errorf("converting derived key: %w", err)
	}
	return key, nil
}

// ZeroBytes overwrites b with zeros.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
