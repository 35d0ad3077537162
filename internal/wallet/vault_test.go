package wallet

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// The keyring mock is process-wide, so these tests do not run in parallel.

func TestVault(t *testing.T) {
	keyring.MockInit()
	v := NewVault()
	account := common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")

	_, ok := v.Password(account)
	assert.False(t, ok)
	require.NoError(t, v.Forget(account), "forgetting nothing is fine")

	require.NoError(t, v.Remember(account, []byte("hunter22")))
	pw, ok := v.Password(account)
	require.True(t, ok)
	assert.Equal(t, "hunter22", string(pw))

	require.NoError(t, v.Forget(account))
	_, ok = v.Password(account)
	assert.False(t, ok)
}

func TestVault_UnavailableKeychain(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Cleanup(keyring.MockInit)
	v := NewVault()
	account := common.HexToAddress("0x01")

	_, ok := v.Password(account)
	assert.False(t, ok)
	require.Error(t, v.Remember(account, []byte("pw")))
	require.Error(t, v.Forget(account))
}

func TestStoredSigner_RemembersPassword(t *testing.T) {
	keyring.MockInit()
	ks := NewKeyStore(filepath.Join(t.TempDir(), "keys"))
	key, err := GenerateKey()
	require.NoError(t, err)
	_, err = ks.Save("main", key, KeyInfo{}, "hunter22")
	require.NoError(t, err)

	asked := 0
	prompt := func() ([]byte, error) {
		asked++
		return []byte("hunter22"), nil
	}
	sign := func() {
		t.Helper()
		s, err := NewStoredSigner(ks, "main", prompt, RememberIn(NewVault()))
		require.NoError(t, err)
		_, err = s.SignTx(context.Background(), testTx(), big.NewInt(84532))
		require.NoError(t, err)
	}

	sign()
	sign()
	assert.Equal(t, 1, asked, "second unlock uses the keychain")
}

func TestStoredSigner_StaleVaultEntry(t *testing.T) {
	keyring.MockInit()
	ks := NewKeyStore(filepath.Join(t.TempDir(), "keys"))
	key, err := GenerateKey()
	require.NoError(t, err)
	info, err := ks.Save("main", key, KeyInfo{}, "hunter22")
	require.NoError(t, err)

	v := NewVault()
	require.NoError(t, v.Remember(info.Address, []byte("old password")))

	asked := 0
	s, err := NewStoredSigner(ks, "main", func() ([]byte, error) {
		asked++
		return []byte("hunter22"), nil
	}, RememberIn(v))
	require.NoError(t, err)
	_, err = s.SignTx(context.Background(), testTx(), big.NewInt(84532))
	require.NoError(t, err)
	assert.Equal(t, 1, asked)

	pw, ok := v.Password(info.Address)
	require.True(t, ok)
	assert.Equal(t, "hunter22", string(pw), "replaced by the password that worked")
}
