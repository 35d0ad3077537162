package wallet

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etenda/etenda/internal/gateway"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

func testTx() *types.Transaction {
	to := common.HexToAddress("0x7e767A270111a8957FCc69ee3ea95bD0c9F67708")
	return types.NewTx(&types.LegacyTx{Nonce: 3, To: &to, Value: big.NewInt(0), Gas: 60_000, GasPrice: big.NewInt(1_000_000_000)})
}

func TestKeySigner(t *testing.T) {
	t.Parallel()

	key, err := GenerateKey()
	require.NoError(t, err)
	s := NewKeySigner(key)

	signed, err := s.SignTx(context.Background(), testTx(), big.NewInt(84532))
	require.NoError(t, err)
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(84532)), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Account(), from)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.SignTx(ctx, testTx(), big.NewInt(84532))
	require.ErrorIs(t, err, gateway.ErrSignerRejected)
}

func TestPromptSigner(t *testing.T) {
	t.Parallel()

	key, err := GenerateKey()
	require.NoError(t, err)

	tests := []struct {
		answer   string
		rejected bool
	}{
		{"y\n", false},
		{"YES\n", false},
		{"n\n", true},
		{"\n", true},
		{"", true},
	}
	for _, tc := range tests {
		out := &bytes.Buffer{}
		p := &PromptSigner{
			Inner:    NewKeySigner(key),
			In:       strings.NewReader(tc.answer),
			Out:      out,
			Describe: func(*types.Transaction) string { return "closeTender on tender 4" },
		}
		_, err := p.SignTx(context.Background(), testTx(), big.NewInt(84532))
		if tc.rejected {
			require.ErrorIs(t, err, gateway.ErrSignerRejected, "answer %q", tc.answer)
		} else {
			require.NoError(t, err, "answer %q", tc.answer)
		}
		assert.Contains(t, out.String(), "closeTender on tender 4")
		assert.Contains(t, out.String(), "Proceed? [y/N]")
		assert.Equal(t, p.Account(), NewKeySigner(key).Account())
	}
}

func TestStoredSigner(t *testing.T) {
	t.Parallel()

	ks := NewKeyStore(filepath.Join(t.TempDir(), "keys"))
	key, err := GenerateKey()
	require.NoError(t, err)
	_, err = ks.Save("main", key, KeyInfo{Source: SourceGenerated}, "hunter2")
	require.NoError(t, err)

	asked := 0
	s, err := NewStoredSigner(ks, "main", func() ([]byte, error) {
		asked++
		return []byte("hunter2"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, NewKeySigner(key).Account(), s.Account())
	assert.Equal(t, 0, asked, "address is known without decrypting")

	for i := 0; i < 2; i++ {
		signed, err := s.SignTx(context.Background(), testTx(), big.NewInt(84532))
		require.NoError(t, err)
		from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(84532)), signed)
		require.NoError(t, err)
		assert.Equal(t, s.Account(), from)
	}
	assert.Equal(t, 1, asked)
}

func TestStoredSigner_Failures(t *testing.T) {
	t.Parallel()

	ks := NewKeyStore(filepath.Join(t.TempDir(), "keys"))
	_, err := NewStoredSigner(ks, "missing", nil)
	require.ErrorIs(t, err, etendaerr.ErrKeyNotFound)

	key, err := GenerateKey()
	require.NoError(t, err)
	_, err = ks.Save("main", key, KeyInfo{}, "hunter2")
	require.NoError(t, err)

	wrong, err := NewStoredSigner(ks, "main", func() ([]byte, error) { return []byte("nope"), nil })
	require.NoError(t, err)
	_, err = wrong.SignTx(context.Background(), testTx(), big.NewInt(84532))
	require.ErrorIs(t, err, etendaerr.ErrDecryptionFailed)

	aborted, err := NewStoredSigner(ks, "main", func() ([]byte, error) { return nil, errors.New("no tty") })
	require.NoError(t, err)
	_, err = aborted.SignTx(context.Background(), testTx(), big.NewInt(84532))
	require.ErrorIs(t, err, gateway.ErrSignerRejected)
}
