package wallet

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	etendaerr "github.com/etenda/etenda/pkg/errors"
)

const abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestNewMnemonic(t *testing.T) {
	t.Parallel()

	for _, n := range MnemonicLengths {
		m, err := NewMnemonic(n)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(m), n)
		require.NoError(t, CheckMnemonic(m))
	}

	for _, n := range []int{0, 13, 27} {
		_, err := NewMnemonic(n)
		require.ErrorIs(t, err, etendaerr.ErrInvalidInput, n)
	}
}

func TestCleanMnemonic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"plain", abandonMnemonic},
		{"numbered", "1. abandon\n2. abandon\n3. abandon\n4. abandon\n5. abandon\n6. abandon\n7) abandon\n8) abandon\n9: abandon\n10: abandon\n11.abandon\n12.about"},
		{"bullets", "- abandon\n- abandon\n- abandon\n* abandon\n* abandon\n* abandon\n• abandon\n•abandon\n-abandon\n- abandon\n- abandon\n- about"},
		{"commas and caps", strings.ReplaceAll(strings.ToUpper(abandonMnemonic), " ", ", ")},
		{"ragged whitespace", "  abandon\tabandon  abandon abandon\n\nabandon abandon abandon abandon abandon abandon abandon about \n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, abandonMnemonic, CleanMnemonic(tc.input))
		})
	}
}

func TestCheckMnemonic(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckMnemonic(abandonMnemonic))

	for name, input := range map[string]string{
		"bad checksum": strings.Replace(abandonMnemonic, "about", "abandon", 1),
		"wrong count":  "abandon about",
		"empty":        "",
	} {
		require.ErrorIs(t, CheckMnemonic(input), etendaerr.ErrInvalidMnemonic, name)
	}
}

func TestCheckMnemonic_SuggestsCorrections(t *testing.T) {
	t.Parallel()

	phrase := strings.Replace(abandonMnemonic, "about", "abuot", 1)
	phrase = strings.Replace(phrase, "abandon", "qqqqqqqqqq", 1)
	err := CheckMnemonic(phrase)

	var ee *etendaerr.EtendaError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t,
		"word 1 \"qqqqqqqqqq\" is not in the BIP39 word list\nword 12 \"abuot\": did you mean \"about\"?",
		ee.Suggestion)
}

func TestClosestWord(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abandon", closestWord("abandn"))
	assert.Equal(t, "zoo", closestWord("ZOO"))
	assert.Empty(t, closestWord("qqqqqqqqqq"))
}

func TestMnemonicSeed_Vector(t *testing.T) {
	t.Parallel()

	seed, err := MnemonicSeed(" "+strings.ToUpper(abandonMnemonic)+"\n", "TREZOR")
	require.NoError(t, err)
	assert.Equal(t,
		"c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04",
		hex.EncodeToString(seed))
}

func TestDeriveKey_KnownAddress(t *testing.T) {
	t.Parallel()

	key, err := DeriveKey(abandonMnemonic, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", NewKeySigner(key).Account().Hex())

	other, err := DeriveKey(abandonMnemonic, "", 1)
	require.NoError(t, err)
	assert.NotEqual(t, NewKeySigner(key).Account(), NewKeySigner(other).Account())
	assert.Equal(t, "m/44'/60'/0'/0/1", DerivationPath(1))

	_, err = DeriveKey("not a mnemonic", "", 0)
	require.Error(t, err)
}
