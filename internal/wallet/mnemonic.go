// Package wallet provides the local signing keys used to authorise ledger
// writes: BIP39 mnemonics, BIP32 derivation, age-encrypted key files and
// terminal signers.
package wallet

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// maxTypoDistance is the largest edit distance offered as a correction.
const maxTypoDistance = 2

// MnemonicLengths are the phrase lengths BIP39 defines.
//
//nolint:gochecknoglobals // fixed table
var MnemonicLengths = []int{12, 15, 18, 21, 24}

// ErrInvalidWordCount rejects a requested phrase length outside MnemonicLengths.
var ErrInvalidWordCount = etendaerr.WithSuggestion(etendaerr.ErrInvalidInput,
	"word count must be 12, 15, 18, 21 or 24")

//nolint:gochecknoglobals // built on first use
var wordIndex = sync.OnceValue(func() map[string]struct{} {
	list := bip39.GetWordList()
	idx := make(map[string]struct{}, len(list))
	for _, w := range list {
		idx[w] = struct{}{}
	}
	return idx
})

// NewMnemonic returns a fresh English phrase of the given length.
func NewMnemonic(words int) (string, error) {
	if !slices.Contains(MnemonicLengths, words) {
		return "", ErrInvalidWordCount
	}
	entropy, err := bip39.NewEntropy(words / 3 * 32)
	if err != nil {
		return "", err
	}
	defer ZeroBytes(entropy)
	return bip39.NewMnemonic(entropy)
}

// CleanMnemonic normalizes a pasted phrase: lowercase, commas dropped,
// list markers such as "3." or "-" removed, single spaces between words.
func CleanMnemonic(input string) string {
	fields := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	words := fields[:0]
	for _, f := range fields {
		if f = trimListNumber(strings.TrimLeft(f, "-*•")); f != "" {
			words = append(words, f)
		}
	}
	return strings.Join(words, " ")
}

func trimListNumber(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && strings.IndexByte(".):", s[i]) >= 0 {
		return s[i+1:]
	}
	return s
}

// CheckMnemonic validates length, words and checksum of a cleaned phrase.
// Misspelled words come back as suggestions on the error.
func CheckMnemonic(mnemonic string) error {
	words := strings.Fields(mnemonic)
	if !slices.Contains(MnemonicLengths, len(words)) {
		return etendaerr.WithDetails(etendaerr.ErrInvalidMnemonic, map[string]string{
			"words": strconv.Itoa(len(words)),
		})
	}
	if typos := misspellings(words); len(typos) > 0 {
		return etendaerr.WithSuggestion(etendaerr.ErrInvalidMnemonic, strings.Join(typos, "\n"))
	}
	if _, err := bip39.MnemonicToByteArray(strings.Join(words, " ")); err != nil {
		return etendaerr.WithDetails(etendaerr.ErrInvalidMnemonic, map[string]string{"reason": "checksum mismatch"})
	}
	return nil
}

// MnemonicSeed checks mnemonic and stretches it into the 64-byte BIP39
// seed. The caller zeroes the seed.
func MnemonicSeed(mnemonic, passphrase string) ([]byte, error) {
	mnemonic = CleanMnemonic(mnemonic)
	if err := CheckMnemonic(mnemonic); err != nil {
		return nil, err
	}
	return bip39.NewSeed(mnemonic, passphrase), nil
}

// misspellings describes each word that is not in the list, 1-indexed.
func misspellings(words []string) []string {
	var out []string
	for i, w := range words {
		if _, ok := wordIndex()[w]; ok {
			continue
		}
		if guess := closestWord(w); guess != "" {
			out = append(out, fmt.Sprintf("word %d %q: did you mean %q?", i+1, w, guess))
		} else {
			out = append(out, fmt.Sprintf("word %d %q is not in the BIP39 word list", i+1, w))
		}
	}
	return out
}

// closestWord returns the nearest list word within maxTypoDistance, or "".
// Ties go to the word that sorts first.
func closestWord(w string) string {
	w = strings.ToLower(w)
	if _, ok := wordIndex()[w]; ok {
		return w
	}
	best, bestDist := "", maxTypoDistance+1
	for _, cand := range bip39.GetWordList() {
		if d := levenshtein.ComputeDistance(w, cand); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}
