package wallet

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/ethereum/go-ethereum/crypto"

	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// privateKeyLen is the size of a raw secp256k1 scalar.
const privateKeyLen = 32

// errKeyLength rejects payloads that decrypt to anything but one scalar.
var errKeyLength = errors.New("sealed payload is not a 32-byte private key")

// seal encrypts key for password with age's scrypt recipient.
func seal(key *ecdsa.PrivateKey, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, err
	}
	raw := crypto.FromECDSA(key)
	defer ZeroBytes(raw)

	var out bytes.Buffer
	w, err := age.Encrypt(&out, recipient)
	if err != nil {
		return nil, err
	}
	if _, err = w.Write(raw); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// unseal reverses seal. The plaintext scalar is read into a locked buffer
// that is wiped before unseal returns.
func unseal(sealed []byte, password string) (*ecdsa.PrivateKey, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, etendaerr.WithCause(etendaerr.ErrDecryptionFailed, err)
	}
	r, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		return nil, etendaerr.WithCause(etendaerr.ErrDecryptionFailed, err)
	}

	buf := make([]byte, privateKeyLen+1)
	unlock := lockMemory(buf)
	defer func() {
		ZeroBytes(buf)
		unlock()
	}()

	if _, err = io.ReadFull(r, buf[:privateKeyLen]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			err = errKeyLength
		}
		return nil, etendaerr.WithCause(etendaerr.ErrDecryptionFailed, err)
	}
	// anything after the scalar means this is not a key file we wrote
	if _, err = io.ReadFull(r, buf[privateKeyLen:]); !errors.Is(err, io.EOF) {
		return nil, etendaerr.WithCause(etendaerr.ErrDecryptionFailed, errKeyLength)
	}

	key, err := crypto.ToECDSA(buf[:privateKeyLen])
	if err != nil {
		return nil, fmt.Errorf("parsing stored key: %w", err)
	}
	return key, nil
}
