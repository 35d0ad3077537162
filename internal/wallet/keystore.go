package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mrz1836/go-sanitize"

	"github.com/etenda/etenda/internal/fileutil"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

const (
	keyFileExtension   = ".key"
	keyFilePermissions = 0o600
	keyDirPermissions  = 0o700
)

// Key sources recorded in key files.
const (
	SourceGenerated = "generated"
	SourceImported  = "imported"
	SourceMnemonic  = "mnemonic"
)

//nolint:gochecknoglobals // compiled once
var keyNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ErrInvalidKeyName indicates a key name outside [a-zA-Z0-9_-]{1,64}.
var ErrInvalidKeyName = etendaerr.WithSuggestion(etendaerr.ErrInvalidInput,
	"key name must be 1-64 alphanumeric characters, underscores, or hyphens")

// KeyInfo is the public metadata of a stored key.
type KeyInfo struct {
	Name      string         `json:"name"`
	Address   common.Address `json:"address"`
	Source    string         `json:"source"`
	Path      string         `json:"path,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type keyFile struct {
	KeyInfo
	EncryptedKey []byte `json:"encrypted_key"`
}

// KeyStore keeps age-encrypted signing keys, one file per key.
type KeyStore struct {
	dir string
}

// NewKeyStore returns a store rooted at dir (usually ~/.etenda/keys).
func NewKeyStore(dir string) *KeyStore {
	return &KeyStore{dir: dir}
}

// ValidateKeyName checks that name is safe to use as a file name.
func ValidateKeyName(name string) error {
	if !keyNameRegex.MatchString(name) {
		return ErrInvalidKeyName
	}
	return nil
}

// SuggestKeyName sanitizes an invalid name into a usable one, or "".
func SuggestKeyName(name string) string {
	s := sanitize.PathName(name)
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}

// Save encrypts key under password and writes it as name.
func (s *KeyStore) Save(name string, key *ecdsa.PrivateKey, info KeyInfo, password string) (*KeyInfo, error) {
	if err := ValidateKeyName(name); err != nil {
		if suggestion := SuggestKeyName(name); suggestion != "" {
			return nil, etendaerr.WithSuggestion(err, fmt.Sprintf("try '%s'", suggestion))
		}
		return nil, err
	}
	exists, err := s.Exists(name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, etendaerr.WithDetails(etendaerr.ErrKeyExists, map[string]string{"name": name})
	}
	if err := os.MkdirAll(s.dir, keyDirPermissions); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}

	sealed, err := seal(key, password)
	if err != nil {
		return nil, fmt.Errorf("encrypting key: %w", err)
	}

	info.Name = name
	info.Address = crypto.PubkeyToAddress(key.PublicKey)
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(keyFile{KeyInfo: info, EncryptedKey: sealed}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling key file: %w", err)
	}
	if err := fileutil.CreateAtomic(s.path(name), data, keyFilePermissions); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, etendaerr.WithDetails(etendaerr.ErrKeyExists, map[string]string{"name": name})
		}
		return nil, fmt.Errorf("writing key file: %w", err)
	}
	return &info, nil
}

// Load decrypts the key stored as name.
func (s *KeyStore) Load(name, password string) (*ecdsa.PrivateKey, error) {
	kf, err := s.read(name)
	if err != nil {
		return nil, err
	}
	key, err := unseal(kf.EncryptedKey, password)
	if err != nil {
		return nil, err
	}
	if crypto.PubkeyToAddress(key.PublicKey) != kf.Address {
		return nil, etendaerr.WithDetails(etendaerr.ErrDecryptionFailed, map[string]string{
			"reason": "stored address does not match key",
		})
	}
	return key, nil
}

// Info returns the metadata of name without decrypting it.
func (s *KeyStore) Info(name string) (*KeyInfo, error) {
	kf, err := s.read(name)
	if err != nil {
		return nil, err
	}
	return &kf.KeyInfo, nil
}

// Exists reports whether name is stored.
func (s *KeyStore) Exists(name string) (bool, error) {
	if err := ValidateKeyName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// List returns stored key names, sorted.
func (s *KeyStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading key directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), keyFileExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), keyFileExtension))
	}
	sort.Strings(names)
	return names, nil
}

func (s *KeyStore) read(name string) (*keyFile, error) {
	if err := ValidateKeyName(name); err != nil {
		return nil, err
	}
	//nolint:gosec // G304: name validated by ValidateKeyName
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, etendaerr.WithSuggestion(
			etendaerr.WithDetails(etendaerr.ErrKeyNotFound, map[string]string{"name": name}),
			"create one with 'etenda key new' or 'etenda key import'")
	}
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parsing key file: %w", err)
	}
	return &kf, nil
}

func (s *KeyStore) path(name string) string {
	return filepath.Join(s.dir, name+keyFileExtension)
}

// GenerateKey returns a fresh random key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// ParsePrivateKey parses a hex private key, with or without 0x.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, etendaerr.WithSuggestion(etendaerr.WithCause(etendaerr.ErrInvalidInput, err),
			"private key must be 64 hex characters")
	}
	return key, nil
}
