package cli

import (
	"crypto/ecdsa"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/etenda/etenda/internal/config"
	"github.com/etenda/etenda/internal/output"
	"github.com/etenda/etenda/internal/wallet"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var (
	keyUseMnemonic bool
	keyWords       int
	keyIndex       uint32
	keyNoQR        bool
)

// keyCmd is the parent command for signing key management.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage signing keys",
	Long: `Manage the keys that sign ledger transactions.

Keys are stored encrypted with a password under ~/.etenda/keys. Select one with
--key, ETENDA_KEY, or signer.key in the configuration. Set ETENDA_KEY_PASSWORD
to unlock without a prompt, or enable signer.keychain to keep passwords in the
OS keychain after the first unlock.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new signing key",
	Long: `Create a new signing key. With --mnemonic a BIP39 phrase is generated and
shown once; the key is derived from it at m/44'/60'/0'/0/<index>.`,
	Example: `  etenda key new main
  etenda key new backup --mnemonic --words 24`,
	Args: cobra.ExactArgs(1),
	RunE: runKeyNew,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import a private key or mnemonic",
	Long: `Import a hex private key or a BIP39 mnemonic. The secret is read from the
terminal without echo, or from stdin when piped.`,
	Example: `  etenda key import main
  echo "$PRIVATE_KEY" | etenda key import ci`,
	Args: cobra.ExactArgs(1),
	RunE: runKeyImport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a key's address and a QR code to fund it",
	Long: `Show a key's address and an EIP-681 payment link. On a terminal wide enough
a QR code of the link is drawn so a phone wallet can fund the key. Without a
name the selected signing key is shown.`,
	Example: `  etenda key show main
  etenda key show --no-qr`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeKeyNames,
	RunE:              runKeyShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keys",
	Long:  `List stored keys with their addresses. The selected key is marked with *.`,
	Example: `  etenda key list`,
	Args:    cobra.NoArgs,
	RunE:    runKeyList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyForgetCmd = &cobra.Command{
	Use:   "forget <name>",
	Short: "Remove a key's password from the OS keychain",
	Long: `Remove the password remembered for a key from the OS keychain. The key file
itself is kept; the next write asks for the password again.`,
	Example:           `  etenda key forget main`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeKeyNames,
	RunE:              runKeyForget,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	keyNewCmd.Flags().BoolVar(&keyUseMnemonic, "mnemonic", false, "derive the key from a new BIP39 mnemonic")
	keyNewCmd.Flags().IntVar(&keyWords, "words", 12, "mnemonic length: 12, 15, 18, 21 or 24")
	keyNewCmd.Flags().Uint32Var(&keyIndex, "index", 0, "derivation index")
	keyImportCmd.Flags().Uint32Var(&keyIndex, "index", 0, "derivation index when importing a mnemonic")
	keyShowCmd.Flags().BoolVar(&keyNoQR, "no-qr", false, "do not draw the QR code")

	keyCmd.AddCommand(keyNewCmd, keyImportCmd, keyShowCmd, keyListCmd, keyForgetCmd)
	keyCmd.GroupID = groupKeys
	rootCmd.AddCommand(keyCmd)
}

type keyView struct {
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	Source     string    `json:"source"`
	Path       string    `json:"path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	PaymentURI string    `json:"payment_uri,omitempty"`
}

func newKeyView(info *wallet.KeyInfo) keyView {
	return keyView{
		Name:      info.Name,
		Address:   info.Address.Hex(),
		Source:    info.Source,
		Path:      info.Path,
		CreatedAt: info.CreatedAt,
	}
}

func runKeyNew(cmd *cobra.Command, args []string) error {
	name := args[0]
	store := wallet.NewKeyStore(cfg.KeysDir())
	if err := checkKeyAvailable(store, name); err != nil {
		return err
	}

	var (
		key      *ecdsa.PrivateKey
		info     = wallet.KeyInfo{Source: wallet.SourceGenerated}
		mnemonic string
		err      error
	)
	if keyUseMnemonic {
		if mnemonic, err = wallet.NewMnemonic(keyWords); err != nil {
			return err
		}
		if key, err = wallet.DeriveKey(mnemonic, "", keyIndex); err != nil {
			return err
		}
		info = wallet.KeyInfo{Source: wallet.SourceMnemonic, Path: wallet.DerivationPath(keyIndex)}
	} else if key, err = wallet.GenerateKey(); err != nil {
		return err
	}

	saved, err := saveKey(store, name, key, info)
	if err != nil {
		return err
	}

	if mnemonic != "" {
		w := cmd.ErrOrStderr()
		outln(w, "\nRecovery phrase (shown once, write it down):")
		outln(w)
		for i, word := range strings.Fields(mnemonic) {
			out(w, "  %2d. %s\n", i+1, word)
		}
		outln(w)
	}
	return displayKey(cmd, saved, false)
}

func runKeyImport(cmd *cobra.Command, args []string) error {
	name := args[0]
	store := wallet.NewKeyStore(cfg.KeysDir())
	if err := checkKeyAvailable(store, name); err != nil {
		return err
	}

	secret, err := promptSecretFn("Private key (hex) or mnemonic: ")
	if err != nil {
		return err
	}

	var (
		key  *ecdsa.PrivateKey
		info wallet.KeyInfo
	)
	if len(strings.Fields(secret)) > 1 {
		mnemonic := wallet.CleanMnemonic(secret)
		if err = wallet.CheckMnemonic(mnemonic); err != nil {
			return err
		}
		if key, err = wallet.DeriveKey(mnemonic, "", keyIndex); err != nil {
			return err
		}
		info = wallet.KeyInfo{Source: wallet.SourceMnemonic, Path: wallet.DerivationPath(keyIndex)}
	} else {
		if key, err = wallet.ParsePrivateKey(secret); err != nil {
			return err
		}
		info = wallet.KeyInfo{Source: wallet.SourceImported}
	}

	saved, err := saveKey(store, name, key, info)
	if err != nil {
		return err
	}
	return displayKey(cmd, saved, false)
}

func runKeyShow(cmd *cobra.Command, args []string) error {
	name := cfg.Signer.Key
	if len(args) == 1 {
		name = args[0]
	}
	if name == "" {
		return etendaerr.WithSuggestion(etendaerr.ErrInvalidInput, "name a key, or select one with --key")
	}
	info, err := wallet.NewKeyStore(cfg.KeysDir()).Info(name)
	if err != nil {
		return err
	}
	return displayKey(cmd, info, !keyNoQR)
}

func runKeyList(cmd *cobra.Command, _ []string) error {
	store := wallet.NewKeyStore(cfg.KeysDir())
	names, err := store.List()
	if err != nil {
		return err
	}

	views := make([]keyView, 0, len(names))
	for _, n := range names {
		info, err := store.Info(n)
		if err != nil {
			logger.Warn().Err(err).Str("key", n).Msg("skipping unreadable key file")
			continue
		}
		views = append(views, newKeyView(info))
	}

	if formatter.IsJSON() {
		return formatter.Print(views)
	}
	w := cmd.OutOrStdout()
	if len(views) == 0 {
		outln(w, "No keys found. Create one with 'etenda key new <name>'.")
		return nil
	}
	t := output.NewTable("", "NAME", "ADDRESS", "SOURCE", "CREATED")
	for _, v := range views {
		mark := ""
		if v.Name == cfg.Signer.Key {
			mark = "*"
		}
		t.AddRow(mark, v.Name, v.Address, v.Source, v.CreatedAt.Local().Format("2006-01-02"))
	}
	return t.Render(w)
}

func runKeyForget(cmd *cobra.Command, args []string) error {
	info, err := wallet.NewKeyStore(cfg.KeysDir()).Info(args[0])
	if err != nil {
		return err
	}
	if err := wallet.NewVault().Forget(info.Address); err != nil {
		return err
	}
	logger.Debug().Str("key", info.Name).Msg("keychain entry removed")

	if formatter.IsJSON() {
		return formatter.Print(map[string]string{"name": info.Name, "address": info.Address.Hex()})
	}
	out(cmd.OutOrStdout(), "Forgot the keychain password of %s (%s)\n", info.Name, info.Address.Hex())
	return nil
}

// checkKeyAvailable fails before any prompt when name is taken or invalid.
func checkKeyAvailable(store *wallet.KeyStore, name string) error {
	exists, err := store.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return etendaerr.WithDetails(etendaerr.ErrKeyExists, map[string]string{"name": name})
	}
	return nil
}

// saveKey encrypts key under a new password.
func saveKey(store *wallet.KeyStore, name string, key *ecdsa.PrivateKey, info wallet.KeyInfo) (*wallet.KeyInfo, error) {
	password, err := newKeyPassword()
	if err != nil {
		return nil, err
	}
	defer wallet.ZeroBytes(password)

	saved, err := store.Save(name, key, info, string(password))
	if err != nil {
		return nil, err
	}
	logger.Info().Str("key", name).Str("address", saved.Address.Hex()).Str("source", saved.Source).Msg("key saved")
	return saved, nil
}

// newKeyPassword takes the password from the environment when set,
// otherwise asks twice on the terminal.
func newKeyPassword() ([]byte, error) {
	if pw := os.Getenv(config.EnvKeyPassword); pw != "" {
		return []byte(pw), nil
	}
	return promptNewPasswordFn()
}

func displayKey(cmd *cobra.Command, info *wallet.KeyInfo, qr bool) error {
	v := newKeyView(info)
	network, err := cfg.SelectedNetwork()
	if err != nil {
		return err
	}
	v.PaymentURI = output.FundingLink(info.Address, network.ChainID)

	if formatter.IsJSON() {
		return formatter.Print(v)
	}
	w := cmd.OutOrStdout()
	out(w, "Key:     %s\n", v.Name)
	out(w, "Address: %s\n", v.Address)
	out(w, "Source:  %s\n", v.Source)
	if v.Path != "" {
		out(w, "Path:    %s\n", v.Path)
	}
	if qr && output.Interactive(w) {
		out(w, "\nFund on %s:\n", network.Display)
		return output.FundingQR(w, v.PaymentURI)
	}
	return nil
}
