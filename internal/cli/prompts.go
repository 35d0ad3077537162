package cli

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/etenda/etenda/internal/config"
	"github.com/etenda/etenda/internal/wallet"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

const minPasswordLength = 8

// Prompt hooks. Tests replace them.
//
//nolint:gochecknoglobals // replaced in tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptSecretFn      = promptSecret
)

// console reads answers from a terminal with echo off, or line by line from
// a pipe. Prompts go to out so they never mix with command output.
type console struct {
	fd    int
	tty   bool
	lines *bufio.Reader
	out   io.Writer
}

// stdin is shared so consecutive prompts on a pipe consume consecutive lines.
//
//nolint:gochecknoglobals // one reader per process
var stdin = sync.OnceValue(func() *console {
	fd := int(os.Stdin.Fd()) //nolint:gosec // G115: descriptors fit an int
	return &console{
		fd:    fd,
		tty:   term.IsTerminal(fd),
		lines: bufio.NewReader(os.Stdin),
		out:   os.Stderr,
	}
})

// ask shows prompt and returns the answer without its line ending. The
// caller zeroes the result.
func (c *console) ask(prompt string) ([]byte, error) {
	out(c.out, "%s", prompt)
	if c.tty {
		answer, err := term.ReadPassword(c.fd)
		outln(c.out)
		if err != nil {
			return nil, fmt.Errorf("reading terminal: %w", err)
		}
		return answer, nil
	}

	line, err := c.lines.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		if errors.Is(err, io.EOF) {
			return nil, etendaerr.WithSuggestion(etendaerr.ErrInvalidInput, "no input provided")
		}
		return nil, fmt.Errorf("reading input: %w", err)
	}
	n := len(line)
	for n > 0 && (line[n-1] == '\n' || line[n-1] == '\r') {
		n--
	}
	return line[:n], nil
}

func promptPassword(prompt string) ([]byte, error) {
	return stdin().ask(prompt)
}

// promptNewPassword asks twice and checks the length before confirming.
// The caller zeroes the result.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter encryption password: ")
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		wallet.ZeroBytes(password)
		return nil, etendaerr.WithSuggestion(etendaerr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	again, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		wallet.ZeroBytes(password)
		return nil, err
	}
	defer wallet.ZeroBytes(again)

	if subtle.ConstantTimeCompare(password, again) != 1 {
		wallet.ZeroBytes(password)
		return nil, etendaerr.WithSuggestion(etendaerr.ErrInvalidInput, "passwords do not match")
	}
	return password, nil
}

// promptSecret reads a private key or mnemonic, hidden on a terminal.
func promptSecret(prompt string) (string, error) {
	secret, err := stdin().ask(prompt)
	if err != nil {
		return "", err
	}
	defer wallet.ZeroBytes(secret)
	return strings.TrimSpace(string(secret)), nil
}

// keyPassword unlocks name with ETENDA_KEY_PASSWORD when set, otherwise by
// asking.
func keyPassword(name string) func() ([]byte, error) {
	return func() ([]byte, error) {
		if pw := os.Getenv(config.EnvKeyPassword); pw != "" {
			return []byte(pw), nil
		}
		return promptPasswordFn(fmt.Sprintf("Password for key '%s': ", name))
	}
}
