package output

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mdp/qrterminal/v3"
	"golang.org/x/term"
	"rsc.io/qr"
)

// FundingLink is the EIP-681 link a wallet scans to send value to account
// on chainID.
func FundingLink(account common.Address, chainID uint64) string {
	return fmt.Sprintf("ethereum:%s@%d", account.Hex(), chainID)
}

// Interactive reports whether w is a terminal.
func Interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// FundingQR draws link as a QR code. Nothing is written unless w is a
// terminal, so piped output stays machine readable.
func FundingQR(w io.Writer, link string) error {
	if !Interactive(w) {
		return nil
	}
	return drawQR(w, link)
}

func drawQR(w io.Writer, link string) error {
	// level L: a funding link is short and phones scan it off a screen
	if _, err := qr.Encode(link, qr.L); err != nil {
		return fmt.Errorf("encoding QR code: %w", err)
	}
	qrterminal.GenerateWithConfig(link, qrterminal.Config{
		Level:          qr.L,
		Writer:         w,
		QuietZone:      1,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
	return nil
}
