package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/etenda/etenda/internal/version"
)

const releaseCheckTimeout = 10 * time.Second

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var (
	buildInfo    version.Build
	versionCheck bool

	// newReleaseChecker is replaced in tests.
	newReleaseChecker = func(b version.Build) releaseChecker { return version.NewChecker(b) }
)

type releaseChecker interface {
	Latest(ctx context.Context) (*version.Release, error)
}

// SetBuildInfo records the link-time build metadata.
func SetBuildInfo(b version.Build) {
	buildInfo = b
	rootCmd.Version = b.String()
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the etenda version",
	Long: `Print the version, commit and build date. With --check the latest published
release is looked up and compared.`,
	Example: `  etenda version
  etenda version --check`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check whether a newer release is available")
	versionCmd.GroupID = groupConfig
	rootCmd.AddCommand(versionCmd)
	rootCmd.SetVersionTemplate("etenda {{.Version}}\n")
}

type versionView struct {
	version.Build

	Latest          string `json:"latest,omitempty"`
	UpdateAvailable bool   `json:"update_available,omitempty"`
	ReleaseURL      string `json:"release_url,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	view := versionView{Build: buildInfo}

	if versionCheck {
		ctx, cancel := interruptible(cmd, releaseCheckTimeout)
		defer cancel()

		rel, err := newReleaseChecker(buildInfo).Latest(ctx)
		if err != nil {
			return err
		}
		view.Latest = rel.TagName
		view.ReleaseURL = rel.URL
		view.UpdateAvailable = version.IsNewer(buildInfo.Version, rel.TagName)
		logger.Debug().Str("latest", rel.TagName).Bool("newer", view.UpdateAvailable).Msg("release checked")
	}

	if formatter.IsJSON() {
		return formatter.Print(view)
	}

	w := cmd.OutOrStdout()
	out(w, "etenda %s\n", buildInfo.String())
	if !versionCheck {
		return nil
	}
	switch {
	case buildInfo.IsDev():
		out(w, "Latest release is %s (development build, not compared)\n", view.Latest)
	case view.UpdateAvailable:
		out(w, "A newer release is available: %s\n  %s\n", view.Latest, view.ReleaseURL)
	default:
		outln(w, "You are running the latest release.")
	}
	return nil
}
