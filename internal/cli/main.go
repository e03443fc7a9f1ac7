package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "dev"

// Main runs the subplay command line and exits non-zero on failure.
func Main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "subplay [media]",
		Short:        "Play media alongside a synced subtitle transcript",
		Args:         cobra.MaximumNArgs(1),
		Version:      Version,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "Config file (default "+configDefault()+")")
	root.Flags().String("subs", "", "Subtitle file to pair with the media")
	root.Flags().String("url", "", "Share link or token to open")

	root.AddCommand(
		newImportCmd(),
		newListCmd(),
		newDeleteCmd(),
		newShareCmd(),
		newMCPCmd(),
		newConfigCmd(),
	)
	return root
}
