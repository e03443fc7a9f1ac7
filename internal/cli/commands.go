package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jwulff/subplay/internal/mcpserver"
	"github.com/jwulff/subplay/internal/share"
	"github.com/jwulff/subplay/internal/transcript"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <media> [subs]",
		Short: "Store a media file and optionally its subtitles",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			var subs string
			if len(args) == 2 {
				subs = args[1]
			}
			rec, n, err := importPair(cmd.Context(), store, args[0], subs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%s, %d entries)\n", rec.Key, humanize.Bytes(uint64(rec.Size)), n)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored media",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			items, err := store.ListMedia(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tSIZE\tTYPE")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.Key, item.Name, humanize.Bytes(uint64(item.Size)), item.Type)
			}
			return w.Flush()
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete stored media and its subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			if err := store.DeleteMedia(cmd.Context(), args[0], cfg.CacheDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newShareCmd() *cobra.Command {
	shareCmd := &cobra.Command{
		Use:   "share",
		Short: "Encode and decode share links",
	}

	encode := &cobra.Command{
		Use:   "encode <subs>",
		Short: "Print a share link carrying a subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			entries, err := readSubtitles(args[0])
			if err != nil {
				return err
			}
			link, err := share.FragmentURL(cfg.ShareBaseURL, transcript.Format(entries))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}

	decode := &cobra.Command{
		Use:   "decode <link|token>",
		Short: "Print the subtitles carried by a share link or token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := share.ResolveText(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), raw)
			return nil
		},
	}

	shareCmd.AddCommand(encode, decode)
	return shareCmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the library to agents over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, store, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()
			return mcpserver.New(store, cfg.ShareBaseURL).Serve(Version)
		},
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "file\t%s\n", cfg.Path())
			fmt.Fprintf(w, "db_path\t%s\n", cfg.DBPath)
			fmt.Fprintf(w, "cache_dir\t%s\n", cfg.CacheDir)
			fmt.Fprintf(w, "log_path\t%s\n", cfg.LogPath)
			fmt.Fprintf(w, "mpv_path\t%s\n", cfg.MpvPath)
			fmt.Fprintf(w, "share_base_url\t%s\n", cfg.ShareBaseURL)
			return w.Flush()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.Path()); err == nil {
				return fmt.Errorf("%s already exists", cfg.Path())
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfg.Path())
			return nil
		},
	}

	configCmd.AddCommand(initCmd)
	return configCmd
}
