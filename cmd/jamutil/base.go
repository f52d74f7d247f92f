package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stlalpha/msgbase/internal/config"
	"github.com/stlalpha/msgbase/internal/jam"
)

// readPassword prompts on stderr and reads a password from the terminal
// without echo.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password prompt requires a terminal; use --password")
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		password string
		prompt   bool
	)

	cmd := &cobra.Command{
		Use:   "create <base>",
		Short: "Create an empty message base",
		Long:  "Creates the four JAM files for a new base, replacing any existing ones.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := a.resolve(args[0])
			if prompt {
				pw, err := readPassword(cmd, "Base password: ")
				if err != nil {
					return err
				}
				password = pw
			}

			var (
				b   *jam.Base
				err error
			)
			if password != "" {
				b, err = jam.CreateWithPassword(t.Path, password, a.jamOptions()...)
			} else {
				b, err = jam.Create(t.Path, a.jamOptions()...)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (first message %d, password %s)\n",
				b.Path(), b.BaseMessageNumber(), yesNo(b.NeedsPassword()))
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "base password")
	cmd.Flags().BoolVar(&prompt, "prompt-password", false, "read the base password from the terminal")
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	var (
		all   bool
		quiet bool
	)

	cmd := &cobra.Command{
		Use:     "info [base...]",
		Aliases: []string{"stats"},
		Short:   "Display message base statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := a.resolveAll(all, config.AreaTypeJAM, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var failed bool
			for _, t := range targets {
				b, err := jam.Open(t.Path, a.jamOptions()...)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error opening %s: %v\n", t.Path, err)
					failed = true
					continue
				}

				info := b.Info()
				indexed, _ := b.IndexCount()
				deleted := 0
				_ = b.ScanHeaders(false, func(_ int64, h *jam.MessageHeader) error {
					if h.IsDeleted() {
						deleted++
					}
					return nil
				})

				if quiet {
					fmt.Fprintf(out, "%s: active=%d indexed=%d deleted=%d\n", t.Tag, info.ActiveMsgs, indexed, deleted)
					continue
				}
				fmt.Fprintf(out, "=== %s ===\n", t.label())
				fmt.Fprintf(out, "  Path:       %s\n", b.Path())
				fmt.Fprintf(out, "  Created:    %s\n", formatUnix(info.DateCreated))
				fmt.Fprintf(out, "  ModCounter: %d\n", info.ModCounter)
				fmt.Fprintf(out, "  BaseMsgNum: %d\n", info.BaseMsgNum)
				fmt.Fprintf(out, "  Messages:   %d active, %d indexed, %d deleted\n", info.ActiveMsgs, indexed, deleted)
				fmt.Fprintf(out, "  Password:   %s\n", yesNo(b.NeedsPassword()))
				for _, ext := range []string{jam.ExtHeader, jam.ExtText, jam.ExtIndex, jam.ExtLastRead} {
					if fi, err := os.Stat(b.Path() + ext); err == nil {
						fmt.Fprintf(out, "  %-11s %s\n", ext+":", formatBytes(fi.Size()))
					}
				}
				fmt.Fprintln(out)
			}
			if failed {
				return errors.New("some bases could not be opened")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "operate on all configured JAM areas")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "one line per base")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <base>",
		Short: "Delete a message base from disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("refusing to delete without --force")
			}
			b, err := a.open(args[0])
			if err != nil {
				return err
			}
			if err := b.Delete(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", b.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		all   bool
		quiet bool
	)

	cmd := &cobra.Command{
		Use:     "check [base...]",
		Aliases: []string{"fix"},
		Short:   "Verify message base integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := a.resolveAll(all, config.AreaTypeJAM, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			hadErrors := false
			for _, t := range targets {
				b, err := jam.Open(t.Path, a.jamOptions()...)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error opening %s: %v\n", t.Path, err)
					hadErrors = true
					continue
				}
				if !quiet {
					fmt.Fprintf(out, "Checking %s...\n", t.Tag)
				}

				r, err := b.Check(cmd.Context())
				if err != nil {
					return err
				}
				for _, issue := range r.Issues {
					fmt.Fprintf(out, "  ISSUE: %s\n", issue)
				}
				if r.Uncommitted > 0 && !quiet {
					fmt.Fprintf(out, "  NOTE: %d uncommitted index record(s)\n", r.Uncommitted)
				}
				if r.OK() {
					if !quiet {
						fmt.Fprintf(out, "  OK: %d active, %d deleted, %d lastread records\n",
							r.ActiveMsgs, r.DeletedMsgs, r.LastReadRecords)
					}
					continue
				}
				hadErrors = true
				fmt.Fprintf(out, "  Found %d issue(s)\n", len(r.Issues))
			}
			if hadErrors {
				return errors.New("integrity check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "operate on all configured JAM areas")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only report problems")
	return cmd
}

func newLinkCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "link [base...]",
		Short: "Rebuild reply threading chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := a.resolveAll(all, config.AreaTypeJAM, args)
			if err != nil {
				return err
			}
			for _, t := range targets {
				b, err := jam.Open(t.Path, a.jamOptions()...)
				if err != nil {
					return fmt.Errorf("open %s: %w", t.Path, err)
				}
				res, err := b.Link()
				if err != nil {
					return fmt.Errorf("link %s: %w", t.Tag, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d messages scanned, %d links updated\n",
					t.Tag, res.MessagesScanned, res.LinksUpdated)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "operate on all configured JAM areas")
	return cmd
}

func newPurgeCmd(a *app) *cobra.Command {
	var (
		all    bool
		days   int
		keep   int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "purge [base...]",
		Short: "Mark old messages deleted by age or count",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 && keep <= 0 {
				return errors.New("--days or --keep is required")
			}
			targets, err := a.resolveAll(all, config.AreaTypeJAM, args)
			if err != nil {
				return err
			}

			cutoff := uint32(time.Now().Add(-time.Duration(days) * 24 * time.Hour).Unix())
			for _, t := range targets {
				b, err := jam.Open(t.Path, a.jamOptions()...)
				if err != nil {
					return fmt.Errorf("open %s: %w", t.Path, err)
				}

				var active, toDelete []uint32
				err = b.ScanHeaders(false, func(_ int64, h *jam.MessageHeader) error {
					if h.IsDeleted() {
						return nil
					}
					active = append(active, h.MessageNumber)
					if days > 0 && h.DateWritten < cutoff {
						toDelete = append(toDelete, h.MessageNumber)
					}
					return nil
				})
				if err != nil {
					return err
				}
				if days <= 0 && len(active) > keep {
					toDelete = active[:len(active)-keep]
				}

				if dryRun {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: would delete %d messages\n", t.Tag, len(toDelete))
					continue
				}
				deleted := 0
				for _, n := range toDelete {
					if err := b.DeleteMessage(n); err != nil {
						a.logger.Warn("purge: delete failed",
							slog.String("base", t.Tag), slog.Uint64("msg", uint64(n)), slog.Any("error", err))
						continue
					}
					deleted++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: deleted %d messages\n", t.Tag, deleted)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "operate on all configured JAM areas")
	cmd.Flags().IntVar(&days, "days", 0, "delete messages older than N days")
	cmd.Flags().IntVar(&keep, "keep", 0, "keep only the newest N messages")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would happen without modifying")
	return cmd
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatUnix(sec uint32) string {
	if sec == 0 {
		return "-"
	}
	return time.Unix(int64(sec), 0).UTC().Format("2006-01-02 15:04:05")
}

func formatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%d bytes", b)
	}
	if b < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(b)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(b)/(1024*1024))
}
