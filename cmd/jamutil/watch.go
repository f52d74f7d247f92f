package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stlalpha/msgbase/internal/jam"
	"github.com/stlalpha/msgbase/internal/maintenance"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <base>",
		Short: "Report changes made to a base by other programs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (ModCounter %d, %d active)\n", b.Path(), b.ModCounter(), b.ActiveMessages())
			return jam.Watch(cmd.Context(), b, func(h jam.BaseHeader) {
				fmt.Fprintf(out, "ModCounter %d: %d active, next message %d\n",
					h.ModCounter, h.ActiveMsgs, h.NextMessageNumber())
			})
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run integrity checks over the configured areas on a schedule",
		Long: `Checks every JAM area in the config file on the maintenance schedule
until interrupted. With --once, checks each area once and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := maintenance.NewScheduler(a.cfg, a.logger, a.jamOptions()...)
			if !once {
				return s.Start(cmd.Context())
			}

			results, err := s.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.Area, r.Status())
				if r.Status() != maintenance.StatusOK {
					failed++
				}
			}
			if err := s.SaveHistory(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d area(s) failed the check", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run one check pass and exit")
	return cmd
}
