package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stlalpha/msgbase/internal/pcboard"
)

func newPCBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pcb",
		Short: "Read PCBoard message bases",
	}

	cmd.AddCommand(newPCBInfoCmd(a))
	cmd.AddCommand(newPCBReadCmd(a))
	cmd.AddCommand(newPCBIndexCmd(a))
	return cmd
}

func (a *app) openPCB(arg string) (*pcboard.Base, error) {
	t := a.resolve(arg)
	b, err := pcboard.Open(t.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", t.Path, err)
	}
	return b, nil
}

func newPCBInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Display the base header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openPCB(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path:     %s\n", b.Path())
			fmt.Fprintf(out, "Messages: %d active, numbers %d..%d\n",
				b.ActiveMessages(), b.LowestMessageNumber(), b.HighestMessageNumber())
			fmt.Fprintf(out, "Callers:  %d\n", b.Callers())
			if s := b.Info().LockStatus; s != "" {
				fmt.Fprintf(out, "Lock:     %s\n", s)
			}
			return nil
		},
	}
}

func newPCBReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <file> <number>",
		Short: "Display a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openPCB(args[0])
			if err != nil {
				return err
			}
			n, err := parseMsgNum(args[1])
			if err != nil {
				return err
			}
			msg, err := b.ReadMessage(n)
			if err != nil {
				return err
			}

			h := msg.Header
			subj := h.Subject
			if long, ok := msg.Field(pcboard.ExtSubject); ok {
				subj = long
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Msg #%d", h.MsgNumber)
			if !h.IsActive() {
				fmt.Fprint(out, "  (deleted)")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "From:    %s\n", h.From)
			fmt.Fprintf(out, "To:      %s\n", h.To)
			fmt.Fprintf(out, "Subject: %s\n", subj)
			fmt.Fprintf(out, "Date:    %s %s\n", h.Date, h.Time)
			for _, e := range msg.Extended {
				if e.Function != pcboard.ExtSubject {
					fmt.Fprintf(out, "%-8s %s\n", string(e.Function)+":", e.Content)
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, strings.TrimRight(msg.Text, " \n"))
			return nil
		},
	}
}

func newPCBIndexCmd(a *app) *cobra.Command {
	var old bool

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "List the message index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openPCB(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if old {
				offsets, err := b.ReadOldIndex()
				if err != nil {
					return err
				}
				for i, off := range offsets {
					fmt.Fprintf(out, "%d\t%d\n", i+1, off)
				}
				return nil
			}

			recs, err := b.ReadIndex()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tOFFSET\tFROM\tTO\tKILLED")
			for _, r := range recs {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", r.Num, r.HeaderOffset(), r.From, r.To, yesNo(r.Killed()))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&old, "old", false, "read the legacy .ndx index instead")
	return cmd
}
