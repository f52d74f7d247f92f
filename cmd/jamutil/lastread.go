package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stlalpha/msgbase/internal/jam"
)

func newLastReadCmd(a *app) *cobra.Command {
	var (
		user   string
		userID uint32
		set    uint32
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "lastread <base>",
		Short: "Show, set or reset lastread records",
		Long: `Without --user, lists every lastread record. With --user, shows that
user's record and unread count; --set marks a message read and --reset
clears the record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if user == "" {
				if reset || cmd.Flags().Changed("set") {
					return errors.New("--set and --reset need --user")
				}
				recs, err := b.ReadLastReads()
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Fprintln(out, "no lastread records")
					return nil
				}
				for _, lr := range recs {
					fmt.Fprintf(out, "UserCRC=0x%08X  UserID=%-6d  LastRead=%-6d  HighRead=%-6d\n",
						lr.UserCRC, lr.UserID, lr.LastReadMsg, lr.HighReadMsg)
				}
				return nil
			}

			crc := jam.CRC32String(user)
			switch {
			case reset:
				if err := b.SetLastRead(jam.LastReadRecord{UserCRC: crc, UserID: userID}); err != nil {
					return err
				}
				fmt.Fprintf(out, "reset lastread for %q\n", user)
				return nil
			case cmd.Flags().Changed("set"):
				if err := b.MarkMessageRead(user, userID, set); err != nil {
					return err
				}
			}

			rec, err := b.FindLastRead(crc, userID)
			switch {
			case errors.Is(err, jam.ErrNotFound):
				fmt.Fprintf(out, "%s: no lastread record\n", user)
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "%s: LastRead=%d HighRead=%d (record %d)\n",
					user, rec.LastReadMsg, rec.HighReadMsg, b.LastReadPosition())
			}
			unread, err := b.UnreadCount(user, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %d unread\n", user, unread)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user name")
	cmd.Flags().Uint32Var(&userID, "user-id", 0, "user ID")
	cmd.Flags().Uint32Var(&set, "set", 0, "mark this message number read")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear the user's lastread record")
	return cmd
}
