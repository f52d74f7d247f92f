package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stlalpha/msgbase/internal/jam"
)

func parseMsgNum(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid message number %q", s)
	}
	return uint32(n), nil
}

// flags renders the interesting attribute bits as letters.
func flags(h *jam.MessageHeader) string {
	var sb strings.Builder
	for _, f := range []struct {
		bit uint32
		c   byte
	}{
		{jam.MsgPrivate, 'P'},
		{jam.MsgRead, 'R'},
		{jam.MsgTypeEcho, 'E'},
		{jam.MsgTypeNet, 'N'},
		{jam.MsgDeleted, 'D'},
	} {
		if h.Attribute&f.bit != 0 {
			sb.WriteByte(f.c)
		}
	}
	return sb.String()
}

// senderAddress returns the sender's FTN address. Echomail without an
// origin address subfield falls back to the origin line of the text.
func senderAddress(h *jam.MessageHeader, text string) string {
	if addr, err := h.OrigFidoAddress(); err == nil {
		return addr.String()
	}
	if raw, ok := h.OrigAddr(); ok {
		return raw
	}
	if addr, err := jam.ParseAddress(jam.OriginAddress(text)); err == nil {
		return addr.String()
	}
	return ""
}

func recipientAddress(h *jam.MessageHeader) string {
	if addr, err := h.DestFidoAddress(); err == nil {
		return addr.String()
	}
	raw, _ := h.DestAddr()
	return raw
}

// areaTag returns the echo tag from the AREA: kludge, or "".
func areaTag(h *jam.MessageHeader) string {
	for _, sf := range h.GetAllSubfieldsByType(jam.SfldFTSKludge) {
		if tag, ok := strings.CutPrefix(sf.Text(), "AREA:"); ok {
			return strings.TrimSpace(tag)
		}
	}
	return ""
}

func newListCmd(a *app) *cobra.Command {
	var (
		start       uint32
		limit       int
		deleted     bool
		privateOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list <base>",
		Short: "List message headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(args[0])
			if err != nil {
				return err
			}
			info := b.Info()
			first := max(start, info.BaseMsgNum)
			end := info.BaseMsgNum + info.ActiveMsgs

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tFROM\tTO\tSUBJECT\tDATE\tFLAGS")
			shown := 0
			for n := first; n < end; n++ {
				if limit > 0 && shown >= limit {
					break
				}
				h, err := b.ReadHeader(n)
				if err != nil {
					return fmt.Errorf("message %d: %w", n, err)
				}
				if h.IsDeleted() && !deleted {
					continue
				}
				if privateOnly && !h.IsPrivate() {
					continue
				}
				from, _ := h.From()
				to, _ := h.To()
				subj, _ := h.Subject()
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", n, from, to, subj, formatUnix(h.DateWritten), flags(h))
				shown++
			}
			return w.Flush()
		},
	}

	cmd.Flags().Uint32Var(&start, "start", 0, "first message number")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum messages to list (0 for all)")
	cmd.Flags().BoolVar(&deleted, "deleted", false, "include deleted messages")
	cmd.Flags().BoolVar(&privateOnly, "private", false, "list only private messages")
	return cmd
}

func newReadCmd(a *app) *cobra.Command {
	var (
		raw     bool
		kludges bool
		user    string
		userID  uint32
	)

	cmd := &cobra.Command{
		Use:   "read <base> <number>",
		Short: "Display a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(args[0])
			if err != nil {
				return err
			}
			n, err := parseMsgNum(args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if raw {
				h, err := b.ReadHeader(n)
				if err != nil {
					return err
				}
				data, err := b.ReadRawText(h)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			h, text, err := b.ReadMessage(n)
			if err != nil {
				return err
			}
			from, _ := h.From()
			to, _ := h.To()
			subj, _ := h.Subject()
			fmt.Fprintf(out, "Msg #%d  %s\n", n, flags(h))
			fmt.Fprintf(out, "From:    %s", from)
			if addr := senderAddress(h, text); addr != "" {
				fmt.Fprintf(out, " (%s)", addr)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "To:      %s", to)
			if addr := recipientAddress(h); addr != "" {
				fmt.Fprintf(out, " (%s)", addr)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Subject: %s\n", subj)
			if area := areaTag(h); area != "" {
				fmt.Fprintf(out, "Area:    %s\n", area)
			}
			fmt.Fprintf(out, "Date:    %s\n", formatUnix(h.DateWritten))
			if h.ReplyTo != 0 || h.Reply1st != 0 || h.ReplyNext != 0 {
				fmt.Fprintf(out, "Thread:  reply-to %d, first reply %d, next reply %d\n", h.ReplyTo, h.Reply1st, h.ReplyNext)
			}
			if kludges {
				for _, sf := range h.Subfields {
					switch sf.Kind() {
					case jam.KindSenderName, jam.KindReceiverName, jam.KindSubject:
						continue
					}
					fmt.Fprintf(out, "%-8s %s\n", sf.Kind().String()+":", sf.Text())
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, strings.TrimRight(text, "\r\n"))

			if user != "" {
				if err := b.MarkMessageRead(user, userID, n); err != nil {
					return fmt.Errorf("update lastread: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "write the stored text bytes unchanged")
	cmd.Flags().BoolVar(&kludges, "kludges", false, "show every subfield")
	cmd.Flags().StringVar(&user, "user", "", "mark the message read for this user")
	cmd.Flags().Uint32Var(&userID, "user-id", 0, "user ID for --user")
	return cmd
}

func newPostCmd(a *app) *cobra.Command {
	var (
		post     jam.Post
		msgType  string
		text     string
		file     string
		tearline string
		origin   string
		password string
		prompt   bool
	)

	cmd := &cobra.Command{
		Use:   "post <base>",
		Short: "Write a new message",
		Long: `Writes a message and commits the base header. The body comes from --text,
or from --file ("-" reads stdin). Echomail gets a tearline and, with
--origin, an origin line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(args[0])
			if err != nil {
				return err
			}

			if b.NeedsPassword() {
				if prompt {
					if password, err = readPassword(cmd, "Base password: "); err != nil {
						return err
					}
				}
				if !b.CheckPassword(password) {
					return errors.New("incorrect base password")
				}
			}

			body := text
			if file != "" {
				var data []byte
				if file == "-" {
					data, err = io.ReadAll(cmd.InOrStdin())
				} else {
					data, err = os.ReadFile(file)
				}
				if err != nil {
					return fmt.Errorf("read message text: %w", err)
				}
				body = string(data)
			}

			post.Type = jam.ParseMessageType(msgType)
			for _, addr := range []*string{&post.OrigAddr, &post.DestAddr} {
				if *addr == "" {
					continue
				}
				parsed, err := jam.ParseAddress(*addr)
				if err != nil {
					return err
				}
				*addr = parsed.String()
			}
			if post.Type.IsNetmail() && post.DestAddr == "" {
				return errors.New("netmail needs --dest")
			}
			if post.Type.IsEchomail() {
				body = jam.AddCustomTearline(body, tearline)
				if origin != "" {
					body = jam.AddOriginLine(body, origin, post.OrigAddr)
				}
			}
			if post.MsgID == "" && post.OrigAddr != "" && post.Type != jam.MsgTypeLocalMsg {
				post.MsgID = fmt.Sprintf("%s %08x", post.OrigAddr, uuid.New().ID())
			}

			n, err := b.WriteMessage(post.Header(), jam.EncodeText(body))
			if err != nil {
				return err
			}
			if err := b.Commit(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted message %d to %s\n", n, b.Path())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&post.From, "from", "", "sender name (required)")
	f.StringVar(&post.To, "to", "All", "recipient name")
	f.StringVar(&post.Subject, "subject", "", "subject (required)")
	f.StringVar(&msgType, "type", "local", "message type (local, echomail, netmail)")
	f.StringVar(&post.OrigAddr, "orig", "", "origin FTN address")
	f.StringVar(&post.DestAddr, "dest", "", "destination FTN address (netmail)")
	f.StringVar(&post.MsgID, "msgid", "", "MSGID (generated from --orig when empty)")
	f.StringVar(&post.ReplyID, "reply", "", "MSGID of the message replied to")
	f.StringVar(&post.Area, "area", "", "echo area tag")
	f.BoolVar(&post.Private, "private", false, "mark private")
	f.StringArrayVar(&post.Kludges, "kludge", nil, "extra FTS kludge line (repeatable)")
	f.StringVar(&text, "text", "", "message text")
	f.StringVar(&file, "file", "", `file holding the message text ("-" for stdin)`)
	f.StringVar(&tearline, "tearline", "", "tearline for echomail")
	f.StringVar(&origin, "origin", "", "system name for the echomail origin line")
	f.StringVar(&password, "password", "", "base password")
	f.BoolVar(&prompt, "prompt-password", false, "read the base password from the terminal")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("subject")
	return cmd
}

func newKillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "kill <base> <number>...",
		Aliases: []string{"delete-msg"},
		Short:   "Mark messages deleted",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(args[0])
			if err != nil {
				return err
			}
			for _, arg := range args[1:] {
				n, err := parseMsgNum(arg)
				if err != nil {
					return err
				}
				if err := b.DeleteMessage(n); err != nil {
					return fmt.Errorf("message %d: %w", n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted message %d\n", n)
			}
			return nil
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var crcHex string

	cmd := &cobra.Command{
		Use:   "search <base> [recipient]",
		Short: "Find messages addressed to a recipient",
		Long:  "Searches the index for a recipient name, or for a raw checksum with --crc.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(args[0])
			if err != nil {
				return err
			}

			var crc uint32
			switch {
			case crcHex != "":
				v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(crcHex), "0x"), 16, 32)
				if err != nil {
					return fmt.Errorf("invalid --crc %q", crcHex)
				}
				crc = uint32(v)
			case len(args) == 2:
				crc = jam.CRC32String(args[1])
			default:
				return errors.New("recipient or --crc required")
			}

			hits, err := b.SearchIndex(cmd.Context(), crc)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tPOS\tOFFSET\tFROM\tSUBJECT")
			for _, hit := range hits {
				from, subj := "?", "?"
				if h, err := b.ReadHeader(hit.MessageNumber); err == nil {
					from, _ = h.From()
					subj, _ = h.Subject()
				}
				fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n", hit.MessageNumber, hit.Position, hit.HdrOffset, from, subj)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d match(es) for %08x\n", len(hits), crc)
			return nil
		},
	}

	cmd.Flags().StringVar(&crcHex, "crc", "", "search for a raw recipient checksum (hex)")
	return cmd
}
