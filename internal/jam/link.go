package jam

import (
	"log/slog"
	"strings"
)

// LinkResult contains statistics from a Link operation.
type LinkResult struct {
	MessagesScanned int
	LinksUpdated    int
}

// Link rebuilds reply threading chains (ReplyTo/Reply1st/ReplyNext) by
// matching MSGID and ReplyID subfields across all messages that are not
// deleted. Only headers whose threading fields change are rewritten.
func (b *Base) Link() (LinkResult, error) {
	var result LinkResult

	acquired, err := b.Lock()
	if err != nil {
		return result, err
	}
	if acquired {
		defer b.Unlock()
	}

	type hdrInfo struct {
		hdr     *MessageHeader
		msgID   string
		replyID string
	}

	var headers []hdrInfo
	msgIDToNum := make(map[string]uint32)      // MSGID -> message number
	replyIDToNums := make(map[string][]uint32) // ReplyID -> replying message numbers

	err = b.ScanHeaders(false, func(_ int64, hdr *MessageHeader) error {
		if hdr.IsDeleted() {
			return nil
		}
		msgID, _ := hdr.MsgID()
		replyID, _ := hdr.ReplyID()
		headers = append(headers, hdrInfo{hdr: hdr, msgID: msgID, replyID: replyID})

		n := hdr.MessageNumber
		if msgID != "" {
			msgIDToNum[msgID] = n
			// FTN MSGIDs are "address serial"; index the address-only
			// prefix too so prefix-based lookups succeed.
			if idx := strings.LastIndex(msgID, " "); idx > 0 {
				if _, exists := msgIDToNum[msgID[:idx]]; !exists {
					msgIDToNum[msgID[:idx]] = n
				}
			}
		}
		if replyID != "" {
			replyIDToNums[replyID] = append(replyIDToNums[replyID], n)
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	result.MessagesScanned = len(headers)

	for _, h := range headers {
		replyTo, reply1st, replyNext := h.hdr.ReplyTo, h.hdr.Reply1st, h.hdr.ReplyNext

		if h.replyID != "" {
			if parent, ok := msgIDToNum[h.replyID]; ok {
				replyTo = parent
			}
			replyNext = 0
			siblings := replyIDToNums[h.replyID]
			for j, sn := range siblings {
				if sn == h.hdr.MessageNumber && j+1 < len(siblings) {
					replyNext = siblings[j+1]
					break
				}
			}
		}

		if h.msgID != "" {
			replies := replyIDToNums[h.msgID]
			if len(replies) == 0 {
				if idx := strings.LastIndex(h.msgID, " "); idx > 0 {
					replies = replyIDToNums[h.msgID[:idx]]
				}
			}
			reply1st = 0
			if len(replies) > 0 {
				reply1st = replies[0]
			}
		}

		if replyTo == h.hdr.ReplyTo && reply1st == h.hdr.Reply1st && replyNext == h.hdr.ReplyNext {
			continue
		}
		h.hdr.ReplyTo, h.hdr.Reply1st, h.hdr.ReplyNext = replyTo, reply1st, replyNext
		if err := b.UpdateMessageHeader(h.hdr.MessageNumber, h.hdr); err != nil {
			return result, err
		}
		result.LinksUpdated++
	}

	b.logger.Debug("jam: reply chains linked",
		slog.String("base", b.BasePath),
		slog.Int("scanned", result.MessagesScanned),
		slog.Int("updated", result.LinksUpdated))
	return result, nil
}
