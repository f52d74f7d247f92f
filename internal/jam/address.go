package jam

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAddress is wrapped by every ParseAddress failure.
var ErrInvalidAddress = errors.New("jam: invalid FTN address")

// FidoAddress is a 4D FidoNet address, zone:net/node.point.
type FidoAddress struct {
	Zone  int
	Net   int
	Node  int
	Point int
}

// ParseAddress parses "zone:net/node" with an optional ".point" suffix.
func ParseAddress(s string) (*FidoAddress, error) {
	s = strings.TrimSpace(s)
	zone, rest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("%w %q: missing zone", ErrInvalidAddress, s)
	}
	net, rest, ok := strings.Cut(rest, "/")
	if !ok {
		return nil, fmt.Errorf("%w %q: missing net/node", ErrInvalidAddress, s)
	}
	node, point, hasPoint := strings.Cut(rest, ".")

	var a FidoAddress
	type field struct {
		name string
		text string
		dst  *int
	}
	parts := []field{{"zone", zone, &a.Zone}, {"net", net, &a.Net}, {"node", node, &a.Node}}
	if hasPoint {
		parts = append(parts, field{"point", point, &a.Point})
	}
	for _, p := range parts {
		v, err := strconv.Atoi(p.text)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w %q: bad %s %q", ErrInvalidAddress, s, p.name, p.text)
		}
		*p.dst = v
	}
	return &a, nil
}

// String formats the address, leaving out a zero point.
func (a *FidoAddress) String() string {
	if a.Point == 0 {
		return fmt.Sprintf("%d:%d/%d", a.Zone, a.Net, a.Node)
	}
	return fmt.Sprintf("%d:%d/%d.%d", a.Zone, a.Net, a.Node, a.Point)
}

// OrigFidoAddress parses the origin address subfield. It returns
// ErrNotFound when the header has none.
func (h *MessageHeader) OrigFidoAddress() (*FidoAddress, error) {
	s, ok := h.OrigAddr()
	if !ok {
		return nil, ErrNotFound
	}
	return ParseAddress(s)
}

// DestFidoAddress parses the destination address subfield. It returns
// ErrNotFound when the header has none.
func (h *MessageHeader) DestFidoAddress() (*FidoAddress, error) {
	s, ok := h.DestAddr()
	if !ok {
		return nil, ErrNotFound
	}
	return ParseAddress(s)
}
