package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/quorum/internal/ir"
)

// Records are named on the command line either by their 64-character hex
// address or by the names they are derived from:
//
//	community   NAME
//	identity    NAME (ir.NamedIdentity)
//	poll        COMMUNITY:INDEX

// parseIdentity resolves a hex identity or a name.
func parseIdentity(s string) (ir.Address, error) {
	if s == "" {
		return ir.Address{}, fmt.Errorf("identity is empty")
	}
	if addr, err := ir.ParseAddress(s); err == nil {
		return addr, nil
	}
	return ir.NamedIdentity(s), nil
}

// parseCommunity resolves a hex community address or a community name.
func parseCommunity(s string) (ir.Address, error) {
	if s == "" {
		return ir.Address{}, fmt.Errorf("community is empty")
	}
	if addr, err := ir.ParseAddress(s); err == nil {
		return addr, nil
	}
	return ir.CommunityAddress(s), nil
}

// parsePoll resolves a hex poll address or COMMUNITY:INDEX.
func parsePoll(s string) (ir.Address, error) {
	if addr, err := ir.ParseAddress(s); err == nil {
		return addr, nil
	}
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return ir.Address{}, fmt.Errorf("poll %q: want hex address or COMMUNITY:INDEX", s)
	}
	community, err := parseCommunity(s[:i])
	if err != nil {
		return ir.Address{}, fmt.Errorf("poll %q: %w", s, err)
	}
	index, err := strconv.ParseUint(s[i+1:], 10, 64)
	if err != nil {
		return ir.Address{}, fmt.Errorf("poll %q: bad index: %w", s, err)
	}
	return ir.PollAddress(community, index), nil
}

// callerAddress resolves --as or --caller.
func (o *RootOptions) callerAddress() (ir.Address, error) {
	switch {
	case o.Caller != "":
		addr, err := ir.ParseAddress(o.Caller)
		if err != nil {
			return ir.Address{}, fmt.Errorf("--caller: %w", err)
		}
		return addr, nil
	case o.As != "":
		return ir.NamedIdentity(o.As), nil
	default:
		return ir.Address{}, fmt.Errorf("a caller is required: pass --as NAME or --caller HEX")
	}
}
