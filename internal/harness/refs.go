package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/quorum/internal/ir"
)

// refs resolves "@" references and remembers the label of every address
// it produced, so traces can show labels instead of hex.
type refs struct {
	now    func() int64
	labels map[ir.Address]string
}

func newRefs(now func() int64) *refs {
	return &refs{now: now, labels: make(map[ir.Address]string)}
}

// identity resolves a caller name.
func (r *refs) identity(name string) ir.Address {
	addr := ir.NamedIdentity(name)
	r.labels[addr] = name
	return addr
}

// address resolves an address-valued reference.
func (r *refs) address(ref string) (ir.Address, error) {
	v, err := r.resolve(ref)
	if err != nil {
		return ir.Address{}, err
	}
	s, ok := v.(ir.IRString)
	if !ok {
		return ir.Address{}, fmt.Errorf("reference %q is not an address", ref)
	}
	return ir.ParseAddress(string(s))
}

// resolve turns a string into its IR value. Strings without a leading "@"
// are literals.
func (r *refs) resolve(s string) (ir.IRValue, error) {
	if !strings.HasPrefix(s, "@") {
		return ir.IRString(s), nil
	}
	if strings.HasPrefix(s, "@@") {
		return ir.IRString(s[1:]), nil
	}

	if s == "@now" || strings.HasPrefix(s, "@now+") || strings.HasPrefix(s, "@now-") {
		offset := int64(0)
		if len(s) > len("@now") {
			n, err := strconv.ParseInt(s[len("@now"):], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("reference %q: bad offset: %w", s, err)
			}
			offset = n
		}
		return ir.IRInt(r.now() + offset), nil
	}

	kind, rest, ok := strings.Cut(s[1:], ":")
	if !ok {
		return nil, fmt.Errorf("reference %q: expected @kind:parts", s)
	}
	parts := strings.Split(rest, ":")

	var addr ir.Address
	switch kind {
	case "identity":
		if len(parts) != 1 {
			return nil, fmt.Errorf("reference %q: want @identity:NAME", s)
		}
		addr = ir.NamedIdentity(parts[0])
		r.labels[addr] = parts[0]
		return addr.IR(), nil

	case "community":
		if len(parts) != 1 {
			return nil, fmt.Errorf("reference %q: want @community:NAME", s)
		}
		addr = ir.CommunityAddress(parts[0])

	case "membership":
		if len(parts) != 2 {
			return nil, fmt.Errorf("reference %q: want @membership:COMMUNITY:MEMBER", s)
		}
		addr = ir.MembershipAddress(ir.CommunityAddress(parts[0]), ir.NamedIdentity(parts[1]))

	case "poll":
		if len(parts) != 2 {
			return nil, fmt.Errorf("reference %q: want @poll:COMMUNITY:INDEX", s)
		}
		index, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reference %q: bad index: %w", s, err)
		}
		addr = ir.PollAddress(ir.CommunityAddress(parts[0]), index)

	case "vote":
		if len(parts) != 3 {
			return nil, fmt.Errorf("reference %q: want @vote:COMMUNITY:INDEX:VOTER", s)
		}
		index, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reference %q: bad index: %w", s, err)
		}
		poll := ir.PollAddress(ir.CommunityAddress(parts[0]), index)
		addr = ir.VoteAddress(poll, ir.NamedIdentity(parts[2]))

	default:
		return nil, fmt.Errorf("reference %q: unknown kind %q", s, kind)
	}

	r.labels[addr] = s
	return addr.IR(), nil
}

// toIR converts a YAML value to an IR value, resolving references.
func (r *refs) toIR(v any) (ir.IRValue, error) {
	switch val := v.(type) {
	case string:
		return r.resolve(val)
	case int:
		return ir.IRInt(int64(val)), nil
	case int64:
		return ir.IRInt(val), nil
	case uint64:
		return ir.IRInt(int64(val)), nil
	case bool:
		return ir.IRBool(val), nil
	case []any:
		arr := make(ir.IRArray, len(val))
		for i, elem := range val {
			iv, err := r.toIR(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = iv
		}
		return arr, nil
	case map[string]any:
		return r.toObject(val)
	case nil:
		return nil, fmt.Errorf("null is not allowed")
	default:
		return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

// toObject converts a YAML mapping to an IRObject.
func (r *refs) toObject(m map[string]any) (ir.IRObject, error) {
	obj := make(ir.IRObject, len(m))
	for k, v := range m {
		iv, err := r.toIR(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		obj[k] = iv
	}
	return obj, nil
}

// label returns the label for addr, or its hex when none is known.
func (r *refs) label(addr ir.Address) string {
	if l, ok := r.labels[addr]; ok {
		return l
	}
	return addr.String()
}

// relabel replaces known addresses inside v with their labels.
func (r *refs) relabel(v ir.IRValue) ir.IRValue {
	switch val := v.(type) {
	case ir.IRString:
		if addr, err := ir.ParseAddress(string(val)); err == nil {
			return ir.IRString(r.label(addr))
		}
		return val
	case ir.IRArray:
		out := make(ir.IRArray, len(val))
		for i, elem := range val {
			out[i] = r.relabel(elem)
		}
		return out
	case ir.IRObject:
		out := make(ir.IRObject, len(val))
		for k, elem := range val {
			out[k] = r.relabel(elem)
		}
		return out
	default:
		return v
	}
}
