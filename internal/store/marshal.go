package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/quorum/internal/ir"
)

// marshalArgs converts transition arguments to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON so replays and digests are byte-stable.
func marshalArgs(args ir.IRObject) (string, error) {
	if args == nil {
		args = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT to IRObject.
// ir.IRObject.UnmarshalJSON reads numbers via json.Number, so large
// integers keep full int64 precision.
func unmarshalArgs(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return obj, nil
}
