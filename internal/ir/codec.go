package ir

import (
	"encoding/json"
	"fmt"
)

// envelope is the discriminator that precedes every record's fields.
type envelope struct {
	Kind    Kind `json:"kind"`
	Version int  `json:"version"`
}

// Encode serializes a record to canonical JSON with its kind and version.
func Encode(rec Record) ([]byte, error) {
	obj := rec.fields()
	obj["kind"] = IRString(rec.Kind())
	obj["version"] = IRInt(RecordVersion)

	data, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", rec.Kind(), err)
	}
	return data, nil
}

// Decode parses data into rec after checking the envelope matches rec's
// kind and the supported version.
func Decode(data []byte, rec Record) error {
	kind, err := PeekKind(data)
	if err != nil {
		return err
	}
	if kind != rec.Kind() {
		return fmt.Errorf("decode: record is %s, want %s", kind, rec.Kind())
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

// PeekKind reads the envelope of an encoded record.
func PeekKind(data []byte) (Kind, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version != RecordVersion {
		return "", fmt.Errorf("decode envelope: unsupported record version %d", env.Version)
	}
	switch env.Kind {
	case KindCommunity, KindMembership, KindPoll, KindVote:
		return env.Kind, nil
	default:
		return "", fmt.Errorf("decode envelope: unknown record kind %q", env.Kind)
	}
}

// DecodeAny parses an encoded record of any kind.
func DecodeAny(data []byte) (Record, error) {
	kind, err := PeekKind(data)
	if err != nil {
		return nil, err
	}

	var rec Record
	switch kind {
	case KindCommunity:
		rec = &Community{}
	case KindMembership:
		rec = &Membership{}
	case KindPoll:
		rec = &Poll{}
	case KindVote:
		rec = &Vote{}
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return rec, nil
}
