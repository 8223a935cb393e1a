package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/quorum/internal/ir"
)

//go:embed records.cue
var recordsCUE string

// definitions maps each record kind to its CUE definition.
var definitions = map[ir.Kind]string{
	ir.KindCommunity:  "#Community",
	ir.KindMembership: "#Membership",
	ir.KindPoll:       "#Poll",
	ir.KindVote:       "#Vote",
}

// ValidationError reports a record that does not satisfy its definition.
type ValidationError struct {
	Kind ir.Kind
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s record: %v", e.Kind, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validator checks encoded records against the compiled schema.
// A cue.Context is not safe for concurrent use, so Validate serializes.
type Validator struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[ir.Kind]cue.Value
}

// New compiles the embedded record schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(recordsCUE, cue.Filename("records.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}

	defs := make(map[ir.Kind]cue.Value, len(definitions))
	for kind, name := range definitions {
		def := root.LookupPath(cue.ParsePath(name))
		if !def.Exists() {
			return nil, fmt.Errorf("record schema: definition %s not found", name)
		}
		defs[kind] = def
	}

	return &Validator{ctx: ctx, defs: defs}, nil
}

// MustNew is like New but panics on error. The schema is embedded, so an
// error here is a build defect.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks that data is a well-formed record of a known kind.
func (v *Validator) Validate(data []byte) error {
	kind, err := ir.PeekKind(data)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	val := v.ctx.CompileBytes(data, cue.Filename(string(kind)+".json"))
	if err := val.Err(); err != nil {
		return &ValidationError{Kind: kind, Err: err}
	}

	unified := v.defs[kind].Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Kind: kind, Err: err}
	}
	return nil
}
