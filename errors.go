package jsonedit

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrPathNotFound           = errors.New("path not found")
	ErrPathTypeMismatch       = errors.New("path type mismatch")
	ErrStructureMismatch      = errors.New("structure mismatch")
	ErrSerializationInvariant = errors.New("serialization invariant violated")
	ErrMalformedDocument      = errors.New("malformed document")
)

// PathError reports where a path stopped resolving. Pos is the index of the
// offending segment and Found the kind of value that segment was applied to.
type PathError struct {
	Err   error
	Path  Path
	Pos   int
	Found Kind
}

func (e *PathError) Error() string {
	seg := "<root>"
	if e.Pos >= 0 && e.Pos < len(e.Path) {
		seg = e.Path[e.Pos].String()
	}
	return fmt.Sprintf("jsonedit: %v: segment %s of %s (found %s)", e.Err, seg, e.Path, e.Found)
}

func (e *PathError) Unwrap() error { return e.Err }

// StructureError is returned when the node under edit no longer has the kind
// it had when the edit session began.
type StructureError struct {
	Path     Path
	Expected NodeKind
	Actual   NodeKind
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("jsonedit: %v at %s: expected %s, found %s", ErrStructureMismatch, e.Path, e.Expected, e.Actual)
}

func (e *StructureError) Unwrap() error { return ErrStructureMismatch }

func malformed(err error) error {
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return errors.Wrapf(ErrMalformedDocument, "jsonedit: offset %d: %v", se.Offset, err)
	}
	return errors.Wrapf(ErrMalformedDocument, "jsonedit: %v", err)
}
