package jsonedit

import (
	"sort"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/pkg/errors"
)

// ValueField is the field key that stands for a scalar node's own value.
const ValueField = "value"

// FieldEdits maps field keys to the raw text a user entered for them.
type FieldEdits map[string]string

// NodeKind is the structural class of the node under edit.
type NodeKind int

const (
	ScalarNode NodeKind = iota
	ObjectNode
	ArrayNode
)

func (k NodeKind) String() string {
	switch k {
	case ObjectNode:
		return "object"
	case ArrayNode:
		return "array"
	default:
		return "scalar"
	}
}

// Classify maps a value to the node kind that picks the update strategy.
func Classify(v *Value) NodeKind {
	switch v.Kind() {
	case KindObject:
		return ObjectNode
	case KindArray:
		return ArrayNode
	default:
		return ScalarNode
	}
}

// Strategy names how ApplyEdits changed the document.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyMerge
	StrategyReplace
	StrategyRootReplace
)

func (s Strategy) String() string {
	switch s {
	case StrategyMerge:
		return "merge"
	case StrategyReplace:
		return "replace"
	case StrategyRootReplace:
		return "root-replace"
	default:
		return "none"
	}
}

// Reinterpret turns raw user input into a value: a JSON literal when raw
// parses as one, otherwise the raw text as a string.
func Reinterpret(raw string) *Value {
	v, err := Parse([]byte(raw))
	if err != nil {
		return String(raw)
	}
	return v
}

type options struct {
	snapshot []byte
	format   Format
	detect   bool
}

// Option configures ApplyEdits and SetAtPath.
type Option func(*options)

// WithSnapshot supplies the document text the edit session began against.
// The node at the edited path must still have the kind it had there.
func WithSnapshot(text []byte) Option {
	return func(o *options) { o.snapshot = text }
}

// WithFormat overrides DefaultFormat for the output text.
func WithFormat(f Format) Option {
	return func(o *options) { o.format, o.detect = f, false }
}

// WithDetectedFormat keeps the input document's indent and final newline.
func WithDetectedFormat() Option {
	return func(o *options) { o.detect = true }
}

func buildOptions(opts []Option) *options {
	o := &options{format: DefaultFormat}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result is the outcome of a successful ApplyEdits.
type Result struct {
	Text     []byte
	Strategy Strategy
	Kind     NodeKind
	Changed  bool

	original []byte
}

// MergePatch describes the edit as an RFC 7386 merge patch against the input
// document. Documents whose root is a scalar have no merge patch form.
func (r *Result) MergePatch() ([]byte, error) {
	patch, err := jsonpatch.CreateMergePatch(r.original, r.Text)
	if err != nil {
		return nil, errors.Wrap(err, "jsonedit: merge patch")
	}
	return patch, nil
}

// ApplyEdits applies field edits to the node at path and returns the new
// document text. The input is parsed into a private copy; nothing shared is
// mutated, so on error the caller's text stays authoritative.
func ApplyEdits(document []byte, path Path, edits FieldEdits, opts ...Option) (*Result, error) {
	o := buildOptions(opts)

	root, err := Parse(document)
	if err != nil {
		return nil, err
	}
	loc, err := Resolve(root, path)
	if err != nil {
		return nil, err
	}
	kind := Classify(loc.Value)
	before := root.Clone()

	if o.snapshot != nil {
		if err := checkSnapshot(o.snapshot, path, kind); err != nil {
			return nil, err
		}
	}

	values := make(map[string]*Value, len(edits))
	for k, raw := range edits {
		values[k] = Reinterpret(raw)
	}

	strategy := StrategyNone
	switch {
	case kind == ObjectNode:
		orig := o.snapshot
		if orig == nil {
			orig = document
		}
		if err := requireObject(orig, path); err != nil {
			return nil, err
		}
		if len(values) > 0 {
			mergeFields(loc.Value, values)
			strategy = StrategyMerge
		}
	case kind == ScalarNode && len(values) == 1:
		v, ok := values[ValueField]
		if !ok {
			break
		}
		if loc.IsRoot() {
			root = v
			strategy = StrategyRootReplace
		} else if loc.Replace(v) {
			strategy = StrategyReplace
		}
	}

	format := o.format
	if o.detect {
		format = DetectFormat(document)
	}
	text, err := serialize(root, format)
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:     text,
		Strategy: strategy,
		Kind:     kind,
		Changed:  !before.Equal(root),
		original: document,
	}, nil
}

// mergeFields overwrites existing keys in place and appends new ones in key
// order. Keys absent from values are never touched.
func mergeFields(obj *Value, values map[string]*Value) {
	var added []string
	for k, v := range values {
		if _, ok := obj.Get(k); ok {
			obj.Set(k, v)
			continue
		}
		added = append(added, k)
	}
	sort.Strings(added)
	for _, k := range added {
		obj.Set(k, values[k])
	}
}

func checkSnapshot(snapshot []byte, path Path, live NodeKind) error {
	snap, err := Parse(snapshot)
	if err != nil {
		return err
	}
	loc, err := Resolve(snap, path)
	if err != nil {
		return errors.Wrapf(ErrStructureMismatch, "jsonedit: %s did not resolve when the edit began: %v", path, err)
	}
	if was := Classify(loc.Value); was != live {
		return &StructureError{Path: path, Expected: was, Actual: live}
	}
	return nil
}

// requireObject re-resolves path against an independent parse of text and
// fails unless it is still an object there.
func requireObject(text []byte, path Path) error {
	doc, err := Parse(text)
	if err != nil {
		return err
	}
	loc, err := Resolve(doc, path)
	if err != nil {
		return errors.Wrapf(ErrStructureMismatch, "jsonedit: %s: %v", path, err)
	}
	if k := Classify(loc.Value); k != ObjectNode {
		return &StructureError{Path: path, Expected: ObjectNode, Actual: k}
	}
	return nil
}

// serialize encodes root and proves the output parses again.
func serialize(root *Value, format Format) ([]byte, error) {
	text, err := format.Marshal(root)
	if err != nil {
		return nil, errors.Wrapf(ErrSerializationInvariant, "jsonedit: marshal: %v", err)
	}
	back, err := Parse(text)
	if err != nil {
		return nil, errors.Wrapf(ErrSerializationInvariant, "jsonedit: reparse: %v", err)
	}
	if !back.Equal(root) {
		return nil, errors.Wrap(ErrSerializationInvariant, "jsonedit: output does not round-trip")
	}
	return text, nil
}

// SetAtPath replaces the node at path (the whole document when path is
// empty) with v. Unlike ApplyEdits it takes no snapshot.
func SetAtPath(document []byte, path Path, v *Value, opts ...Option) ([]byte, error) {
	o := buildOptions(opts)

	root, err := Parse(document)
	if err != nil {
		return nil, err
	}
	loc, err := Resolve(root, path)
	if err != nil {
		return nil, err
	}
	if loc.IsRoot() {
		root = orNull(v)
	} else if !loc.Replace(v) {
		return nil, &PathError{Err: ErrPathTypeMismatch, Path: path, Pos: len(path) - 1, Found: loc.Parent.Kind()}
	}

	format := o.format
	if o.detect {
		format = DetectFormat(document)
	}
	return serialize(root, format)
}
