package jsonedit

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Segment is one step of a Path: an object key or an array index.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// Key addresses an object member.
func Key(k string) Segment { return Segment{key: k} }

// Index addresses an array element. Negative indices never resolve.
func Index(i int) Segment { return Segment{index: i, isIndex: true} }

func (s Segment) IsIndex() bool { return s.isIndex }
func (s Segment) Key() string   { return s.key }
func (s Segment) Index() int    { return s.index }

func (s Segment) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return strconv.Quote(s.key)
}

// Path locates a node from the document root. The empty path is the root.
type Path []Segment

// PathOf builds a path from strings (keys) and ints (indices).
func PathOf(parts ...any) (Path, error) {
	p := make(Path, 0, len(parts))
	for i, part := range parts {
		switch x := part.(type) {
		case string:
			p = append(p, Key(x))
		case int:
			p = append(p, Index(x))
		default:
			return nil, errors.Errorf("jsonedit: path part %d has unsupported type %T", i, part)
		}
	}
	return p, nil
}

// ParsePath reads a path written as a JSON array, e.g. ["deploy", "containers", 0].
func ParsePath(text string) (Path, error) {
	if strings.TrimSpace(text) == "" {
		return Path{}, nil
	}
	v, err := Parse([]byte(text))
	if err != nil {
		return nil, errors.Wrap(err, "jsonedit: path")
	}
	if v.Kind() != KindArray {
		return nil, errors.Errorf("jsonedit: path must be a JSON array, got %s", v.Kind())
	}
	p := make(Path, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		el := v.Index(i)
		switch el.Kind() {
		case KindString:
			p = append(p, Key(el.Text()))
		case KindNumber:
			n, err := strconv.Atoi(el.Text())
			if err != nil || n < 0 {
				return nil, errors.Errorf("jsonedit: path element %d: %s is not a non-negative integer index", i, el.Text())
			}
			p = append(p, Index(n))
		default:
			return nil, errors.Errorf("jsonedit: path element %d: unsupported %s", i, el.Kind())
		}
	}
	return p, nil
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString("$")
	for _, s := range p {
		if s.isIndex {
			b.WriteString(s.String())
			continue
		}
		b.WriteString("[")
		b.WriteString(strconv.Quote(s.key))
		b.WriteString("]")
	}
	return b.String()
}

// Parent returns the path without its final segment.
func (p Path) Parent() (Path, Segment, bool) {
	if len(p) == 0 {
		return nil, Segment{}, false
	}
	return p[:len(p)-1], p[len(p)-1], true
}

// Location is a resolved node plus the handle needed to replace it: the
// parent container and the final segment, or no parent for the root.
type Location struct {
	Value   *Value
	Parent  *Value
	Segment Segment
	root    bool
}

func (l *Location) IsRoot() bool { return l.root }

// Replace writes v into the parent's slot and reports whether it did. The
// root has no slot; callers swap their root reference instead.
func (l *Location) Replace(v *Value) bool {
	if l.root {
		return false
	}
	v = orNull(v)
	switch l.Parent.Kind() {
	case KindObject:
		l.Parent.Set(l.Segment.key, v)
	case KindArray:
		if !l.Parent.SetIndex(l.Segment.index, v) {
			return false
		}
	default:
		return false
	}
	l.Value = v
	return true
}

// Resolve walks path from root. It reads only; mutation goes through the
// returned Location.
func Resolve(root *Value, path Path) (*Location, error) {
	loc := &Location{Value: orNull(root), root: true}
	for i, seg := range path {
		cur := loc.Value
		var next *Value
		switch {
		case cur.Kind() == KindObject && !seg.isIndex:
			v, ok := cur.Get(seg.key)
			if !ok {
				return nil, &PathError{Err: ErrPathNotFound, Path: path, Pos: i, Found: cur.Kind()}
			}
			next = v
		case cur.Kind() == KindArray && seg.isIndex:
			next = cur.Index(seg.index)
			if next == nil {
				return nil, &PathError{Err: ErrPathNotFound, Path: path, Pos: i, Found: cur.Kind()}
			}
		default:
			return nil, &PathError{Err: ErrPathTypeMismatch, Path: path, Pos: i, Found: cur.Kind()}
		}
		loc = &Location{Value: next, Parent: cur, Segment: seg}
	}
	return loc, nil
}
