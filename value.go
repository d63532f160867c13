package jsonedit

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Kind is the JSON type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

type member struct {
	key string
	val *Value
}

// Value is a parsed JSON value. Arrays and objects are held by pointer so a
// Location can mutate them in place; objects keep their insertion order.
type Value struct {
	kind    Kind
	b       bool
	s       string // string contents, or the number literal
	items   []*Value
	members []member
	index   map[string]int
}

// Null, Bool and String build scalar values.
func Null() *Value           { return &Value{kind: KindNull} }
func Bool(b bool) *Value     { return &Value{kind: KindBool, b: b} }
func String(s string) *Value { return &Value{kind: KindString, s: s} }

// Number returns a number value for a JSON number literal such as "10" or
// "-1.5e3". The literal must be exactly one number token.
func Number(lit string) (*Value, error) {
	if len(lit) == 0 || strings.TrimSpace(lit) != lit || (lit[0] != '-' && (lit[0] < '0' || lit[0] > '9')) || !json.Valid([]byte(lit)) {
		return nil, errors.Errorf("jsonedit: invalid number literal %q", lit)
	}
	return &Value{kind: KindNumber, s: lit}, nil
}

// Int returns a number value for n.
func Int(n int64) *Value { return &Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// NewArray returns an array holding items; nil items become null.
func NewArray(items ...*Value) *Value {
	v := &Value{kind: KindArray, items: make([]*Value, 0, len(items))}
	for _, it := range items {
		v.items = append(v.items, orNull(it))
	}
	return v
}

// NewObject returns an empty object.
func NewObject() *Value {
	return &Value{kind: KindObject, index: map[string]int{}}
}

func orNull(v *Value) *Value {
	if v == nil {
		return Null()
	}
	return v
}

func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// Truth returns the boolean held by a bool value.
func (v *Value) Truth() bool { return v != nil && v.kind == KindBool && v.b }

// Text returns the contents of a string value or the literal of a number value.
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	return v.s
}

// Len returns the number of elements of an array or members of an object.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.members)
	}
	return 0
}

// Index returns the i-th array element, or nil when out of range.
func (v *Value) Index(i int) *Value {
	if v.Kind() != KindArray || i < 0 || i >= len(v.items) {
		return nil
	}
	return v.items[i]
}

// SetIndex overwrites the i-th array element.
func (v *Value) SetIndex(i int, nv *Value) bool {
	if v.Kind() != KindArray || i < 0 || i >= len(v.items) {
		return false
	}
	v.items[i] = orNull(nv)
	return true
}

// Append adds an element to an array.
func (v *Value) Append(nv *Value) {
	if v.Kind() == KindArray {
		v.items = append(v.items, orNull(nv))
	}
}

func (v *Value) Get(key string) (*Value, bool) {
	if v.Kind() != KindObject {
		return nil, false
	}
	i, ok := v.index[key]
	if !ok {
		return nil, false
	}
	return v.members[i].val, true
}

// Set overwrites key in place, or appends it when the object lacks it.
func (v *Value) Set(key string, nv *Value) {
	if v.Kind() != KindObject {
		return
	}
	if i, ok := v.index[key]; ok {
		v.members[i].val = orNull(nv)
		return
	}
	v.index[key] = len(v.members)
	v.members = append(v.members, member{key: key, val: orNull(nv)})
}

// Keys returns object keys in document order.
func (v *Value) Keys() []string {
	if v.Kind() != KindObject {
		return nil
	}
	keys := make([]string, len(v.members))
	for i, m := range v.members {
		keys[i] = m.key
	}
	return keys
}

func (v *Value) Clone() *Value {
	if v == nil {
		return Null()
	}
	c := &Value{kind: v.kind, b: v.b, s: v.s}
	switch v.kind {
	case KindArray:
		c.items = make([]*Value, len(v.items))
		for i, it := range v.items {
			c.items[i] = it.Clone()
		}
	case KindObject:
		c.members = make([]member, len(v.members))
		c.index = make(map[string]int, len(v.members))
		for i, m := range v.members {
			c.members[i] = member{key: m.key, val: m.val.Clone()}
			c.index[m.key] = i
		}
	}
	return c
}

// Equal reports structural equality. Object member order is ignored and
// numbers compare by exact decimal value, so 1.0 equals 1 but two integers
// that round to the same float64 stay distinct.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindNumber:
		if v.s == o.s {
			return true
		}
		a, ok1 := decimalOf(v.s)
		b, ok2 := decimalOf(o.s)
		return ok1 && ok2 && a == b
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.members) != len(o.members) {
			return false
		}
		for _, m := range v.members {
			ov, ok := o.Get(m.key)
			if !ok || !m.val.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v as compact JSON.
func (v *Value) String() string {
	out, err := Format{}.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(out)
}

type decimal struct {
	neg    bool
	digits string // significant digits, no leading or trailing zeros
	exp    int
}

// decimalOf reduces a number literal to digits × 10^exp. Zero has no digits
// and no sign.
func decimalOf(lit string) (decimal, bool) {
	var d decimal
	s := lit
	if strings.HasPrefix(s, "-") {
		d.neg = true
		s = s[1:]
	}
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		e, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return decimal{}, false
		}
		d.exp = e
		s = s[:i]
	}
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s, frac = s[:i], s[i+1:]
	}
	digits := strings.TrimLeft(s+frac, "0")
	if digits == "" {
		return decimal{}, true
	}
	trimmed := strings.TrimRight(digits, "0")
	d.exp += len(digits) - len(trimmed) - len(frac)
	d.digits = trimmed
	return d, true
}

var parseAPI = jsoniter.Config{}.Froze()

// Parse reads a complete JSON text. Invalid input returns an error wrapping
// ErrMalformedDocument.
func Parse(data []byte) (*Value, error) {
	// jsoniter's iterator accepts some malformed numbers; validate strictly first.
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed(err)
	}
	// Both decoders substitute U+FFFD for these, which would rewrite
	// untouched strings on the way back out.
	if err := checkEncoding(data); err != nil {
		return nil, err
	}

	iter := jsoniter.ParseBytes(parseAPI, data)
	v := readValue(iter)
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, malformed(iter.Error)
	}
	return v, nil
}

// checkEncoding rejects invalid UTF-8 and \u escapes naming an unpaired
// surrogate. data must already be syntactically valid JSON.
func checkEncoding(data []byte) error {
	if !utf8.Valid(data) {
		for off := 0; off < len(data); {
			r, n := utf8.DecodeRune(data[off:])
			if r == utf8.RuneError && n <= 1 {
				return errors.Wrapf(ErrMalformedDocument, "jsonedit: offset %d: invalid UTF-8", off)
			}
			off += n
		}
	}
	inString := false
	for i := 0; i < len(data); i++ {
		switch c := data[i]; {
		case c == '"':
			inString = !inString
		case c == '\\' && inString:
			if data[i+1] != 'u' {
				i++
				continue
			}
			r := hexRune(data[i+2 : i+6])
			switch {
			case utf16.IsSurrogate(r) && r < 0xdc00:
				if i+12 > len(data) || data[i+6] != '\\' || data[i+7] != 'u' ||
					utf16.DecodeRune(r, hexRune(data[i+8:i+12])) == utf8.RuneError {
					return errors.Wrapf(ErrMalformedDocument, "jsonedit: offset %d: unpaired surrogate escape", i)
				}
				i += 11
			case utf16.IsSurrogate(r):
				return errors.Wrapf(ErrMalformedDocument, "jsonedit: offset %d: unpaired surrogate escape", i)
			default:
				i += 5
			}
		}
	}
	return nil
}

func hexRune(b []byte) rune {
	n, err := strconv.ParseUint(string(b), 16, 32)
	if err != nil {
		return utf8.RuneError
	}
	return rune(n)
}

func readValue(iter *jsoniter.Iterator) *Value {
	switch iter.WhatIsNext() {
	case jsoniter.StringValue:
		return String(iter.ReadString())
	case jsoniter.NumberValue:
		return &Value{kind: KindNumber, s: string(iter.ReadNumber())}
	case jsoniter.BoolValue:
		return Bool(iter.ReadBool())
	case jsoniter.NilValue:
		iter.ReadNil()
		return Null()
	case jsoniter.ArrayValue:
		arr := NewArray()
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			arr.items = append(arr.items, readValue(it))
			return it.Error == nil
		})
		return arr
	case jsoniter.ObjectValue:
		obj := NewObject()
		iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			obj.Set(key, readValue(it))
			return it.Error == nil
		})
		return obj
	default:
		iter.ReportError("readValue", "unexpected token")
		return Null()
	}
}

// Format controls how Marshal lays out a document.
type Format struct {
	Indent       int  // spaces per level; 0 renders compact JSON
	FinalNewline bool // terminate the text with "\n"
}

// DefaultFormat is the stable 2-space layout used for edited documents.
var DefaultFormat = Format{Indent: 2}

var (
	printMu   sync.Mutex
	printAPIs = map[int]jsoniter.API{}
)

func printAPI(indent int) jsoniter.API {
	printMu.Lock()
	defer printMu.Unlock()
	api, ok := printAPIs[indent]
	if !ok {
		api = jsoniter.Config{IndentionStep: indent, EscapeHTML: false}.Froze()
		printAPIs[indent] = api
	}
	return api
}

// Marshal encodes v using the format.
func (f Format) Marshal(v *Value) ([]byte, error) {
	indent := f.Indent
	if indent < 0 {
		indent = 0
	}
	stream := jsoniter.NewStream(printAPI(indent), nil, 512)
	writeValue(stream, orNull(v))
	if f.FinalNewline {
		stream.WriteRaw("\n")
	}
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// Marshal encodes v with DefaultFormat.
func Marshal(v *Value) ([]byte, error) {
	return DefaultFormat.Marshal(v)
}

func writeValue(stream *jsoniter.Stream, v *Value) {
	switch v.kind {
	case KindNull:
		stream.WriteNil()
	case KindBool:
		stream.WriteBool(v.b)
	case KindNumber:
		stream.WriteRaw(v.s)
	case KindString:
		stream.WriteString(v.s)
	case KindArray:
		if len(v.items) == 0 {
			stream.WriteEmptyArray()
			return
		}
		stream.WriteArrayStart()
		for i, it := range v.items {
			if i > 0 {
				stream.WriteMore()
			}
			writeValue(stream, it)
		}
		stream.WriteArrayEnd()
	case KindObject:
		if len(v.members) == 0 {
			stream.WriteEmptyObject()
			return
		}
		stream.WriteObjectStart()
		for i, m := range v.members {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectField(m.key)
			writeValue(stream, m.val)
		}
		stream.WriteObjectEnd()
	}
}

// DetectFormat infers the indent width and final newline of an existing
// document so a rewrite keeps its layout. Single-line documents get the
// default 2-space indent.
func DetectFormat(data []byte) Format {
	return Format{
		Indent:       detectIndent(data),
		FinalNewline: len(data) > 0 && data[len(data)-1] == '\n',
	}
}

func detectIndent(b []byte) int {
	indents := []int{}
	start := 0
	for i := 0; i <= len(b); i++ {
		if i < len(b) && b[i] != '\n' {
			continue
		}
		ln := b[start:i]
		start = i + 1
		n := leadingSpaces(ln)
		if n > 0 && n < len(ln) {
			indents = append(indents, n)
		}
	}

	if len(indents) == 0 {
		return 2
	}

	sort.Ints(indents)
	result := indents[0]
	for i := 1; i < len(indents); i++ {
		result = gcd(result, indents[i])
		if result == 1 {
			break
		}
	}

	if result > 0 && result <= 8 {
		return result
	}
	return 2
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func leadingSpaces(line []byte) int {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}
