package jsonedit

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Store holds the committed document text. SetContents replaces it
// atomically and notifies whatever renders the document.
type Store interface {
	Contents(ctx context.Context) ([]byte, error)
	SetContents(ctx context.Context, text []byte) error
}

var ErrSessionClosed = errors.New("edit session already committed")

// Session edits one node of a store's document. Begin records the text and
// node kind the user is looking at; Commit applies the edits against the
// store's current text and publishes the result at most once.
//
// Sessions on the same store must not overlap. Nothing guards the store
// between Commit's read and its write.
type Session struct {
	store    Store
	path     Path
	snapshot []byte
	kind     NodeKind
	fields   FieldEdits
	opts     []Option
	log      logrus.FieldLogger
	done     bool
}

type SessionOption func(*Session)

func WithLogger(l logrus.FieldLogger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithEditOptions passes options through to ApplyEdits on Commit.
func WithEditOptions(opts ...Option) SessionOption {
	return func(s *Session) { s.opts = append(s.opts, opts...) }
}

// Begin reads the store, resolves path and records the snapshot and the
// editable fields the session will be committed against.
func Begin(ctx context.Context, store Store, path Path, opts ...SessionOption) (*Session, error) {
	s := &Session{store: store, path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}

	text, err := store.Contents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "jsonedit: read document")
	}
	root, err := Parse(text)
	if err != nil {
		return nil, err
	}
	loc, err := Resolve(root, path)
	if err != nil {
		return nil, err
	}

	s.snapshot = text
	s.kind = Classify(loc.Value)
	s.fields = EditableFields(loc.Value)
	s.log.WithFields(logrus.Fields{
		"path":   path.String(),
		"kind":   s.kind.String(),
		"fields": len(s.fields),
	}).Debug("edit session started")
	return s, nil
}

func (s *Session) Path() Path       { return s.path }
func (s *Session) Kind() NodeKind   { return s.kind }
func (s *Session) Snapshot() []byte { return s.snapshot }

// Fields returns the editable fields with their current text.
func (s *Session) Fields() FieldEdits {
	out := make(FieldEdits, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Commit applies edits and publishes the new text. A failed commit leaves the
// store untouched and the session open; an unchanged document is not
// republished.
func (s *Session) Commit(ctx context.Context, edits FieldEdits) (*Result, error) {
	if s.done {
		return nil, ErrSessionClosed
	}
	log := s.log.WithField("path", s.path.String())

	current, err := s.store.Contents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "jsonedit: read document")
	}
	opts := append([]Option{WithSnapshot(s.snapshot)}, s.opts...)
	res, err := ApplyEdits(current, s.path, edits, opts...)
	if err != nil {
		log.WithError(err).Warn("edit rejected")
		return nil, err
	}

	if res.Changed {
		if err := s.store.SetContents(ctx, res.Text); err != nil {
			return nil, errors.Wrap(err, "jsonedit: publish document")
		}
	}
	s.done = true
	log.WithFields(logrus.Fields{
		"strategy": res.Strategy.String(),
		"changed":  res.Changed,
	}).Info("edit committed")
	return res, nil
}

// EditableFields lists the fields a user may edit on v: each scalar member
// of an object, or the value itself for a scalar. Arrays have none.
func EditableFields(v *Value) FieldEdits {
	fields := FieldEdits{}
	switch Classify(v) {
	case ObjectNode:
		for _, m := range v.members {
			if Classify(m.val) == ScalarNode {
				fields[m.key] = EditableText(m.val)
			}
		}
	case ScalarNode:
		fields[ValueField] = EditableText(v)
	}
	return fields
}

// EditableText renders a scalar for a text field so that Reinterpret gives
// back an equal value. Strings show unquoted unless that would read back as
// something else, e.g. the string "42".
func EditableText(v *Value) string {
	if v.Kind() == KindString && Reinterpret(v.s).Equal(v) {
		return v.s
	}
	return v.String()
}
