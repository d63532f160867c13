package jsonedit

import (
	"context"
	"errors"
	"testing"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/kevinwang15/jsonedit/store"
)

func TestSessionCommitPublishesOnce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory([]byte(`{"server":{"host":"a","port":80,"tls":{"on":true}}}`))
	var published [][]byte
	cancel := st.Subscribe(func(b []byte) { published = append(published, b) })
	defer cancel()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	sess, err := Begin(ctx, st, mustPath(t, "server"), WithLogger(logger))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if sess.Kind() != ObjectNode {
		t.Fatalf("kind = %s, want object", sess.Kind())
	}
	want := FieldEdits{"host": "a", "port": "80"}
	if diff := cmp.Diff(want, sess.Fields()); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}

	edits := sess.Fields()
	edits["port"] = "8443"
	res, err := sess.Commit(ctx, edits)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(published) != 1 {
		t.Fatalf("expected exactly one publish, got %d", len(published))
	}
	if !jsonpatch.Equal(published[0], []byte(`{"server":{"host":"a","port":8443,"tls":{"on":true}}}`)) {
		t.Fatalf("unexpected document:\n%s", published[0])
	}
	if string(published[0]) != string(res.Text) {
		t.Fatalf("published text differs from result")
	}
	if last := hook.LastEntry(); last == nil || last.Message != "edit committed" || last.Data["strategy"] != "merge" {
		t.Fatalf("expected commit log entry, got %+v", last)
	}

	if _, err := sess.Commit(ctx, edits); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if len(published) != 1 {
		t.Fatalf("second commit must not publish")
	}
}

func TestSessionStructureChangedOutOfBand(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory([]byte(`{"x":1}`))

	sess, err := Begin(ctx, st, mustPath(t, "x"))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// Someone else turns x into an array before the user saves.
	cur, _ := st.Contents(ctx)
	patch := mustDecodePatch(t, `[{"op":"replace","path":"/x","value":[1]}]`)
	changed, err := patch.Apply(cur)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if err := st.SetContents(ctx, changed); err != nil {
		t.Fatalf("SetContents: %v", err)
	}

	_, err = sess.Commit(ctx, FieldEdits{ValueField: "2"})
	if !errors.Is(err, ErrStructureMismatch) {
		t.Fatalf("expected ErrStructureMismatch, got %v", err)
	}
	after, _ := st.Contents(ctx)
	if string(after) != string(changed) {
		t.Fatalf("store modified on failed commit: %s", after)
	}

	// The session stays usable after a rejected commit.
	if _, err := sess.Commit(ctx, FieldEdits{ValueField: "2"}); errors.Is(err, ErrSessionClosed) {
		t.Fatalf("rejected commit closed the session")
	}
}

func TestSessionObjectBecameArray(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory([]byte(`{"x":{"a":1}}`))
	sess, err := Begin(ctx, st, mustPath(t, "x"))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_ = st.SetContents(ctx, []byte(`{"x":[{"a":1}]}`))

	if _, err := sess.Commit(ctx, FieldEdits{"a": "2"}); !errors.Is(err, ErrStructureMismatch) {
		t.Fatalf("expected ErrStructureMismatch, got %v", err)
	}
}

func TestSessionUnchangedDoesNotPublish(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory([]byte(`{"a":"42","b":[1],"c":"plain"}`))
	calls := 0
	st.Subscribe(func([]byte) { calls++ })

	sess, err := Begin(ctx, st, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if got := sess.Fields()["a"]; got != `"42"` {
		t.Fatalf("string that looks like a number should be shown quoted, got %s", got)
	}
	res, err := sess.Commit(ctx, sess.Fields())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Changed || calls != 0 {
		t.Fatalf("expected no publish, changed=%v calls=%d", res.Changed, calls)
	}
}

func TestSessionPublishesLargeIntegerEdit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory([]byte(`{"id":9007199254740993}`))
	calls := 0
	st.Subscribe(func([]byte) { calls++ })

	sess, err := Begin(ctx, st, mustPath(t, "id"))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	res, err := sess.Commit(ctx, FieldEdits{ValueField: "9007199254740992"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !res.Changed || calls != 1 {
		t.Fatalf("changed=%v calls=%d, want true/1", res.Changed, calls)
	}
	got, _ := st.Contents(ctx)
	if string(got) != "{\n  \"id\": 9007199254740992\n}" {
		t.Fatalf("store holds %s", got)
	}
}

func TestSessionRootScalar(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory([]byte(`"hello"`))
	sess, err := Begin(ctx, st, Path{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if diff := cmp.Diff(FieldEdits{ValueField: "hello"}, sess.Fields()); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}
	if _, err := sess.Commit(ctx, FieldEdits{ValueField: `"world"`}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, _ := st.Contents(ctx)
	if string(got) != `"world"` {
		t.Fatalf("got %s", got)
	}
}

func TestBeginFailsOnMissingPath(t *testing.T) {
	st := store.NewMemory([]byte(`{"a":1}`))
	if _, err := Begin(context.Background(), st, mustPath(t, "missing", "deep")); !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
}

type failingStore struct {
	*store.Memory
}

func (failingStore) SetContents(context.Context, []byte) error {
	return errors.New("disk full")
}

func TestSessionPublishFailureKeepsSessionOpen(t *testing.T) {
	ctx := context.Background()
	st := failingStore{store.NewMemory([]byte(`{"a":1}`))}
	sess, err := Begin(ctx, st, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := sess.Commit(ctx, FieldEdits{"a": "2"}); err == nil {
		t.Fatalf("expected publish error")
	}
	if _, err := sess.Commit(ctx, FieldEdits{"a": "2"}); errors.Is(err, ErrSessionClosed) {
		t.Fatalf("failed publish closed the session")
	}
}

func TestEditableText(t *testing.T) {
	cases := map[string]string{
		`"plain"`:   "plain",
		`"42"`:      `"42"`,
		`"true"`:    `"true"`,
		`" padded"`: " padded",
		`""`:        "",
		`12.50`:     "12.50",
		`null`:      "null",
		`false`:     "false",
	}
	for in, want := range cases {
		v := mustParse(t, in)
		got := EditableText(v)
		if got != want {
			t.Fatalf("EditableText(%s) = %q, want %q", in, got, want)
		}
		if !Reinterpret(got).Equal(v) {
			t.Fatalf("EditableText(%s) does not read back", in)
		}
	}
}

func mustDecodePatch(t *testing.T, s string) jsonpatch.Patch {
	t.Helper()
	patch, err := jsonpatch.DecodePatch([]byte(s))
	if err != nil {
		t.Fatalf("jsonpatch decode error: %v", err)
	}
	return patch
}
