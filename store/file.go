package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const DefaultFileMode = 0o644

// File stores the document in a file on disk.
type File struct {
	path string
	mode os.FileMode
}

type FileOption func(*File)

// WithFileMode sets the permissions of written files. Without it an existing
// file keeps its mode and new files get DefaultFileMode.
func WithFileMode(mode os.FileMode) FileOption {
	return func(f *File) { f.mode = mode }
}

func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *File) Path() string { return f.path }

func (f *File) Contents(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %q", f.path)
	}
	return data, nil
}

// SetContents replaces the file atomically: the text goes to a temporary
// file in the same directory which is synced and then renamed over the target.
func (f *File) SetContents(ctx context.Context, text []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mode := f.mode
	if mode == 0 {
		mode = DefaultFileMode
		if st, err := os.Stat(f.path); err == nil {
			mode = st.Mode().Perm()
		}
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".jsonedit-*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(text); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write to temporary file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to sync temporary file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temporary file")
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return errors.Wrap(err, "failed to set file permissions")
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return errors.Wrapf(err, "failed to rename temporary file to %q", f.path)
	}

	success = true
	return nil
}

// Watch calls onChange whenever the file is written, created or replaced,
// including by other processes, until ctx is done. It watches the parent
// directory so atomic replacements are seen.
func (f *File) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	dir := filepath.Dir(f.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return errors.Wrapf(err, "failed to watch directory %q", dir)
	}

	name := filepath.Base(f.path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					onChange()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}
