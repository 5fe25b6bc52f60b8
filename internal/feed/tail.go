package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/verte-zerg/strafeval/internal/logger"
)

// Tail follows a JSON-lines file that a producer appends to.
type Tail struct {
	Path string
	// FromStart replays existing lines before following.
	FromStart bool
	Now       func() time.Time
}

type tailState struct {
	file    *os.File
	reader  *bufio.Reader
	offset  int64
	partial []byte
}

// Run watches the file's directory and forwards each complete line
// appended to the file. A missing file is picked up once created.
func (t *Tail) Run(ctx context.Context, out chan<- Message) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
	}()
	if err := watcher.Add(filepath.Dir(t.Path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", t.Path, err)
	}

	st := &tailState{}
	defer st.close()
	if err := t.open(st, !t.FromStart); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := t.drain(ctx, st, out); err != nil {
		return err
	}

	name := filepath.Base(t.Path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			switch {
			case ev.Op&fsnotify.Create != 0:
				st.close()
				if err := t.open(st, false); err != nil {
					logger.Warn("failed to reopen feed file", "error", err)
					continue
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				st.close()
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := t.drain(ctx, st, out); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("feed watcher error", "error", err)
		}
	}
}

func (t *Tail) open(st *tailState, atEnd bool) error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	st.file = f
	st.offset = 0
	st.partial = nil
	if atEnd {
		off, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			_ = f.Close() // best-effort
			st.file = nil
			return fmt.Errorf("failed to seek feed file: %w", err)
		}
		st.offset = off
	}
	st.reader = bufio.NewReader(f)
	return nil
}

// drain forwards every complete line available, keeping a trailing
// partial line for the next write.
func (t *Tail) drain(ctx context.Context, st *tailState, out chan<- Message) error {
	if st.file == nil {
		if err := t.open(st, false); err != nil {
			// Not created yet.
			return nil
		}
	}
	if info, err := st.file.Stat(); err == nil && info.Size() < st.offset {
		// Truncated: start over.
		if _, err := st.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind feed file: %w", err)
		}
		st.offset = 0
		st.partial = nil
		st.reader.Reset(st.file)
	}
	now := clock(t.Now)
	for {
		chunk, err := st.reader.ReadBytes('\n')
		st.offset += int64(len(chunk))
		if err != nil {
			st.partial = append(st.partial, chunk...)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read feed file: %w", err)
		}
		line := append(st.partial, chunk...)
		st.partial = nil
		msg, derr := Decode(line, now())
		if derr != nil {
			if !errors.Is(derr, ErrEmpty) {
				logger.Warn("skipping feed line", "error", derr)
			}
			continue
		}
		if err := send(ctx, out, msg); err != nil {
			return err
		}
	}
}

func (st *tailState) close() {
	if st.file != nil {
		_ = st.file.Close() // best-effort
	}
	*st = tailState{}
}
