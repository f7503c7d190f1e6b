package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// followPoll re-reads the file when no events arrive, for filesystems
// where inotify is unreliable.
var followPoll = 2 * time.Second

// Follow emits complete lines appended to path after offset until ctx is
// done or emit fails. A file that shrinks below the read offset is treated
// as truncated and re-read from the start.
func Follow(ctx context.Context, path string, offset int64, emit func(lines []string) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	f := &follower{path: path, offset: offset, emit: emit}
	if err := f.drain(); err != nil {
		return err
	}

	ticker := time.NewTicker(followPoll)
	defer ticker.Stop()
	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := f.drain(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		case <-ticker.C:
			if err := f.drain(); err != nil {
				return err
			}
		}
	}
}

type follower struct {
	path    string
	offset  int64
	partial []byte
	emit    func([]string) error
}

func (f *follower) drain() error {
	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", f.path, err)
	}
	if info.Size() < f.offset {
		f.offset = 0
		f.partial = nil
	}
	if info.Size() == f.offset {
		return nil
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", f.path, err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.path, err)
	}
	f.offset += int64(len(data))

	data = append(f.partial, data...)
	cut := bytes.LastIndexByte(data, '\n')
	if cut < 0 {
		f.partial = data
		return nil
	}
	f.partial = append([]byte(nil), data[cut+1:]...)
	lines := strings.Split(strings.ReplaceAll(string(data[:cut]), "\r\n", "\n"), "\n")
	return f.emit(lines)
}
