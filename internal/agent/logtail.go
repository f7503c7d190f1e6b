package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultTailLines is used when LogTail is called with limit <= 0.
	DefaultTailLines = 600
	// MaxTailLines caps LogTail.
	MaxTailLines = 5000
)

var logStampPattern = regexp.MustCompile(`(\d{8}-\d{6})\.log$`)

// LogView is the tail of one report log plus the available log names.
type LogView struct {
	File      string    `json:"file"`
	Files     []string  `json:"files"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mtime,omitzero"`
	StartedAt time.Time `json:"startedAt,omitzero"`
	Lines     []string  `json:"lines"`
}

// ClampTailLines normalizes a requested line count.
func ClampTailLines(limit int) int {
	if limit <= 0 {
		return DefaultTailLines
	}
	return min(limit, MaxTailLines)
}

// ParseLogStamp extracts the UTC start time from names like
// webagent-20250102-030405.log.
func ParseLogStamp(name string) (time.Time, bool) {
	m := logStampPattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102-150405", m[1])
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Logs lists *.log names in the reports directory sorted by name.
func (s *Supervisor) Logs() ([]string, error) {
	entries, err := os.ReadDir(s.profile.ReportsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reports dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// LogTail returns the last limit lines of file. An unknown or empty file
// selects the last log by name. Only names from Logs are ever opened.
func (s *Supervisor) LogTail(file string, limit int) (LogView, error) {
	names, err := s.Logs()
	if err != nil {
		return LogView{}, err
	}
	view := LogView{Files: names, Lines: []string{}}
	if len(names) == 0 {
		return view, nil
	}
	chosen := pickLog(names, file)
	view.File = chosen

	path := filepath.Join(s.profile.ReportsDir, chosen)
	data, err := os.ReadFile(path)
	if err != nil {
		return LogView{}, fmt.Errorf("read log: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return LogView{}, fmt.Errorf("stat log: %w", err)
	}
	// Size is the offset the lines were read up to, so a follower resumes
	// exactly after them even if the agent appended in between.
	view.Size = int64(len(data))
	view.ModTime = info.ModTime().UTC()
	if stamp, ok := ParseLogStamp(chosen); ok {
		view.StartedAt = stamp
	}
	view.Lines = lastLines(string(data), ClampTailLines(limit))
	return view, nil
}

// LogPath resolves a listed log name to its path.
func (s *Supervisor) LogPath(file string) (string, error) {
	names, err := s.Logs()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fs.ErrNotExist
	}
	return filepath.Join(s.profile.ReportsDir, pickLog(names, file)), nil
}

func pickLog(names []string, file string) string {
	for _, name := range names {
		if name == file {
			return name
		}
	}
	return names[len(names)-1]
}

func lastLines(text string, limit int) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return []string{}
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines
}
