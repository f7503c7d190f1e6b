package agent

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogTailEmptyDir(t *testing.T) {
	profile := testProfile(t)
	sup := newTestSupervisor(t, profile, &fakeRunner{}, &fakeProcs{})
	view, err := sup.LogTail("", 0)
	require.NoError(t, err)
	require.Empty(t, view.File)
	require.Empty(t, view.Files)
	require.NotNil(t, view.Lines)
}

func TestLogTailSelectsListedFileOnly(t *testing.T) {
	profile := testProfile(t)
	writeFile(t, filepath.Join(profile.ReportsDir, "webagent-20250101-010101.log"), "a\nb\n", time.Time{})
	writeFile(t, filepath.Join(profile.ReportsDir, "webagent-20250102-020202.log"), "c\n", time.Time{})
	writeFile(t, filepath.Join(profile.ReportsDir, "notes.txt"), "ignored", time.Time{})
	sup := newTestSupervisor(t, profile, &fakeRunner{}, &fakeProcs{})

	view, err := sup.LogTail("webagent-20250101-010101.log", 10)
	require.NoError(t, err)
	require.Equal(t, "webagent-20250101-010101.log", view.File)
	require.Equal(t, []string{"webagent-20250101-010101.log", "webagent-20250102-020202.log"}, view.Files)
	require.Equal(t, []string{"a", "b"}, view.Lines)
	require.Equal(t, int64(4), view.Size)
	require.Equal(t, time.Date(2025, 1, 1, 1, 1, 1, 0, time.UTC), view.StartedAt)

	view, err = sup.LogTail("../../etc/passwd", 10)
	require.NoError(t, err)
	require.Equal(t, "webagent-20250102-020202.log", view.File)
	require.Equal(t, []string{"c"}, view.Lines)
}

func TestLogTailLimitsLines(t *testing.T) {
	profile := testProfile(t)
	var b strings.Builder
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&b, "line %d\r\n", i)
	}
	writeFile(t, filepath.Join(profile.ReportsDir, "run.log"), b.String(), time.Time{})
	sup := newTestSupervisor(t, profile, &fakeRunner{}, &fakeProcs{})

	view, err := sup.LogTail("run.log", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"line 18", "line 19", "line 20"}, view.Lines)
	require.True(t, view.StartedAt.IsZero())
}

func TestClampTailLines(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultTailLines},
		{-4, DefaultTailLines},
		{1, 1},
		{5000, 5000},
		{9999, MaxTailLines},
	}
	for _, tc := range tests {
		if got := ClampTailLines(tc.in); got != tc.want {
			t.Fatalf("ClampTailLines(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseLogStamp(t *testing.T) {
	got, ok := ParseLogStamp("webagent-20250607-080910.log")
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC), got)

	_, ok = ParseLogStamp("webagent-latest.log")
	require.False(t, ok)
	_, ok = ParseLogStamp("webagent-20251399-999999.log")
	require.False(t, ok)
}

func TestLogPath(t *testing.T) {
	profile := testProfile(t)
	sup := newTestSupervisor(t, profile, &fakeRunner{}, &fakeProcs{})
	_, err := sup.LogPath("x.log")
	require.Error(t, err)

	writeFile(t, filepath.Join(profile.ReportsDir, "x.log"), "", time.Time{})
	got, err := sup.LogPath("nope.log")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(profile.ReportsDir, "x.log"), got)
}
