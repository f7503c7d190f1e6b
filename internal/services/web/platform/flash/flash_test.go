package flash

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
)

func TestWriteAndReadAndClearRoundTrip(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/admin/content/import", nil)
	writeRR := httptest.NewRecorder()
	Write(writeRR, req, Success("Imported sat-1 (12 items)"), requestmeta.SchemePolicy{})

	cookie, err := http.ParseSetCookie(writeRR.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("ParseSetCookie() error = %v", err)
	}
	next := httptest.NewRequest(http.MethodGet, "/admin/content", nil)
	next.AddCookie(cookie)
	readRR := httptest.NewRecorder()
	notice, ok := ReadAndClear(readRR, next, requestmeta.SchemePolicy{})
	if !ok {
		t.Fatal("ReadAndClear() ok = false, want true")
	}
	if notice.Kind != KindSuccess || notice.Message != "Imported sat-1 (12 items)" {
		t.Fatalf("notice = %+v", notice)
	}
	if !strings.Contains(readRR.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Fatalf("expected clearing cookie, got %q", readRR.Header().Get("Set-Cookie"))
	}
}

func TestReadAndClearInvalidCookieValueStillClears(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/admin/agent", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-base64!"})
	rr := httptest.NewRecorder()

	if _, ok := ReadAndClear(rr, req, requestmeta.SchemePolicy{}); ok {
		t.Fatal("ReadAndClear() ok = true, want false")
	}
	if rr.Header().Get("Set-Cookie") == "" {
		t.Fatal("expected clear Set-Cookie header")
	}
}

func TestWriteIgnoresEmptyOrUnknownNotices(t *testing.T) {
	t.Parallel()

	for _, notice := range []Notice{Success("  "), {Kind: "shout", Message: "hi"}} {
		rr := httptest.NewRecorder()
		Write(rr, httptest.NewRequest(http.MethodPost, "/", nil), notice, requestmeta.SchemePolicy{})
		if got := rr.Header().Get("Set-Cookie"); got != "" {
			t.Fatalf("Write(%+v) Set-Cookie = %q, want empty", notice, got)
		}
	}
}

func TestWriteTruncatesLongMessages(t *testing.T) {
	t.Parallel()

	got, ok := normalizeNotice(Error(strings.Repeat("é", maxMessageBytes)))
	if !ok {
		t.Fatal("expected notice")
	}
	if len(got.Message) > maxMessageBytes || !strings.HasPrefix(got.Message, "é") {
		t.Fatalf("message len = %d", len(got.Message))
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	if f, e := Split(Success("ok"), true); f != "ok" || e != "" {
		t.Fatalf("Split(success) = %q, %q", f, e)
	}
	if f, e := Split(Error("bad"), true); f != "" || e != "bad" {
		t.Fatalf("Split(error) = %q, %q", f, e)
	}
	if f, e := Split(Notice{}, false); f != "" || e != "" {
		t.Fatalf("Split(none) = %q, %q", f, e)
	}
}
