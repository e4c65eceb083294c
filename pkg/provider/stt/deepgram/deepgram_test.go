package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func assertEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestBuildURL(t *testing.T) {
	p, err := New("key", WithModel("base"), WithLanguage("de-DE"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw, err := p.buildURL()
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	u, _ := url.Parse(raw)
	q := u.Query()

	assertEqual(t, "host", "api.deepgram.com", u.Host)
	assertEqual(t, "model", "base", q.Get("model"))
	assertEqual(t, "language", "de-DE", q.Get("language"))
	assertEqual(t, "encoding", "linear16", q.Get("encoding"))
	assertEqual(t, "sample_rate", "16000", q.Get("sample_rate"))
	assertEqual(t, "channels", "1", q.Get("channels"))
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantText  string
		wantFinal bool
		wantDone  bool
	}{
		{"final", `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":" hello "}]}}`, "hello", true, false},
		{"interim", `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`, "hel", false, false},
		{"metadata", `{"type":"Metadata"}`, "", false, true},
		{"no alternatives", `{"type":"Results","is_final":true,"channel":{}}`, "", true, false},
		{"other", `{"type":"SpeechStarted"}`, "", false, false},
		{"garbage", `not json`, "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, final, done := parseMessage([]byte(tt.in))
			if text != tt.wantText || final != tt.wantFinal || done != tt.wantDone {
				t.Errorf("got (%q, %v, %v), want (%q, %v, %v)", text, final, done, tt.wantText, tt.wantFinal, tt.wantDone)
			}
		})
	}
}

// fakeDeepgram accepts one streaming session, counts audio bytes until
// CloseStream, then replies with results and metadata.
type fakeDeepgram struct {
	mu         sync.Mutex
	audioBytes int
	auth       string
	replies    []string
}

func (f *fakeDeepgram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.auth = r.Header.Get("Authorization")
	f.mu.Unlock()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()
	ctx := r.Context()

	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ == websocket.MessageText {
			break
		}
		f.mu.Lock()
		f.audioBytes += len(msg)
		f.mu.Unlock()
	}
	for _, reply := range f.replies {
		if err := conn.Write(ctx, websocket.MessageText, []byte(reply)); err != nil {
			return
		}
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func TestTranscribe(t *testing.T) {
	fake := &fakeDeepgram{replies: []string{
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"walk me"}]}}`,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"Walk me through"}]}}`,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"your last project."}]}}`,
		`{"type":"Metadata"}`,
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	p, err := New("secret", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	samples := make([]float32, 4000)
	text, err := p.Transcribe(ctx, samples)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	assertEqual(t, "text", "Walk me through your last project.", text)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.audioBytes != 8000 {
		t.Errorf("audio bytes = %d, want 8000", fake.audioBytes)
	}
	assertEqual(t, "authorization", "Token secret", fake.auth)
}

func TestTranscribe_ServerClosesWithoutMetadata(t *testing.T) {
	fake := &fakeDeepgram{replies: []string{
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"Thanks."}]}}`,
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	p, _ := New("secret", WithEndpoint(srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	text, err := p.Transcribe(ctx, make([]float32, 100))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	assertEqual(t, "text", "Thanks.", text)
}

func TestTranscribe_DialError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p, _ := New("secret", WithEndpoint(srv.URL))
	if _, err := p.Transcribe(context.Background(), make([]float32, 10)); err == nil {
		t.Fatal("expected dial error")
	}
}
