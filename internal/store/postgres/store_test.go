package postgres_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/interviewassist/internal/pipeline"
	"github.com/MrWong99/interviewassist/internal/store/postgres"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if INTERVIEWASSIST_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("INTERVIEWASSIST_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INTERVIEWASSIST_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS transcript_events"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	pool.Close()

	store, err := postgres.New(ctx, dsn, postgres.WithFlushInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func waitRecent(t *testing.T, store *postgres.Store, sessionID string, n int) []pipeline.TranscriptEvent {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		evs, err := store.Recent(context.Background(), sessionID, 100)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(evs) >= n || time.Now().After(deadline) {
			return evs
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	store.Publish(pipeline.TranscriptEvent{Text: "first", Kind: pipeline.KindLive, SessionID: "a", Timestamp: now, Duration: 1500 * time.Millisecond})
	store.Publish(pipeline.TranscriptEvent{Text: "other", Kind: pipeline.KindDiagnostic, SessionID: "b", Timestamp: now})
	store.Publish(pipeline.TranscriptEvent{Text: "second", Kind: pipeline.KindLive, SessionID: "a", Timestamp: now})

	evs := waitRecent(t, store, "a", 2)
	if len(evs) != 2 {
		t.Fatalf("got %d events for session a, want 2", len(evs))
	}
	if evs[0].Text != "first" || evs[1].Text != "second" {
		t.Errorf("order = [%q %q], want [first second]", evs[0].Text, evs[1].Text)
	}
	if evs[0].Duration != 1500*time.Millisecond || evs[0].Kind != pipeline.KindLive {
		t.Errorf("event = %+v", evs[0])
	}
	if !evs[0].Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", evs[0].Timestamp, now)
	}

	if all := waitRecent(t, store, "", 3); len(all) != 3 {
		t.Errorf("got %d events across sessions, want 3", len(all))
	}
}

func TestStore_HTTP(t *testing.T) {
	store := newTestStore(t)
	store.Publish(pipeline.TranscriptEvent{Text: "hello", Kind: pipeline.KindLive, SessionID: "s", Timestamp: time.Now()})
	waitRecent(t, store, "s", 1)

	mux := http.NewServeMux()
	store.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transcripts?session_id=s", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 1 || body[0]["text"] != "hello" {
		t.Errorf("body = %v", body)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transcripts?limit=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", rec.Code)
	}
}
