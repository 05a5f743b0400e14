package profiler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T, svc ChatService, cfg StoreConfig) (*SessionStore, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.md" {
			http.Error(w, "not here", http.StatusNotFound)
			return
		}
		w.Write([]byte("doc:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	loader := NewLoader(srv.Client())
	factory := func(config Config) *Profiler {
		return New(config, svc, loader, nil)
	}
	return NewSessionStore(factory, cfg, nil), srv
}

func TestStoreCreateStartsWithEmptyHistory(t *testing.T) {
	store, srv := newTestStore(t, &scriptedChat{}, StoreConfig{})

	id, err := store.Create(context.Background(), []string{srv.URL + "/a.md"}, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("empty session id")
	}

	history, err := store.History(id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("fresh session history length = %d, want 0", len(history))
	}
}

func TestStoreCreateLoadFailureCreatesNoSession(t *testing.T) {
	store, srv := newTestStore(t, &scriptedChat{}, StoreConfig{})

	_, err := store.Create(context.Background(), []string{srv.URL + "/a.md", srv.URL + "/missing.md"}, 0)
	if err == nil {
		t.Fatal("expected create to fail when one document fetch fails")
	}
	if store.Len() != 0 {
		t.Errorf("store has %d sessions after failed create, want 0", store.Len())
	}
}

func TestStoreChatAndTokenCount(t *testing.T) {
	store, srv := newTestStore(t, &scriptedChat{replies: []string{"the answer"}}, StoreConfig{})

	id, err := store.Create(context.Background(), []string{srv.URL + "/a.md"}, 0)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := store.Chat(context.Background(), id, "question")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp != "the answer" {
		t.Errorf("chat response = %q", resp)
	}

	before, err := store.TokenCount(id)
	if err != nil {
		t.Fatal(err)
	}
	if before <= 0 {
		t.Errorf("token count = %d, want > 0", before)
	}

	if err := store.ClearHistory(id); err != nil {
		t.Fatal(err)
	}
	after, err := store.TokenCount(id)
	if err != nil {
		t.Fatal(err)
	}
	if after >= before {
		t.Errorf("token count after clear = %d, want < %d", after, before)
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store, srv := newTestStore(t, &scriptedChat{}, StoreConfig{})

	id, err := store.Create(context.Background(), []string{srv.URL + "/a.md"}, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !store.Delete(id) {
		t.Error("first delete returned false")
	}
	if store.Delete(id) {
		t.Error("second delete returned true, want no-op false")
	}

	if _, err := store.History(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("history after delete: err = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.Chat(context.Background(), id, "hi"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("chat after delete: err = %v, want ErrSessionNotFound", err)
	}
}

func TestStoreUnknownSessionUniformError(t *testing.T) {
	store, _ := newTestStore(t, &scriptedChat{}, StoreConfig{})

	if _, err := store.Chat(context.Background(), "nope", "hi"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("chat: %v", err)
	}
	if _, err := store.History("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("history: %v", err)
	}
	if _, err := store.TokenCount("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("token count: %v", err)
	}
	if err := store.ClearHistory("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("clear: %v", err)
	}
	if err := store.SetTone("nope", ToneFunny); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("set tone: %v", err)
	}
}

func TestStoreSweepEvictsOnlyIdleSessions(t *testing.T) {
	store, srv := newTestStore(t, &scriptedChat{}, StoreConfig{IdleTimeout: 50 * time.Millisecond})

	idle, err := store.Create(context.Background(), []string{srv.URL + "/a.md"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	active, err := store.Create(context.Background(), []string{srv.URL + "/b.md"}, 0)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(70 * time.Millisecond)
	// Touching the active session resets its idle clock.
	if _, err := store.History(active); err != nil {
		t.Fatal(err)
	}

	if removed := store.SweepExpired(); removed != 1 {
		t.Errorf("sweep removed %d sessions, want 1", removed)
	}
	if _, err := store.History(idle); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("idle session still reachable after sweep: %v", err)
	}
	if _, err := store.History(active); err != nil {
		t.Errorf("active session evicted: %v", err)
	}
}

func TestStoreStartSweepRunsInBackground(t *testing.T) {
	store, srv := newTestStore(t, &scriptedChat{}, StoreConfig{
		IdleTimeout:   20 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	})

	id, err := store.Create(context.Background(), []string{srv.URL + "/a.md"}, 0)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartSweep(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.Len() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s not evicted by background sweep", id)
}

func TestStoreConcurrentChatsOnDistinctSessions(t *testing.T) {
	store, srv := newTestStore(t, &scriptedChat{}, StoreConfig{})

	ids := make([]string, 8)
	for i := range ids {
		id, err := store.Create(context.Background(), []string{srv.URL + "/a.md"}, 0)
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := store.Chat(context.Background(), id, "ping"); err != nil {
					t.Errorf("chat: %v", err)
				}
			}(id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		history, err := store.History(id)
		if err != nil {
			t.Fatal(err)
		}
		if len(history) != 8 {
			t.Errorf("session %s history length = %d, want 8", id, len(history))
		}
	}
}
