package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/groupweaver/internal/hub"
	"github.com/matheus3301/groupweaver/internal/model"
	"github.com/matheus3301/groupweaver/internal/store"
)

type notification struct {
	action  string
	details string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (r *recordingNotifier) NotifyDataChange(_ context.Context, action, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notification{action, details})
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func startWatcher(t *testing.T) (*store.FileStore, *recordingNotifier) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "storage.json"))
	if err != nil {
		t.Fatal(err)
	}
	n := &recordingNotifier{}
	w, err := New(s, n, nil, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return s, n
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestExternalEditIsReported(t *testing.T) {
	s, n := startWatcher(t)

	content := `{"lists":[{"id":"X","name":"Edited","members":[]}],"logs":[],"last_sync":null}`
	if err := os.WriteFile(s.Path(), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, func() bool { return n.count() > 0 }) {
		t.Fatal("external edit was not reported")
	}
	n.mu.Lock()
	got := n.calls[0]
	n.mu.Unlock()
	if got.action != hub.ActionStoreReloaded || got.details != "storage.json" {
		t.Errorf("notification = %+v", got)
	}
}

func TestExternalEditReportedAfterRead(t *testing.T) {
	s, n := startWatcher(t)

	content := `{"lists":[{"id":"X","name":"Edited","members":[]}],"logs":[],"last_sync":null}`
	if err := os.WriteFile(s.Path(), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	// A read inside the debounce window must not claim the edit as the store's own.
	lists, err := s.Lists()
	if err != nil {
		t.Fatal(err)
	}
	if len(lists) != 1 || lists[0].ID != "X" {
		t.Fatalf("lists = %+v, want the edited document", lists)
	}

	if !waitFor(t, func() bool { return n.count() > 0 }) {
		t.Fatal("external edit followed by a read was not reported")
	}
}

func TestOwnWritesAreIgnored(t *testing.T) {
	s, n := startWatcher(t)

	for i := 0; i < 3; i++ {
		err := s.Update(func(doc *model.Document) error {
			doc.Lists = append(doc.Lists, model.BroadcastList{ID: "L", Members: []model.Contact{}})
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(200 * time.Millisecond)
	if got := n.count(); got != 0 {
		t.Errorf("own writes produced %d notifications, want 0", got)
	}
}

func TestBurstIsDebounced(t *testing.T) {
	s, n := startWatcher(t)

	for i := 0; i < 5; i++ {
		content := []byte(`{"lists":[],"logs":[],"last_sync":null}` + string(rune('a'+i)))
		if err := os.WriteFile(s.Path(), content, 0600); err != nil {
			t.Fatal(err)
		}
	}
	if !waitFor(t, func() bool { return n.count() > 0 }) {
		t.Fatal("burst was not reported")
	}
	time.Sleep(100 * time.Millisecond)
	if got := n.count(); got != 1 {
		t.Errorf("burst produced %d notifications, want 1", got)
	}
}

func TestStopWithoutStart(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "storage.json"))
	if err != nil {
		t.Fatal(err)
	}
	w, err := New(s, &recordingNotifier{}, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
