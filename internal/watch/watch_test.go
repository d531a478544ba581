package watch

import (
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubBroadcastReachesConnectedClient(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for client registration")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := hub.Broadcast(Diagnostic{File: "x.cpp", Output: "hello"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.Contains(string(msg), "hello") {
		t.Fatalf("expected broadcast payload to contain output, got %s", msg)
	}
}

func TestWatcherEmitsDiagnosticOnFirstPoll(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "*.cpp")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.WriteString("int main() { return 0; }"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	f.Close()

	hub := NewHub()
	w := NewWatcher(f.Name(), time.Hour, hub)
	if err := w.checkAndEmit(); err != nil {
		t.Fatalf("checkAndEmit: %v", err)
	}
	if w.lastMod.IsZero() {
		t.Fatal("expected lastMod to be set after first poll")
	}
}

func TestWatcherSkipsUnchangedFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "*.cpp")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.WriteString("int main() { return 0; }"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	f.Close()

	hub := NewHub()
	w := NewWatcher(f.Name(), time.Hour, hub)
	if err := w.checkAndEmit(); err != nil {
		t.Fatalf("first checkAndEmit: %v", err)
	}
	first := w.lastMod
	if err := w.checkAndEmit(); err != nil {
		t.Fatalf("second checkAndEmit: %v", err)
	}
	if w.lastMod != first {
		t.Fatal("expected lastMod to be unchanged when the file was not modified")
	}
}

func TestWatcherReportsMissingFile(t *testing.T) {
	hub := NewHub()
	w := NewWatcher("/does/not/exist.cpp", time.Hour, hub)
	if err := w.checkAndEmit(); err == nil {
		t.Fatal("expected an error for a nonexistent path")
	}
}
