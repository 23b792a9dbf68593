package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type recorder struct {
	statuses []string
	done     int
	stop     bool
}

func (r *recorder) Status(msg string)   { r.statuses = append(r.statuses, msg) }
func (r *recorder) Done()               { r.done++ }
func (r *recorder) StopRequested() bool { return r.stop }

func TestMultiForwards(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b}

	m.Status("Exporting Base Frame")
	m.Done()

	for i, r := range []*recorder{a, b} {
		if len(r.statuses) != 1 || r.statuses[0] != "Exporting Base Frame" {
			t.Errorf("reporter %d: statuses = %v", i, r.statuses)
		}
		if r.done != 1 {
			t.Errorf("reporter %d: done = %d, want 1", i, r.done)
		}
	}

	if m.StopRequested() {
		t.Error("StopRequested() = true with no stop")
	}
	b.stop = true
	if !m.StopRequested() {
		t.Error("StopRequested() = false after one reporter asked to stop")
	}
}

func TestLogReporterNeverStops(t *testing.T) {
	r := LogReporter{Log: zap.NewNop()}
	r.Status("x")
	r.Done()
	if r.StopRequested() {
		t.Error("LogReporter requested a stop")
	}
}

func TestServerStatus(t *testing.T) {
	s := NewServer(zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	s.Status("Exporting Frame 3 of 10 to scene[00002].tmod")

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	var st State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if st.Status != "Exporting Frame 3 of 10 to scene[00002].tmod" {
		t.Errorf("Status = %q", st.Status)
	}
	if st.Done || st.StopRequested {
		t.Errorf("unexpected flags: %+v", st)
	}
}

func TestServerStop(t *testing.T) {
	s := NewServer(zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	if s.StopRequested() {
		t.Fatal("stop requested before POST /stop")
	}

	resp, err := http.Post(ts.URL+"/stop", "text/plain", strings.NewReader(""))
	if err != nil {
		t.Fatalf("POST /stop: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if !s.StopRequested() {
		t.Error("StopRequested() = false after POST /stop")
	}
}

func TestServerStopRejectsGet(t *testing.T) {
	s := NewServer(zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stop")
	if err != nil {
		t.Fatalf("GET /stop: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
	if s.StopRequested() {
		t.Error("GET /stop requested a stop")
	}
}

func TestServerWebsocketStream(t *testing.T) {
	s := NewServer(zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	s.Status("Exporting Base Frame")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() State {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var st State
		if err := conn.ReadJSON(&st); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		return st
	}

	// The current state is replayed on connect.
	if st := read(); st.Status != "Exporting Base Frame" {
		t.Errorf("initial Status = %q", st.Status)
	}

	s.Done()
	if st := read(); !st.Done {
		t.Errorf("Done not streamed: %+v", st)
	}
}

func TestServerStartShutdown(t *testing.T) {
	s := NewServer(zap.NewNop())
	addr, err := s.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + addr + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	resp.Body.Close()

	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
