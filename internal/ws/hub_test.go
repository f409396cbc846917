package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wirnn/wirnn-service/internal/efd"
	wsHub "github.com/wirnn/wirnn-service/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

// fakeQuerier returns a fixed table per topic and records the Start bound
// of every request.
type fakeQuerier struct {
	mu     sync.Mutex
	tables map[string]efd.Table
	starts []time.Time
}

func (f *fakeQuerier) SelectTimeSeries(_ context.Context, req efd.TimeSeriesRequest) (efd.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Start != nil {
		f.starts = append(f.starts, *req.Start)
	}
	return f.tables[req.Topic], nil
}

func sampleTable() efd.Table {
	return efd.Table{
		Name:    "lsst.sal.ATDome.position",
		Columns: []string{"azimuthPosition"},
		Index:   []time.Time{time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		Rows:    [][]interface{}{{10.5}},
	}
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
func startHub(t *testing.T, q wsHub.Querier, topics []string) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(q, topics, testInterval, nil)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesHello(t *testing.T) {
	q := &fakeQuerier{tables: map[string]efd.Table{}}
	wsURL, _, _ := startHub(t, q, []string{"a.topic", "b.topic"})

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["event"] != "hello" {
		t.Errorf("event: got %v, want hello", m["event"])
	}
	topics, ok := m["topics"].([]interface{})
	if !ok || len(topics) != 2 {
		t.Errorf("topics: got %v, want 2 entries", m["topics"])
	}
}

func TestHub_BroadcastsSamplesOnTick(t *testing.T) {
	q := &fakeQuerier{tables: map[string]efd.Table{"lsst.sal.ATDome.position": sampleTable()}}
	wsURL, _, _ := startHub(t, q, []string{"lsst.sal.ATDome.position"})

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume hello

	msg := readMessage(t, conn)
	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["event"] != "samples" {
		t.Errorf("event: got %v, want samples", m["event"])
	}
	if m["topic"] != "lsst.sal.ATDome.position" {
		t.Errorf("topic: got %v", m["topic"])
	}
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	rows, ok := data["rows"].([]interface{})
	if !ok || len(rows) != 1 {
		t.Errorf("rows: got %v, want 1 row", data["rows"])
	}
}

func TestHub_EmptyTable_NoBroadcast(t *testing.T) {
	q := &fakeQuerier{tables: map[string]efd.Table{}}
	wsURL, _, _ := startHub(t, q, []string{"quiet.topic"})

	conn := dial(t, wsURL)
	readMessage(t, conn) // hello

	// No samples should arrive while the topic has no fresh rows.
	conn.SetReadDeadline(time.Now().Add(5 * testInterval))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read deadline to expire without a broadcast")
	}
}

func TestHub_CursorAdvances(t *testing.T) {
	q := &fakeQuerier{tables: map[string]efd.Table{}}
	_, _, _ = startHub(t, q, []string{"t"})

	// Wait for a few ticks to accumulate polls.
	time.Sleep(5 * testInterval)

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.starts) < 2 {
		t.Fatalf("polls: got %d, want at least 2", len(q.starts))
	}
	for i := 1; i < len(q.starts); i++ {
		if q.starts[i].Before(q.starts[i-1]) {
			t.Errorf("cursor moved backwards: %v then %v", q.starts[i-1], q.starts[i])
		}
	}
}

func TestHub_CountClients(t *testing.T) {
	q := &fakeQuerier{tables: map[string]efd.Table{}}
	wsURL, hub, _ := startHub(t, q, nil)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume hello
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	q := &fakeQuerier{tables: map[string]efd.Table{}}
	wsURL, hub, cancel := startHub(t, q, nil)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel()

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	q := &fakeQuerier{tables: map[string]efd.Table{}}
	hub := wsHub.New(q, nil, testInterval, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
