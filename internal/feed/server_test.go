package feed

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/replaykit/joyrec/internal/input"
)

type fakeHandler struct {
	mu      sync.Mutex
	events  []input.Event
	frames  []float64
	eventCh chan input.Event
}

func (h *fakeHandler) HandleEvent(ev input.Event) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	if h.eventCh != nil {
		h.eventCh <- ev
	}
}

func (h *fakeHandler) HandleFrame(ts float64) {
	h.mu.Lock()
	h.frames = append(h.frames, ts)
	h.mu.Unlock()
}

func (h *fakeHandler) eventList() []input.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]input.Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *fakeHandler) frameList() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.frames))
	copy(out, h.frames)
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6
}

func TestHandleMessageMapsAndRebases(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	h := &fakeHandler{}
	s := NewServer(h, Options{UseFeedFrames: true, Clock: func() time.Time { return now }})

	// Two seconds into the session the producer connects; its clock reads
	// 5000s. The first timestamped message anchors the offset.
	now = base.Add(2 * time.Second)

	s.handleMessage([]byte(`{"type":"hello","source":"screencap"}`))
	s.handleMessage([]byte(`{"type":"key","ts":5000000,"key":"w","pressed":true}`))
	s.handleMessage([]byte(`{"type":"key","ts":5000100,"key":"w"}`))
	s.handleMessage([]byte(`{"type":"mouse_move","ts":5000200,"x":400,"y":300}`))
	s.handleMessage([]byte(`{"type":"mouse_button","ts":4000000,"btn":"left","pressed":true}`))
	s.handleMessage([]byte(`{"type":"mouse_scroll","dy":-1}`))
	s.handleMessage([]byte(`{"type":"bogus"}`))
	s.handleMessage([]byte(`{not json`))

	events := h.eventList()
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}

	if events[0].Kind != input.KeyPress || events[0].Key != "w" || !approx(events[0].Timestamp, 2.0) {
		t.Errorf("got %+v, want w press at 2.0", events[0])
	}
	if events[1].Kind != input.KeyRelease || !approx(events[1].Timestamp, 2.1) {
		t.Errorf("got %+v, want w release at 2.1", events[1])
	}
	if events[2].Kind != input.MouseMove || events[2].X != 400 || events[2].Y != 300 {
		t.Errorf("got %+v, want mouse move to 400,300", events[2])
	}

	// A timestamp from before the anchor clamps to session start.
	if events[3].Kind != input.MouseButtonPress || events[3].Button != "left" || events[3].Timestamp != 0 {
		t.Errorf("got %+v, want left press clamped to 0", events[3])
	}

	// No producer timestamp: stamped with the listener's elapsed time.
	if events[4].Kind != input.MouseScroll || events[4].ScrollY != -1 || !approx(events[4].Timestamp, 2.0) {
		t.Errorf("got %+v, want scroll stamped at 2.0", events[4])
	}
}

func TestFrameGapCounting(t *testing.T) {
	h := &fakeHandler{}
	s := NewServer(h, Options{UseFeedFrames: true})

	s.handleMessage([]byte(`{"type":"frame","idx":0,"ts":0}`))
	s.handleMessage([]byte(`{"type":"frame","idx":1,"ts":0}`))
	s.handleMessage([]byte(`{"type":"frame","idx":4,"ts":0}`))

	if got := s.DroppedFrames(); got != 2 {
		t.Errorf("got %d dropped frames, want 2", got)
	}
	if got := len(h.frameList()); got != 3 {
		t.Errorf("got %d frames forwarded, want 3", got)
	}

	// A producer restart rewinds the index without counting a gap.
	s.handleMessage([]byte(`{"type":"frame","idx":0,"ts":0}`))
	if got := s.DroppedFrames(); got != 2 {
		t.Errorf("got %d dropped frames after restart, want still 2", got)
	}

	s.handleMessage([]byte(`{"type":"frame","idx":1,"ts":0}`))
	if got := s.DroppedFrames(); got != 2 {
		t.Errorf("got %d dropped frames, want still 2", got)
	}
}

func TestInternalFrameClockIgnoresFeedFrames(t *testing.T) {
	h := &fakeHandler{}
	s := NewServer(h, Options{UseFeedFrames: false})

	s.handleMessage([]byte(`{"type":"frame","idx":0,"ts":0}`))
	s.handleMessage([]byte(`{"type":"frame","idx":3,"ts":0}`))

	if got := len(h.frameList()); got != 0 {
		t.Errorf("got %d frames forwarded, want 0", got)
	}
	// The drop counter still works for diagnostics.
	if got := s.DroppedFrames(); got != 2 {
		t.Errorf("got %d dropped frames, want 2", got)
	}
}

func wsURL(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
}

func TestFeedOverWebsocket(t *testing.T) {
	h := &fakeHandler{eventCh: make(chan input.Event, 16)}
	s := NewServer(h, Options{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(t, srv), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(Message{Type: TypeHello, Source: "test"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(Message{Type: TypeKey, Key: "space", Pressed: true}); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-h.eventCh:
		if ev.Kind != input.KeyPress || ev.Key != "space" {
			t.Errorf("got %+v, want space press", ev)
		}
		if ev.Timestamp < 0 {
			t.Errorf("got negative timestamp %v", ev.Timestamp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	if !s.Connected() {
		t.Error("expected Connected while producer attached")
	}
}

func TestSecondProducerRejected(t *testing.T) {
	h := &fakeHandler{eventCh: make(chan input.Event, 16)}
	s := NewServer(h, Options{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	first, _, err := websocket.DefaultDialer.Dial(wsURL(t, srv), nil)
	if err != nil {
		t.Fatalf("first dial failed: %v", err)
	}
	defer func() { _ = first.Close() }()

	// The slot is taken as soon as the first producer upgrades, but give
	// the server a moment to finish the handshake.
	deadline := time.Now().Add(2 * time.Second)
	for !s.Connected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !s.Connected() {
		t.Fatal("first producer never registered")
	}

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(t, srv), nil)
	if err == nil {
		t.Fatal("expected second dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Errorf("got response %+v, want 409", resp)
	}

	// Closing the first producer frees the slot.
	_ = first.Close()
	deadline = time.Now().Add(2 * time.Second)
	for s.Connected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	third, _, err := websocket.DefaultDialer.Dial(wsURL(t, srv), nil)
	if err != nil {
		t.Fatalf("dial after disconnect failed: %v", err)
	}
	_ = third.Close()
}

func TestHealthz(t *testing.T) {
	h := &fakeHandler{}
	s := NewServer(h, Options{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("got status %d, want 200", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode healthz response: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("got status %q, want \"ok\"", health.Status)
	}
	if health.Connected {
		t.Error("expected not connected")
	}
}
