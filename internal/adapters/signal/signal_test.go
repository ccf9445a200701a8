package signal_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	adapterhttp "github.com/dkrylov/camstream/internal/adapters/http"
	"github.com/dkrylov/camstream/internal/config"
	"github.com/dkrylov/camstream/internal/relay"
)

func newSignalingServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Mode: "release",
		Signaling: config.Signaling{
			ReadLimit:  65536,
			PingPeriod: 54 * time.Second,
			SendBuffer: 32,
		},
	}
	hub := relay.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	ts := httptest.NewServer(adapterhttp.SetupRouter(cfg, hub))
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func declare(t *testing.T, ws *websocket.Conn, role string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"role","role":"`+role+`"}`)); err != nil {
		t.Fatalf("declare %s: %v", role, err)
	}
}

func readFrame(t *testing.T, ws *websocket.Conn) []byte {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}

func readType(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(readFrame(t, ws), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env.Type
}

func TestViewerJoinsBeforeSender(t *testing.T) {
	ts := newSignalingServer(t)

	v1 := dial(t, ts)
	declare(t, v1, "viewer")
	if got := readType(t, v1); got != "sender-disconnected" {
		t.Fatalf("first frame type = %q, want sender-disconnected", got)
	}

	s1 := dial(t, ts)
	declare(t, s1, "sender")
	if got := readType(t, v1); got != "sender-connected" {
		t.Fatalf("after sender joined, type = %q, want sender-connected", got)
	}
}

func TestOfferAnswerRoundTrip(t *testing.T) {
	ts := newSignalingServer(t)

	s1 := dial(t, ts)
	declare(t, s1, "sender")
	v1 := dial(t, ts)
	declare(t, v1, "viewer")
	if got := readType(t, v1); got != "sender-connected" {
		t.Fatalf("join sync type = %q", got)
	}

	offer := `{"type":"offer","sdp":"X","pass":{"through":true}}`
	if err := v1.WriteMessage(websocket.TextMessage, []byte(offer)); err != nil {
		t.Fatal(err)
	}
	if got := string(readFrame(t, s1)); got != offer {
		t.Fatalf("sender received %q, want identical offer payload", got)
	}

	answer := `{"type":"answer","sdp":"Y"}`
	if err := s1.WriteMessage(websocket.TextMessage, []byte(answer)); err != nil {
		t.Fatal(err)
	}
	if got := string(readFrame(t, v1)); got != answer {
		t.Fatalf("viewer received %q, want identical answer payload", got)
	}
}

func TestSenderDisconnectNotifiesEveryViewer(t *testing.T) {
	ts := newSignalingServer(t)

	s1 := dial(t, ts)
	declare(t, s1, "sender")

	v1 := dial(t, ts)
	declare(t, v1, "viewer")
	v2 := dial(t, ts)
	declare(t, v2, "viewer")
	for _, v := range []*websocket.Conn{v1, v2} {
		if got := readType(t, v); got != "sender-connected" {
			t.Fatalf("join sync type = %q", got)
		}
	}

	_ = s1.Close()

	for _, v := range []*websocket.Conn{v1, v2} {
		if got := readType(t, v); got != "sender-disconnected" {
			t.Fatalf("after sender close, type = %q, want sender-disconnected", got)
		}
	}
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	ts := newSignalingServer(t)

	s1 := dial(t, ts)
	declare(t, s1, "sender")
	v1 := dial(t, ts)
	declare(t, v1, "viewer")
	if got := readType(t, v1); got != "sender-connected" {
		t.Fatalf("join sync type = %q", got)
	}

	if err := v1.WriteMessage(websocket.TextMessage, []byte(`{"type":`)); err != nil {
		t.Fatal(err)
	}

	// The connection survives the protocol error: a well-formed offer sent
	// right after still relays.
	offer := `{"type":"offer","sdp":"X"}`
	if err := v1.WriteMessage(websocket.TextMessage, []byte(offer)); err != nil {
		t.Fatal(err)
	}
	if got := string(readFrame(t, s1)); got != offer {
		t.Fatalf("sender received %q after malformed frame", got)
	}
}

func TestHealthz(t *testing.T) {
	ts := newSignalingServer(t)
	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}
