package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quantfade/longshot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(url string) Config {
	return Config{
		URL:                   url,
		DialTimeout:           time.Second,
		PongTimeout:           time.Second,
		PingInterval:          time.Second,
		ReconnectInitialDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:     100 * time.Millisecond,
		ReconnectBackoffMult:  2.0,
		EventBufferSize:       16,
		Logger:                zap.NewNop(),
	}
}

func TestNew(t *testing.T) {
	mgr := New(testConfig("wss://feed.example.com/ws/v2"))

	require.NotNil(t, mgr)
	assert.NotNil(t, mgr.reconnectMgr)
	assert.NotNil(t, mgr.eventChan)
	assert.Equal(t, 16, cap(mgr.eventChan))
	assert.False(t, mgr.connected.Load())
}

// feedServer upgrades the connection, checks the subscribe command and
// then writes the given frames.
func feedServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, sub, err := conn.ReadMessage()
		if err != nil {
			return
		}
		assert.Contains(t, string(sub), `"cmd":"subscribe"`)
		assert.Contains(t, string(sub), `"trade"`)

		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}

		// Hold the connection open until the client hangs up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartDeliversTradeEvents(t *testing.T) {
	srv := feedServer(t,
		`{"type":"subscribed","msg":{}}`,
		`{"type":"trade","msg":{"market_ticker":"KXNBAGAME-25JAN15LACBOS-LAC","yes_price":12,"count":5,"taker_side":"no","ts":1736899200}}`,
	)

	mgr := New(testConfig(wsURL(srv)))
	require.NoError(t, mgr.Start())
	defer mgr.Close()

	select {
	case event := <-mgr.EventChan():
		assert.Equal(t, "KXNBAGAME-25JAN15LACBOS-LAC", event.MarketTicker)
		assert.Equal(t, 12, event.YesPrice)
		assert.Equal(t, 5, event.Count)
		assert.Equal(t, "no", event.TakerSide)
		assert.Equal(t, time.Unix(1736899200, 0).UTC(), event.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trade event")
	}
}

func TestControlFramesAreNotDelivered(t *testing.T) {
	srv := feedServer(t,
		`{"type":"subscribed","msg":{}}`,
		`{"type":"heartbeat","msg":{}}`,
		`{"type":"trade","msg":{"market_ticker":"KXNBAGAME-25JAN15LACBOS-LAC","yes_price":85,"count":1,"taker_side":"yes","ts":1736899200}}`,
	)

	mgr := New(testConfig(wsURL(srv)))
	require.NoError(t, mgr.Start())
	defer mgr.Close()

	select {
	case event := <-mgr.EventChan():
		// The first delivered event must be the trade, not a control frame
		assert.Equal(t, 85, event.YesPrice)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trade event")
	}
}

func TestMalformedFrameIsSkipped(t *testing.T) {
	srv := feedServer(t,
		`not-json`,
		`{"type":"trade","msg":{"market_ticker":"KXNBAGAME-25JAN15LACBOS-LAC","yes_price":15,"count":2,"taker_side":"no","ts":1736899200}}`,
	)

	mgr := New(testConfig(wsURL(srv)))
	require.NoError(t, mgr.Start())
	defer mgr.Close()

	select {
	case event := <-mgr.EventChan():
		assert.Equal(t, 15, event.YesPrice)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trade event")
	}
}

func TestStartFailsWhenFeedUnreachable(t *testing.T) {
	mgr := New(testConfig("ws://127.0.0.1:1/ws/v2"))

	err := mgr.Start()
	assert.Error(t, err)
}

func TestEventChanBuffered(t *testing.T) {
	frames := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		frames = append(frames, `{"type":"trade","msg":{"market_ticker":"KXNBAGAME-25JAN15LACBOS-LAC","yes_price":10,"count":1,"taker_side":"no","ts":1736899200}}`)
	}
	srv := feedServer(t, frames...)

	mgr := New(testConfig(wsURL(srv)))
	require.NoError(t, mgr.Start())
	defer mgr.Close()

	received := make([]types.TradeEvent, 0, 4)
	timeout := time.After(2 * time.Second)
	for len(received) < 4 {
		select {
		case event := <-mgr.EventChan():
			received = append(received, event)
		case <-timeout:
			t.Fatalf("timed out after %d events", len(received))
		}
	}
}
