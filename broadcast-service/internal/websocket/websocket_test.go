package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwang/auction-platform/shared/logging"
)

func startServer(t *testing.T, latest LatestFunc) (*Manager, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	manager := NewManager(logging.Discard())
	go manager.Run(ctx)

	srv := httptest.NewServer(NewHandler(manager, latest, logging.Discard()).SetupRoutes())
	t.Cleanup(srv.Close)
	return manager, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestWelcomeThenLatestState(t *testing.T) {
	latest := func(ctx context.Context, auctionID string) ([]byte, error) {
		return []byte(`{"type":"auction","auction_id":"` + auctionID + `","payload":{"current_bid":80}}`), nil
	}
	_, srv := startServer(t, latest)

	conn := dial(t, srv, "/ws/auctions/5")

	welcome := readJSON(t, conn)
	assert.Equal(t, "connected", welcome["type"])
	assert.Equal(t, "5", welcome["auction_id"])
	assert.NotEmpty(t, welcome["client_id"])

	state := readJSON(t, conn)
	assert.Equal(t, "auction", state["type"])
	assert.Equal(t, "5", state["auction_id"])
}

func TestBroadcastRoutesByAuction(t *testing.T) {
	manager, srv := startServer(t, nil)

	watcher := dial(t, srv, "/ws/auctions/1")
	other := dial(t, srv, "/ws/auctions/2")
	all := dial(t, srv, "/ws/updates")
	for _, conn := range []*websocket.Conn{watcher, other, all} {
		readJSON(t, conn)
	}

	require.Eventually(t, func() bool {
		return manager.GetSubscriberCount("1") == 1 &&
			manager.GetSubscriberCount("2") == 1 &&
			manager.GetSubscriberCount(AllAuctions) == 1
	}, 2*time.Second, 10*time.Millisecond)

	manager.Broadcast("1", []byte(`{"type":"auction","auction_id":"1"}`))

	assert.Equal(t, "1", readJSON(t, watcher)["auction_id"])
	assert.Equal(t, "1", readJSON(t, all)["auction_id"])

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "client on another auction receives nothing")
}

func TestDisconnectUnregisters(t *testing.T) {
	manager, srv := startServer(t, nil)

	conn := dial(t, srv, "/ws/auctions/9")
	readJSON(t, conn)
	require.Eventually(t, func() bool { return manager.GetSubscriberCount("9") == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return manager.GetSubscriberCount("9") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	manager := NewManager(logging.Discard())
	client := &Client{ID: "c1", AuctionID: "1", Send: make(chan []byte, 1)}

	manager.mu.Lock()
	manager.rooms["1"] = map[*Client]struct{}{client: {}}
	manager.mu.Unlock()

	manager.UnregisterClient(client)
	manager.UnregisterClient(client)

	assert.Equal(t, 0, manager.GetSubscriberCount("1"))
	_, open := <-client.Send
	assert.False(t, open)
}

func TestSlowClientIsDropped(t *testing.T) {
	manager := NewManager(logging.Discard())
	slow := &Client{ID: "slow", AuctionID: "1", Send: make(chan []byte)}

	manager.mu.Lock()
	manager.rooms["1"] = map[*Client]struct{}{slow: {}}
	manager.mu.Unlock()

	manager.broadcastToAuction("1", []byte("x"))

	assert.Equal(t, 0, manager.GetSubscriberCount("1"))
}

func TestStats(t *testing.T) {
	_, srv := startServer(t, nil)

	resp, err := http.Get(srv.URL + "/stats/auctions/3")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "3", body["auction_id"])
	assert.Equal(t, float64(0), body["subscribers"])
}
