package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub("")
	server := httptest.NewServer(h.Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, err := websocket.Dial(url, "", server.URL)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.Stats().Clients == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Publish("n1/links/dr16", []byte{1, 2, 3}))
	var pkt []byte
	require.NoError(t, websocket.Message.Receive(conn, &pkt))
	require.Equal(t, []byte{1, 2, 3}, pkt)
	require.Equal(t, uint32(1), h.Stats().Sent)

	conn.Close()
	require.Eventually(t, func() bool {
		return h.Stats().Clients == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHubDropsForSlowClient(t *testing.T) {
	h := &Hub{Backlog: 1}
	c := &client{ch: make(chan []byte, 1)}
	h.clients = map[*client]struct{}{c: {}}
	require.NoError(t, h.Publish("t", []byte{1}))
	require.NoError(t, h.Publish("t", []byte{2}))
	stats := h.Stats()
	require.Equal(t, uint32(1), stats.Sent)
	require.Equal(t, uint32(1), stats.Dropped)
	require.Equal(t, []byte{1}, <-c.ch)
}
