package websocket

import (
	"context"
	"net/http"
	"sync"

	"code.hybscloud.com/atomix"
	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/rtio.go/pkg/framework"
)

// DefaultBacklog is the number of packets buffered per client.
const DefaultBacklog = 64

// Hub is a telemetry sink streaming packets to websocket clients.
// A slow client loses packets instead of stalling the publisher.
type Hub struct {
	Addr    string
	Path    string
	Backlog int

	lock    sync.RWMutex
	clients map[*client]struct{}
	sent    atomix.Uint32
	dropped atomix.Uint32
}

type client struct {
	conn *websocket.Conn
	ch   chan []byte
}

// HubStats are the counters of a Hub.
type HubStats struct {
	Clients int
	Sent    uint32
	Dropped uint32
}

// NewHub creates a Hub serving on addr.
func NewHub(addr string) *Hub {
	return &Hub{Addr: addr, Path: "/telemetry", Backlog: DefaultBacklog}
}

// Name implements framework.Named.
func (h *Hub) Name() string {
	return "websocket"
}

// Handler returns the websocket handler.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

// Publish implements telemetry.Sink. The topic is not sent; each packet
// is a self-describing Typed envelope.
func (h *Hub) Publish(topic string, packet []byte) error {
	h.lock.RLock()
	defer h.lock.RUnlock()
	for c := range h.clients {
		select {
		case c.ch <- packet:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Stats returns the counters.
func (h *Hub) Stats() HubStats {
	h.lock.RLock()
	n := len(h.clients)
	h.lock.RUnlock()
	return HubStats{Clients: n, Sent: h.sent.Load(), Dropped: h.dropped.Load()}
}

// Run implements Runnable.
func (h *Hub) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(h.Path, h.Handler())
	server := &http.Server{Addr: h.Addr, Handler: mux}
	glog.Infof("telemetry websocket on %s%s", h.Addr, h.Path)
	err := fx.RunWithContextCloser(ctx, server, server.ListenAndServe)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (h *Hub) serve(conn *websocket.Conn) {
	backlog := h.Backlog
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	c := &client{conn: conn, ch: make(chan []byte, backlog)}
	h.lock.Lock()
	if h.clients == nil {
		h.clients = make(map[*client]struct{})
	}
	h.clients[c] = struct{}{}
	h.lock.Unlock()
	glog.V(2).Infof("telemetry client %s connected", conn.Request().RemoteAddr)

	defer func() {
		h.lock.Lock()
		delete(h.clients, c)
		h.lock.Unlock()
		glog.V(2).Infof("telemetry client %s disconnected", conn.Request().RemoteAddr)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var discard []byte
		for websocket.Message.Receive(conn, &discard) == nil {
		}
	}()

	for {
		select {
		case <-done:
			return
		case pkt := <-c.ch:
			if err := websocket.Message.Send(conn, pkt); err != nil {
				return
			}
		}
	}
}
