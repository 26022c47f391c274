package transport

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/heliosgnss/gnssd/fix"
)

// upgrader leaves origin checking to whatever reverse proxy/auth layer
// sits in front of this package; authentication is out of scope here.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fixMessage is the JSON shape pushed to every subscriber after each
// completed reporting cycle.
type fixMessage struct {
	Mode   fix.Mode `json:"mode"`
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	AltMSL float64  `json:"alt_msl"`
	Track  float64  `json:"track"`
	Speed  float64  `json:"speed"`
	Time   float64  `json:"time"`
}

// FixFeed broadcasts a session's merged Fix to every connected WebSocket
// client, a client-facing transport kept outside the core's scope
// while leaving a hook for the core to feed. Uses a connection-registry
// idiom (one *websocket.Conn per subscriber under a mutex, broadcast-
// on-event rather than per-client polling).
type FixFeed struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewFixFeed returns an empty broadcaster.
func NewFixFeed() *FixFeed {
	return &FixFeed{conns: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request to a WebSocket and registers the
// connection as a subscriber until it errors or closes.
func (f *FixFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conns[conn] = struct{}{}
	f.mu.Unlock()

	go func() {
		defer f.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (f *FixFeed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	delete(f.conns, conn)
	f.mu.Unlock()
	conn.Close()
}

// Broadcast sends fx to every subscriber, dropping (and unregistering)
// any connection whose write fails.
func (f *FixFeed) Broadcast(fx fix.Fix) {
	body, err := json.Marshal(fixMessage{
		Mode:   fx.Mode,
		Lat:    fx.Lat,
		Lon:    fx.Lon,
		AltMSL: fx.AltMSL,
		Track:  fx.Track,
		Speed:  fx.Speed,
		Time:   fx.Time,
	})
	if err != nil {
		return
	}

	f.mu.Lock()
	dead := make([]*websocket.Conn, 0)
	for conn := range f.conns {
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			dead = append(dead, conn)
		}
	}
	f.mu.Unlock()

	for _, conn := range dead {
		f.remove(conn)
	}
}
