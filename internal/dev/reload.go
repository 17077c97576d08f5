package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lalilo-dev/lalilo/internal/logger"
	"github.com/lalilo-dev/lalilo/internal/telemetry"
)

// ReloadPath is the WebSocket endpoint browsers connect to.
const ReloadPath = "/_lalilo/reload"

// writeTimeout bounds one broadcast write to a single client.
const writeTimeout = 5 * time.Second

// ReloadMessage is sent to browsers via WebSocket.
type ReloadMessage struct {
	Type  string `json:"type"`
	Force bool   `json:"force"`
}

// ReloadServer manages WebSocket connections for live reload.
type ReloadServer struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
	log      *slog.Logger
	metrics  *telemetry.Metrics
}

// NewReloadServer creates a new reload server.
func NewReloadServer(log *slog.Logger, metrics *telemetry.Metrics) *ReloadServer {
	if log == nil {
		log = logger.Discard()
	}
	return &ReloadServer{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local dev server, any origin
			},
		},
		log:     log,
		metrics: metrics,
	}
}

// HandleWebSocket upgrades the request and keeps the connection until the
// browser goes away.
func (r *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.log.Debug("reload upgrade failed", "error", err)
		return
	}

	r.mu.Lock()
	r.clients[conn] = true
	n := len(r.clients)
	r.mu.Unlock()
	r.metrics.SetReloadClients(n)

	// Browsers never send anything; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	r.remove(conn)
}

// NotifyReload tells every connected browser to reload and logs the
// changes that caused it.
func (r *ReloadServer) NotifyReload(lines []string) {
	sent := r.broadcast(ReloadMessage{Type: "reload", Force: true})
	r.metrics.RecordReload()
	r.log.Info("reload", "changes", strings.Join(lines, ", "), "clients", sent)
}

// broadcast writes msg to every client and returns how many received it.
func (r *ReloadServer) broadcast(msg ReloadMessage) int {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0
	}

	r.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	r.mu.RUnlock()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	sent := 0
	for _, client := range clients {
		client.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			r.remove(client)
			continue
		}
		sent++
	}
	return sent
}

func (r *ReloadServer) remove(conn *websocket.Conn) {
	r.mu.Lock()
	_, ok := r.clients[conn]
	delete(r.clients, conn)
	n := len(r.clients)
	r.mu.Unlock()

	if ok {
		conn.Close()
		r.metrics.SetReloadClients(n)
	}
}

// ClientCount returns the number of connected clients.
func (r *ReloadServer) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close closes all client connections.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for client := range r.clients {
		client.Close()
		delete(r.clients, client)
	}
	r.metrics.SetReloadClients(0)
}

// ReloadScript is injected into every served page.
const ReloadScript = `<script>
(function() {
    'use strict';

    var delay = 1000;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(protocol + '//' + location.host + '` + ReloadPath + `');

        ws.onopen = function() {
            delay = 1000;
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }
            if (msg.type === 'reload') {
                location.reload(msg.force);
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                delay = Math.min(delay * 2, 30000);
                connect();
            }, delay);
        };
    }

    connect();
})();
</script>`

// InjectReloadScript inserts ReloadScript before the first </head>, or
// appends it when the page has no head.
func InjectReloadScript(html string) string {
	idx := strings.Index(html, "</head>")
	if idx == -1 {
		return html + ReloadScript
	}
	return html[:idx] + ReloadScript + html[idx:]
}
