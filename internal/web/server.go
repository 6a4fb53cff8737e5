package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"coverforge/internal/pipeline"
	"coverforge/internal/storage"
)

// WebServer serves the render dashboard and a live result feed.
type WebServer struct {
	port     int
	upgrader websocket.Upgrader
	hub      *WebSocketHub
	store    *storage.Store
	pipeline *pipeline.Pipeline
	log      *slog.Logger
}

type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	log        *slog.Logger
}

// RenderEvent is the payload pushed to dashboard clients for each job result.
type RenderEvent struct {
	JobID     string         `json:"jobId"`
	Type      string         `json:"type"`
	Input     string         `json:"input"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewWebServer(port int, store *storage.Store, pipe *pipeline.Pipeline, log *slog.Logger) *WebServer {
	hub := &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		log:        log,
	}

	return &WebServer{
		port: port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		hub:      hub,
		store:    store,
		pipeline: pipe,
		log:      log,
	}
}

func (ws *WebServer) Start(ctx context.Context) error {
	go ws.hub.run()
	go ws.broadcastResults(ctx)

	router := mux.NewRouter()

	router.HandleFunc("/", ws.handleDashboard).Methods("GET")
	router.HandleFunc("/api/renders", ws.handleAPIRenders).Methods("GET")
	router.HandleFunc("/api/jobs", ws.handleAPIJobs).Methods("GET")
	router.HandleFunc("/ws", ws.handleWebSocket).Methods("GET")

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", ws.port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	ws.log.Info("web dashboard starting", "port", ws.port)
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// broadcastResults forwards pipeline results to connected dashboard clients.
func (ws *WebServer) broadcastResults(ctx context.Context) {
	resCh, unsubscribe := ws.pipeline.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-resCh:
			if !ok {
				return
			}
			ev := RenderEvent{
				JobID:     res.Job.ID,
				Type:      string(res.Job.Type),
				Input:     res.Job.InputPath,
				Status:    "completed",
				Meta:      res.Meta,
				Timestamp: time.Now(),
			}
			if res.Error != nil {
				ev.Status = "failed"
				ev.Error = res.Error.Error()
			}
			payload, err := json.Marshal(ev)
			if err == nil {
				ws.hub.broadcast <- payload
			}
		}
	}
}

func (ws *WebServer) handleAPIRenders(w http.ResponseWriter, r *http.Request) {
	recs, err := ws.store.RecentRenders(50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recs)
}

func (ws *WebServer) handleAPIJobs(w http.ResponseWriter, r *http.Request) {
	recs, err := ws.store.RecentJobs(50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recs)
}

func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	ws.hub.register <- conn

	go func() {
		defer func() {
			ws.hub.unregister <- conn
			conn.Close()
		}()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

func (ws *WebServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tmpl := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Coverforge Dashboard</title>
    <style>
        :root {
            --bg-primary: #0f172a;
            --bg-secondary: #1e293b;
            --text-primary: #f8fafc;
            --text-secondary: #cbd5e1;
            --accent: #3b82f6;
            --success: #10b981;
            --error: #ef4444;
            --border: #475569;
        }

        * { margin: 0; padding: 0; box-sizing: border-box; }

        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
        }

        .header {
            background: var(--bg-secondary);
            padding: 1rem 2rem;
            border-bottom: 1px solid var(--border);
            display: flex;
            justify-content: space-between;
            align-items: center;
        }

        .logo {
            font-size: 1.5rem;
            font-weight: bold;
            color: var(--accent);
        }

        .dashboard {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(400px, 1fr));
            gap: 1rem;
            padding: 2rem;
        }

        .card {
            background: var(--bg-secondary);
            border: 1px solid var(--border);
            border-radius: 8px;
            padding: 1.5rem;
        }

        .card-title {
            font-size: 1.1rem;
            font-weight: 600;
            margin-bottom: 1rem;
            padding-bottom: 0.5rem;
            border-bottom: 1px solid var(--border);
        }

        .feed-item {
            padding: 0.75rem;
            border-bottom: 1px solid var(--border);
            display: flex;
            gap: 1rem;
            align-items: baseline;
        }

        .feed-item:last-child { border-bottom: none; }

        .feed-timestamp {
            color: var(--text-secondary);
            font-size: 0.8rem;
            white-space: nowrap;
        }

        .status-badge {
            padding: 0.2rem 0.5rem;
            border-radius: 4px;
            font-size: 0.8rem;
            color: white;
        }

        .status-completed { background: var(--success); }
        .status-failed { background: var(--error); }

        .connection-status {
            padding: 0.5rem 1rem;
            border-radius: 4px;
            font-size: 0.9rem;
        }

        .connected { background: var(--success); color: white; }
        .disconnected { background: var(--error); color: white; }
    </style>
</head>
<body>
    <header class="header">
        <div class="logo">Coverforge</div>
        <div class="connection-status disconnected" id="connectionStatus">Connecting...</div>
    </header>

    <main class="dashboard">
        <div class="card">
            <div class="card-title">Live Render Feed</div>
            <div id="feed"></div>
        </div>

        <div class="card">
            <div class="card-title">Recent Renders</div>
            <div id="renders"></div>
        </div>
    </main>

    <script>
        class CoverforgeDashboard {
            constructor() {
                this.ws = null;
                this.reconnectAttempts = 0;
                this.maxReconnectAttempts = 5;
                this.connect();
                this.loadRenders();
            }

            connect() {
                const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
                this.ws = new WebSocket(protocol + '//' + window.location.host + '/ws');

                this.ws.onopen = () => {
                    this.reconnectAttempts = 0;
                    const status = document.getElementById('connectionStatus');
                    status.textContent = 'Connected';
                    status.className = 'connection-status connected';
                };

                this.ws.onmessage = (event) => {
                    this.addFeedItem(JSON.parse(event.data));
                    this.loadRenders();
                };

                this.ws.onclose = () => {
                    const status = document.getElementById('connectionStatus');
                    status.textContent = 'Disconnected';
                    status.className = 'connection-status disconnected';
                    this.reconnect();
                };
            }

            reconnect() {
                if (this.reconnectAttempts < this.maxReconnectAttempts) {
                    this.reconnectAttempts++;
                    setTimeout(() => this.connect(), 3000);
                }
            }

            addFeedItem(ev) {
                const feed = document.getElementById('feed');
                const item = document.createElement('div');
                item.className = 'feed-item';

                const detail = ev.error || (ev.meta && ev.meta.output) || '';
                item.innerHTML =
                    '<div class="feed-timestamp">' + new Date(ev.timestamp).toLocaleTimeString() + '</div>' +
                    '<span class="status-badge status-' + ev.status + '">' + ev.status + '</span>' +
                    '<div><strong>' + ev.input + '</strong> ' + detail + '</div>';

                feed.prepend(item);
                while (feed.children.length > 30) {
                    feed.removeChild(feed.lastChild);
                }
            }

            async loadRenders() {
                const resp = await fetch('/api/renders');
                if (!resp.ok) return;
                const renders = await resp.json();

                const container = document.getElementById('renders');
                container.innerHTML = '';
                (renders || []).forEach(r => {
                    const item = document.createElement('div');
                    item.className = 'feed-item';
                    item.innerHTML =
                        '<div class="feed-timestamp">' + r.created_at + '</div>' +
                        '<div><strong>' + r.cover_path + '</strong> → ' +
                        r.template_name + ' (' + r.dominant_color + ')</div>';
                    container.appendChild(item);
                });
            }
        }

        new CoverforgeDashboard();
    </script>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(tmpl))
}

func (h *WebSocketHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.log.Info("websocket client connected", "total", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				h.log.Info("websocket client disconnected", "total", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					delete(h.clients, client)
					client.Close()
				}
			}
		}
	}
}
