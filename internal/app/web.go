package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/activity_computer/internal/activity"
	"github.com/relabs-tech/activity_computer/internal/ble"
)

var errUnknownAction = errors.New("unknown action")

// Server exposes one activity session over HTTP and websocket, plus the
// wearable manager when one is configured.
type Server struct {
	session  *activity.Session
	hub      *Hub
	devices  *ble.Manager
	scan     ble.ScanOptions
	router   *mux.Router
	onFinish func(activity.Summary)

	mu         sync.Mutex
	discovered map[string]ble.Device
}

// NewServer wires the routes. devices may be nil.
func NewServer(session *activity.Session, hub *Hub, devices *ble.Manager, scan ble.ScanOptions) *Server {
	s := &Server{
		session:    session,
		hub:        hub,
		devices:    devices,
		scan:       scan,
		discovered: map[string]ble.Device{},
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "OK %s clients=%d\n", session.State(), hub.Len())
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/session", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/session/route", s.handleRoute).Methods(http.MethodGet)
	r.HandleFunc("/api/session/{action}", s.handleAction).Methods(http.MethodPost)
	r.HandleFunc("/ws/session", s.handleWS)

	if devices != nil {
		r.HandleFunc("/api/wearables", s.handleWearables).Methods(http.MethodGet)
		r.HandleFunc("/api/wearables/scan", s.handleScan).Methods(http.MethodPost)
		r.HandleFunc("/api/wearables/{id}/connect", s.handleConnect).Methods(http.MethodPost)
		r.HandleFunc("/api/wearables/{id}/sync", s.handleSync).Methods(http.MethodPost)
		r.HandleFunc("/api/wearables/{id}", s.handleDisconnect).Methods(http.MethodDelete)
	}

	// Static files from ./web as the root
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("web")))

	s.router = r
	return s
}

// OnFinish registers a callback for every finished session.
func (s *Server) OnFinish(fn func(activity.Summary)) {
	s.onFinish = fn
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// apply runs one lifecycle action and returns what the caller should see.
func (s *Server) apply(ctx context.Context, action string) (any, error) {
	switch action {
	case "start":
		if err := s.session.Start(ctx); err != nil {
			return nil, err
		}
	case "pause":
		if err := s.session.Pause(); err != nil {
			return nil, err
		}
	case "resume":
		if err := s.session.Resume(); err != nil {
			return nil, err
		}
	case "finish":
		summary, err := s.session.Finish()
		if err != nil {
			return nil, err
		}
		s.hub.Broadcast(WSMessage{Type: "summary", Summary: &summary})
		if s.onFinish != nil {
			s.onFinish(summary)
		}
		return summary, nil
	case "reset":
		s.session.Reset()
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownAction, action)
	}
	return s.session.Snapshot(), nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Route())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	out, err := s.apply(r.Context(), action)
	switch {
	case errors.Is(err, errUnknownAction):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, activity.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		log.Printf("web: %s error: %v", action, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

// handleWS streams session updates and accepts lifecycle commands.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientQueue)}
	s.hub.add(c)
	go c.writeLoop()
	defer s.hub.remove(c)

	snap := s.session.Snapshot()
	s.hub.queue(c, WSMessage{Type: "snapshot", Snapshot: &snap})

	for {
		var cmd WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket read error: %v", err)
			}
			return
		}
		if _, err := s.apply(context.Background(), cmd.Action); err != nil {
			s.hub.queue(c, WSMessage{Type: "error", Message: err.Error()})
		}
	}
}

func (s *Server) handleWearables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.devices.Devices())
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	opts := s.scan
	if opts.Duration <= 0 {
		opts.Duration = 10 * time.Second
	}
	var found []ble.Device
	err := s.devices.Scan(r.Context(), opts, func(d ble.Device) {
		found = append(found, d)
		s.mu.Lock()
		s.discovered[d.ID] = d
		s.mu.Unlock()
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ble.ErrPoweredOff) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	if found == nil {
		found = []ble.Device{}
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	dev, ok := s.discovered[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "device not discovered", http.StatusNotFound)
		return
	}
	cd, err := s.devices.Connect(r.Context(), dev)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, cd)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	cd, err := s.devices.Sync(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cd)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.devices.Disconnect(mux.Vars(r)["id"]); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
