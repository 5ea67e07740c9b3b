// Package inspect serves the state of tracked players over HTTP, for dashboards and detections running out
// of process.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/player"
	"github.com/sirupsen/logrus"
)

// PlayerSource provides the players to inspect.
type PlayerSource interface {
	Players() []*player.Player
}

// State is the JSON form of a player.State.
type State struct {
	Location     [3]float64 `json:"location"`
	Velocity     [3]float64 `json:"velocity"`
	Yaw          float64    `json:"yaw"`
	Pitch        float64    `json:"pitch"`
	OnGround     bool       `json:"on_ground"`
	Sneaking     bool       `json:"sneaking"`
	Sprinting    bool       `json:"sprinting"`
	ElytraFlying bool       `json:"elytra_flying"`
	Flying       bool       `json:"flying"`
}

func stateOf(s player.State) State {
	return State{
		Location:     s.Location(),
		Velocity:     s.Velocity(),
		Yaw:          s.Yaw(),
		Pitch:        s.Pitch(),
		OnGround:     s.OnGround(),
		Sneaking:     s.Sneaking(),
		Sprinting:    s.Sprinting(),
		ElytraFlying: s.ElytraFlying(),
		Flying:       s.Flying(),
	}
}

// Snapshot is the state of one player at one point in time.
type Snapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Current  State  `json:"current"`
	Previous State  `json:"previous"`
}

// Snapshots returns a snapshot of every player of the source, ordered by name.
func Snapshots(src PlayerSource) []Snapshot {
	players := src.Players()
	snapshots := make([]Snapshot, 0, len(players))
	for _, p := range players {
		cur, prev := p.Snapshot()
		snapshots = append(snapshots, Snapshot{
			ID:       p.ID().String(),
			Name:     p.Name(),
			Current:  stateOf(cur),
			Previous: stateOf(prev),
		})
	}
	slices.SortFunc(snapshots, func(a, b Snapshot) int {
		return strings.Compare(a.Name, b.Name)
	})
	return snapshots
}

// Server serves the players of a source. GET /players returns a snapshot of every player, and /ws upgrades
// to a websocket that receives the same snapshots at a fixed interval.
type Server struct {
	src      PlayerSource
	log      *logrus.Logger
	interval time.Duration
	upgrader websocket.Upgrader
}

// NewServer returns a Server for the source passed, pushing snapshots to websockets every interval.
func NewServer(src PlayerSource, log *logrus.Logger, interval time.Duration) *Server {
	return &Server{
		src:      src,
		log:      log,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /players", s.handlePlayers)
	mux.HandleFunc("/ws", s.handleWebsocket)
	return mux
}

// ListenAndServe serves on addr until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	s.log.Infof("inspector listening on %v", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return oerror.New("inspector: %w", err)
	}
	return nil
}

func (s *Server) handlePlayers(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Snapshots(s.src)); err != nil {
		s.log.Debugf("unable to write players: %v", err)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugf("websocket upgrade failed for %v: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	// Messages from the client are not used, but reading is needed to notice it closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		if err := conn.WriteJSON(Snapshots(s.src)); err != nil {
			return
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-t.C:
		}
	}
}
