package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	general_i "github.com/beka-birhanu/vinom-common/interfaces/general"
	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/payment"
	"github.com/beka-birhanu/vinom-treasure-maze/round"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matryer/way"
)

var (
	ErrNoSource = errors.New("observer needs a round source")
	ErrNoLogger = errors.New("observer needs a logger")
)

const (
	defaultInterval = time.Second
	writeTimeout    = 5 * time.Second
)

// Source reports the shared round.
type Source interface {
	Overview() (round.State, economy.Board, int64)
	ResetGameStart(ctx context.Context) (time.Time, error)
}

// History lists a player's recorded transactions.
type History interface {
	Transactions(ctx context.Context, player uuid.UUID) ([]payment.Transaction, error)
}

type Config struct {
	Source   Source
	History  History // optional
	Interval time.Duration
	Logger   general_i.Logger
}

// Server exposes the round to spectators over HTTP and websocket.
type Server struct {
	source   Source
	history  History
	interval time.Duration
	logger   general_i.Logger
	upgrader websocket.Upgrader
	router   *way.Router
}

// RoundView is the JSON document served on /round and /ws.
type RoundView struct {
	Phase                round.Phase    `json:"phase"`
	RoundNumber          int            `json:"roundNumber"`
	TimeRemainingSeconds int64          `json:"timeRemainingSeconds"`
	CanJoinNow           bool           `json:"canJoinNow"`
	Treasury             int64          `json:"treasury"`
	Rows                 int            `json:"rows"`
	Cols                 int            `json:"cols"`
	Exit                 maze.Position  `json:"exit"`
	ClaimedPlots         int            `json:"claimedPlots"`
	Treasures            []treasureView `json:"treasures"`
}

type treasureView struct {
	Col       int   `json:"col"`
	Row       int   `json:"row"`
	Value     int64 `json:"value"`
	Collected bool  `json:"collected"`
}

func NewServer(c *Config) (*Server, error) {
	if c.Source == nil {
		return nil, ErrNoSource
	}
	if c.Logger == nil {
		return nil, ErrNoLogger
	}
	s := &Server{
		source:   c.Source,
		history:  c.History,
		interval: c.Interval,
		logger:   c.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", "/round", s.RoundHandler())
	s.router.HandleFunc("GET", "/ws", s.WSHandler())
	s.router.HandleFunc("GET", "/transactions/:player", s.TransactionsHandler())
	s.router.HandleFunc("POST", "/admin/reset-start", s.ResetHandler())
}

// ServeHTTP makes the server an http.Handler.
func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

func (s *Server) view() RoundView {
	st, board, treasury := s.source.Overview()
	v := RoundView{
		Phase:                st.Phase,
		RoundNumber:          st.RoundNumber,
		TimeRemainingSeconds: int64(st.TimeRemaining / time.Second),
		CanJoinNow:           st.CanJoinNow,
		Treasury:             treasury,
		Exit:                 board.Exit,
		Treasures:            make([]treasureView, 0, len(board.Treasures)),
	}
	if board.Maze != nil {
		v.Rows, v.Cols = board.Maze.Rows(), board.Maze.Cols()
	}
	for _, row := range board.Plots {
		for _, p := range row {
			if p.Owned() {
				v.ClaimedPlots++
			}
		}
	}
	for _, t := range board.Treasures {
		v.Treasures = append(v.Treasures, treasureView{Col: t.Col, Row: t.Row, Value: t.Value, Collected: t.Collected})
	}
	return v
}

func (s *Server) RoundHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, s.view())
	}
}

// WSHandler pushes the round view every interval until the client goes away.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.logger.Info(fmt.Sprintf("observer connected from %s", r.RemoteAddr))

		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		x := time.NewTicker(s.interval)
		defer x.Stop()
		for {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(s.view()); err != nil {
				s.logger.Warning(fmt.Sprintf("observer %s dropped: %s", r.RemoteAddr, err))
				return
			}
			select {
			case <-gone:
				s.logger.Info(fmt.Sprintf("observer %s left", r.RemoteAddr))
				return
			case <-x.C:
			}
		}
	}
}

func (s *Server) TransactionsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			http.Error(rw, "history disabled", http.StatusNotFound)
			return
		}
		player, err := uuid.Parse(way.Param(r.Context(), "player"))
		if err != nil {
			http.Error(rw, "bad player id", http.StatusBadRequest)
			return
		}
		txs, err := s.history.Transactions(r.Context(), player)
		if err != nil {
			s.logger.Error(fmt.Sprintf("listing transactions of %s: %s", player, err))
			http.Error(rw, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(rw, http.StatusOK, txs)
	}
}

// ResetHandler is the operator action restarting round numbering. Loopback only.
func (s *Server) ResetHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		t, err := s.source.ResetGameStart(r.Context())
		if err != nil {
			s.logger.Error(fmt.Sprintf("resetting game start: %s", err))
			http.Error(rw, "internal error", http.StatusInternalServerError)
			return
		}
		s.logger.Warning(fmt.Sprintf("game start reset by %s", r.RemoteAddr))
		writeJSON(rw, http.StatusOK, map[string]int64{"gameStartEpochMs": t.UnixMilli()})
	}
}

func writeJSON(rw http.ResponseWriter, code int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
