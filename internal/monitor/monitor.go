// Package monitor serves a live view of a running acquisition: a
// websocket stream of readings and a JSON status endpoint.
package monitor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/mutker/smuctl/internal/analysis"
	"codeberg.org/mutker/smuctl/internal/config"
	"codeberg.org/mutker/smuctl/internal/errors"
	"codeberg.org/mutker/smuctl/internal/logger"
	"codeberg.org/mutker/smuctl/internal/series"
)

const shutdownTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// reading is the wire form of one live sample.
type reading struct {
	Seq     int     `json:"seq"`
	Elapsed float64 `json:"elapsed_s"`
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	Power   float64 `json:"power_w"`
}

// Status reports the progress of the run being monitored.
type Status struct {
	Resource  string    `json:"resource"`
	Requested int       `json:"requested"`
	Collected int       `json:"collected"`
	Clients   int       `json:"clients"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Server streams readings to connected websocket clients while a run
// is in progress. It never fails the run: clients that cannot keep up
// are dropped.
type Server struct {
	srv     *http.Server
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	status  Status
}

func NewServer(cfg config.Monitor, setup series.Setup) *Server {
	s := &Server{
		clients: make(map[*websocket.Conn]bool),
		status: Status{
			Resource:  setup.Resource,
			Requested: setup.Requested,
		},
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.GET("/live", s.handleLive)
	router.GET("/status", s.handleStatus)

	s.srv = &http.Server{Addr: cfg.Listen, Handler: router}

	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	logger.Info().Str("listen", s.srv.Addr).Msg("live monitor listening")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Msg("monitor server stopped")
		}
	}()
}

// OnReading updates the run status and broadcasts the sample to every
// connected client.
func (s *Server) OnReading(seq int, r series.Reading) {
	msg := reading{
		Seq:     seq,
		Elapsed: r.Elapsed.Seconds(),
		Voltage: r.Voltage,
		Current: r.Current,
		Power:   analysis.Power(r),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Collected = seq + 1
	s.status.UpdatedAt = time.Now()

	for client := range s.clients {
		if err := client.WriteJSON(msg); err != nil {
			logger.Debug().Err(err).Msg("dropping monitor client")
			client.Close()
			delete(s.clients, client)
		}
	}
}

// Close disconnects all clients and shuts the server down.
func (s *Server) Close() {
	s.mu.Lock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("monitor shutdown failed")
	}
}

func (s *Server) handleLive(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.mu.Unlock()

	logger.Debug().Int("clients", total).Msg("monitor client connected")

	// Block until the client goes away. Reads also service control
	// frames, so close handshakes complete cleanly.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	if s.clients[conn] {
		conn.Close()
		delete(s.clients, conn)
	}
	s.mu.Unlock()
}

func (s *Server) handleStatus(c *gin.Context) {
	s.mu.Lock()
	status := s.status
	status.Clients = len(s.clients)
	s.mu.Unlock()

	c.JSON(http.StatusOK, status)
}
