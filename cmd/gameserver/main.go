package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"kickshift/backend/internal/config"
	"kickshift/backend/internal/metrics"
	"kickshift/backend/internal/shared/logger"
	"kickshift/backend/internal/shared/types"
	"kickshift/backend/internal/simulation"
	"kickshift/backend/internal/telemetry"
)

type client struct {
	playerID string
	conn     *websocket.Conn
	send     chan []byte
}

type server struct {
	log      zerolog.Logger
	cfg      *config.Config
	world    *simulation.World
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

func main() {
	cfg, err := config.Load(".", "./config")
	if err != nil {
		boot := logger.New("gameserver")
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	out, closeLog, err := logger.Setup(logger.Config{
		Level:          cfg.Logging.Level,
		GraylogAddress: cfg.Logging.GraylogAddress,
	})
	log := logger.With(out, "gameserver")
	if err != nil {
		log.Error().Err(err).Msg("graylog disabled")
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	opts := []simulation.Option{}

	store, err := telemetry.Open(cfg.Telemetry, log.With().Str("component", "telemetry").Logger())
	if err != nil {
		log.Error().Err(err).Msg("telemetry disabled")
	} else {
		defer store.Close()
		var points telemetry.PointWriter
		if cfg.Telemetry.Influx.Enabled {
			influx := telemetry.NewInfluxSink(cfg.Telemetry.Influx, log)
			defer influx.Close()
			points = influx
		}
		recorder := telemetry.NewRecorder(store, points, cfg.Telemetry.BufferSize, log)
		opts = append(opts, simulation.WithEventSink(recorder))
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder.Run(ctx)
		}()
	}

	s := newServer(cfg, log)

	instruments, err := metrics.New(s.humanCount)
	if err != nil {
		log.Error().Err(err).Msg("metrics disabled")
	} else {
		opts = append(opts, simulation.WithMetrics(instruments))
	}

	world, err := simulation.NewWorld(cfg.Server.MatchID, cfg, nil, log, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create world")
	}
	s.mu.Lock()
	s.world = world
	s.mu.Unlock()

	wg.Add(2)
	go func() {
		defer wg.Done()
		s.runSimulationLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.runReplicationLoop(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", cfg.Server.Addr).
		Str("match", world.Snapshot().MatchID).
		Int("tick_rate", cfg.Match.TickRate).
		Msg("authoritative game server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server failed")
		stop()
	}

	wg.Wait()
	log.Info().Msg("game server stopped")
}

func newServer(cfg *config.Config, log zerolog.Logger) *server {
	return &server{
		log: log,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*client),
	}
}

func (s *server) humanCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.world == nil {
		return 0
	}
	return s.world.HumanCount()
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = "guest_" + uuid.NewString()[:8]
	}
	displayName := r.URL.Query().Get("display_name")
	if displayName == "" {
		displayName = playerID
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	team, err := s.world.EnsurePlayer(playerID, displayName)
	if err != nil {
		s.log.Warn().Err(err).Str("player", playerID).Msg("rejected client")
		payload, _ := json.Marshal(types.ServerEnvelope{Type: "error", Message: err.Error()})
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		_ = conn.WriteMessage(websocket.TextMessage, payload)
		_ = conn.Close()
		return
	}
	c := &client{playerID: playerID, conn: conn, send: make(chan []byte, 64)}
	s.register(c)

	s.log.Info().
		Str("player", playerID).
		Int("team", team).
		Str("remote", r.RemoteAddr).
		Msg("client connected")
	state := s.world.Snapshot()
	s.enqueue(c, types.ServerEnvelope{
		Type:     "welcome",
		PlayerID: playerID,
		Tick:     state.Tick,
		State:    &state,
		ServerMS: time.Now().UTC().UnixMilli(),
		Message:  "connected",
	})

	go s.writePump(c)
	s.readPump(c)
}

func (s *server) readPump(c *client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Info().Str("player", c.playerID).Msg("client disconnected")
				return
			}
			s.log.Warn().Err(err).Str("player", c.playerID).Msg("read error")
			return
		}

		var in types.ClientEnvelope
		if err := json.Unmarshal(msg, &in); err != nil {
			s.sendError(c, "bad_payload")
			continue
		}

		switch in.Type {
		case "hello":
			state := s.world.Snapshot()
			s.enqueue(c, types.ServerEnvelope{
				Type:     "welcome",
				PlayerID: c.playerID,
				Tick:     state.Tick,
				State:    &state,
				ServerMS: time.Now().UTC().UnixMilli(),
			})
		case "input":
			if in.Input == nil {
				s.sendError(c, "missing_input")
				continue
			}
			in.Input.PlayerID = c.playerID
			if err := s.world.ApplyInput(c.playerID, *in.Input); err != nil {
				s.sendError(c, err.Error())
				continue
			}
		case "ping":
			s.enqueue(c, types.ServerEnvelope{Type: "pong", ServerMS: time.Now().UTC().UnixMilli()})
		default:
			s.sendError(c, "unsupported_message_type")
		}
	}
}

func (s *server) writePump(c *client) {
	ticker := time.NewTicker(20 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		}
	}
}

// register makes c the player's live connection. A connection it replaces
// is closed so its pumps exit; its send queue stays open until its own
// readPump unregisters it.
func (s *server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.clients[c.playerID]; ok && old != c {
		_ = old.conn.Close()
	}
	s.clients[c.playerID] = c
}

// unregister is called once per client, from its readPump, after which
// nothing else sends on c.send. The player only leaves the world if c was
// still their live connection.
func (s *server) unregister(c *client) {
	s.mu.Lock()
	current := s.clients[c.playerID] == c
	if current {
		delete(s.clients, c.playerID)
	}
	close(c.send)
	s.mu.Unlock()

	if current {
		s.world.RemovePlayer(c.playerID)
	}
}

func (s *server) enqueue(c *client, env types.ServerEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		s.log.Error().Err(err).Str("type", env.Type).Msg("marshal envelope failed")
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (s *server) sendError(c *client, message string) {
	s.enqueue(c, types.ServerEnvelope{Type: "error", Message: message})
}

func (s *server) runSimulationLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.Match.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.world.Tick()
		}
	}
}

func (s *server) runReplicationLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.Server.ReplicationRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state := s.world.Snapshot()
		payload, err := json.Marshal(types.ServerEnvelope{
			Type:     "state",
			Tick:     state.Tick,
			State:    &state,
			ServerMS: time.Now().UTC().UnixMilli(),
		})
		if err != nil {
			s.log.Error().Err(err).Msg("marshal state failed")
			continue
		}

		s.mu.RLock()
		for _, c := range s.clients {
			select {
			case c.send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}
