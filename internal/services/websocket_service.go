package services

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benmeehan/location-engine/pkg/identity"
	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	clientSendBuffer = 64
	shutdownTimeout  = 5 * time.Second
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketService streams fixes to local WebSocket clients. It is a passive
// target: it never drives a provider, it only mirrors fixes other consumers cause.
type WebSocketService struct {
	listenAddr string
	request    location.Request
	deviceInfo identity.DeviceInfoInterface
	engine     location.Engine
	logger     zerolog.Logger
	upgrader   websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*wsClient]struct{}

	mu           sync.Mutex
	server       *http.Server
	subscription *location.Subscription
}

// NewWebSocketService creates a WebSocketService serving /ws on listenAddr.
func NewWebSocketService(listenAddr string, request location.Request, deviceInfo identity.DeviceInfoInterface,
	engine location.Engine, logger zerolog.Logger) *WebSocketService {
	return &WebSocketService{
		listenAddr: listenAddr,
		request:    request,
		deviceInfo: deviceInfo,
		engine:     engine,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// Start opens the passive subscription and begins serving clients.
func (w *WebSocketService) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.server != nil {
		return errors.New("websocket service is already running")
	}

	listener, err := net.Listen("tcp", w.listenAddr)
	if err != nil {
		w.logger.Error().Err(err).Str("addr", w.listenAddr).Msg("Failed to listen for websocket clients")
		return err
	}

	sub, err := w.engine.RequestPassiveUpdates(w.request, w)
	if err != nil {
		listener.Close()
		w.logger.Error().Err(err).Msg("Failed to request passive location updates")
		return err
	}

	w.subscription = sub
	w.server = &http.Server{Handler: w.Handler()}
	server := w.server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error().Err(err).Msg("WebSocket server stopped unexpectedly")
		}
	}()

	w.logger.Info().Str("addr", listener.Addr().String()).Msg("WebSocketService started")
	return nil
}

// Stop removes the subscription, shuts the server down and disconnects all clients.
func (w *WebSocketService) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.server == nil {
		return errors.New("websocket service is not running")
	}

	w.engine.RemoveUpdates(w.subscription)
	w.subscription = nil

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := w.server.Shutdown(ctx)
	w.server = nil

	w.clientsMu.RLock()
	for client := range w.clients {
		client.conn.Close()
	}
	w.clientsMu.RUnlock()

	w.logger.Info().Msg("WebSocketService stopped")
	return err
}

// Handler serves the /ws endpoint.
func (w *WebSocketService) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.handleWS)
	return mux
}

// Clients returns the number of connected clients.
func (w *WebSocketService) Clients() int {
	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	return len(w.clients)
}

// Deliver broadcasts fix to every connected client. Slow clients miss fixes.
func (w *WebSocketService) Deliver(fix location.Fix) {
	data, err := json.Marshal(newLocationMessage(w.deviceInfo.GetDeviceID(), fix))
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to serialize location for websocket clients")
		return
	}

	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	for client := range w.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (w *WebSocketService) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, clientSendBuffer)}
	w.clientsMu.Lock()
	w.clients[client] = struct{}{}
	total := len(w.clients)
	w.clientsMu.Unlock()
	w.logger.Debug().Int("clients", total).Msg("WebSocket client connected")

	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			w.clientsMu.Lock()
			delete(w.clients, client)
			w.clientsMu.Unlock()
			close(client.send)
			w.logger.Debug().Msg("WebSocket client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
