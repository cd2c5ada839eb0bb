package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/stockmatch/internal/model"
	"github.com/vyrodovalexey/stockmatch/internal/session"
	"github.com/vyrodovalexey/stockmatch/internal/store"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	outboxSize     = 8
)

// Command errors reported to the client.
var (
	errMissingSearch  = errors.New("start requires a search")
	errNothingRunning = errors.New("no search is running")
	errUnknownType    = errors.New("unknown message type")
)

// WebSocketHandler runs one search session per connection. The read pump
// turns client commands into session calls; the write pump is the only
// writer and forwards session events and command errors.
type WebSocketHandler struct {
	upgrader  websocket.Upgrader
	catalog   store.CatalogStore
	blacklist store.BlacklistStore
	sup       *session.Supervisor
	logger    *zap.Logger
	mu        sync.RWMutex
	clients   map[*websocket.Conn]context.CancelFunc
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(
	catalog store.CatalogStore,
	blacklist store.BlacklistStore,
	sup *session.Supervisor,
	logger *zap.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		catalog:   catalog,
		blacklist: blacklist,
		sup:       sup,
		logger:    logger,
		clients:   make(map[*websocket.Conn]context.CancelFunc),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/search", h.HandleWebSocket).Methods(http.MethodGet)
}

// HandleWebSocket upgrades the connection and opens a search session for it.
//
//nolint:contextcheck // the session outlives the upgrade request
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	h.mu.Lock()
	h.clients[conn] = cancel
	h.mu.Unlock()

	sess := h.sup.NewSession()
	outbox := make(chan model.SessionMessage, outboxSize)

	h.logger.Info("search client connected",
		zap.String("remote_addr", conn.RemoteAddr().String()),
		zap.String("session_id", sess.ID()),
	)

	go h.writePump(ctx, conn, sess, outbox)
	go h.readPump(ctx, conn, sess, outbox, cancel)
}

// readPump decodes client commands until the connection drops.
func (h *WebSocketHandler) readPump(
	ctx context.Context,
	conn *websocket.Conn,
	sess *session.Session,
	outbox chan<- model.SessionMessage,
	cancel context.CancelFunc,
) {
	defer func() {
		cancel()
		sess.Close()
		h.removeClient(conn)
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg model.SessionMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(ctx, outbox, sess, "invalid message: "+err.Error())
			continue
		}

		if err := h.dispatch(ctx, sess, msg); err != nil {
			h.reply(ctx, outbox, sess, err.Error())
		}
	}
}

// dispatch applies one client command to the session.
func (h *WebSocketHandler) dispatch(ctx context.Context, sess *session.Session, msg model.SessionMessage) error {
	switch msg.Type {
	case model.WSMessageTypeStart:
		if msg.Search == nil {
			return errMissingSearch
		}
		req, toleranceSet, err := msg.Search.Request()
		if err != nil {
			return err
		}
		catalog, err := h.catalog.List(ctx)
		if err != nil {
			return err
		}
		if req.Blacklist, err = h.blacklist.List(ctx); err != nil {
			return err
		}
		return sess.Start(catalog, h.sup.WithDefaults(req, toleranceSet))

	case model.WSMessageTypeCancel:
		if !sess.Cancel() {
			return errNothingRunning
		}
		return nil

	case model.WSMessageTypeRecalculate:
		return sess.Recalculate()

	default:
		return fmt.Errorf("%w: %q", errUnknownType, msg.Type)
	}
}

// reply queues an error message for the write pump.
func (h *WebSocketHandler) reply(ctx context.Context, outbox chan<- model.SessionMessage, sess *session.Session, text string) {
	msg := model.NewSessionMessage(model.WSMessageTypeError, sess.ID())
	msg.Error = text

	select {
	case outbox <- msg:
	case <-ctx.Done():
	}
}

// writePump forwards session events and queued replies, and keeps the
// connection alive with pings.
func (h *WebSocketHandler) writePump(
	ctx context.Context,
	conn *websocket.Conn,
	sess *session.Session,
	outbox <-chan model.SessionMessage,
) {
	pingTicker := time.NewTicker(pingPeriod)

	// Closing the socket unblocks the read pump, which owns the cleanup.
	defer func() {
		pingTicker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			h.sendCloseMessage(conn)
			return
		case ev := <-sess.Events():
			if err := h.send(conn, eventMessage(ev)); err != nil {
				h.logger.Debug("failed to send session event", zap.Error(err))
				return
			}
		case msg := <-outbox:
			if err := h.send(conn, msg); err != nil {
				h.logger.Debug("failed to send reply", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := h.sendPing(conn); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// eventMessage converts a session event to its wire form.
func eventMessage(ev session.Event) model.SessionMessage {
	var msg model.SessionMessage
	switch ev.Type {
	case session.EventStarted:
		msg = model.NewSessionMessage(model.WSMessageTypeStarted, ev.SessionID)
	case session.EventLongRunning:
		msg = model.NewSessionMessage(model.WSMessageTypeLongRunning, ev.SessionID)
	case session.EventCompleted:
		msg = model.NewSessionMessage(model.WSMessageTypeResult, ev.SessionID)
		msg.Result = ev.Result
	case session.EventCancelled:
		msg = model.NewSessionMessage(model.WSMessageTypeCancelled, ev.SessionID)
	default:
		msg = model.NewSessionMessage(model.WSMessageTypeError, ev.SessionID)
		if ev.Err != nil {
			msg.Error = ev.Err.Error()
		}
	}
	msg.Round = ev.Round
	return msg
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg model.SessionMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// sendPing sends a ping message to the connection.
func (h *WebSocketHandler) sendPing(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// sendCloseMessage sends a close message to the connection.
func (h *WebSocketHandler) sendCloseMessage(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

// removeClient removes a client from the clients map.
func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cancel, exists := h.clients[conn]; exists {
		cancel()
		delete(h.clients, conn)
		h.logger.Info("search client disconnected", zap.String("remote_addr", conn.RemoteAddr().String()))
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAllConnections cancels every connection, gives the write pumps a
// moment to send their close frames, then closes the sockets and every
// remaining search session.
func (h *WebSocketHandler) CloseAllConnections() {
	h.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(h.clients))
	for _, cancel := range h.clients {
		cancels = append(cancels, cancel)
	}
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	time.Sleep(100 * time.Millisecond)

	h.mu.Lock()
	for conn := range h.clients {
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	h.sup.Shutdown()
	h.logger.Info("all search connections closed")
}
