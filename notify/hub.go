package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jrh3k5/forest-and-wolves/game"
)

const (
	feedReadLimit    = 4 * 1024
	feedPongWait     = 60 * time.Second
	feedPingInterval = 30 * time.Second
	feedWriteWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedMessage is what spectators receive for each chat announcement.
type FeedMessage struct {
	Type    string        `json:"type"`
	ChatID  game.ChatID   `json:"chatId"`
	Text    string        `json:"text"`
	Buttons []game.Button `json:"buttons,omitempty"`
}

const FeedTypeAnnouncement = "announcement"

type spectator struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *spectator) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(feedWriteWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

// Hub mirrors chat announcements to websocket spectators. Direct messages are never
// forwarded, so spectators cannot learn roles.
type Hub struct {
	spectatorsMutex sync.RWMutex
	spectators      map[game.ChatID]map[*spectator]bool
}

func NewHub() *Hub {
	return &Hub{spectators: make(map[game.ChatID]map[*spectator]bool)}
}

func (h *Hub) Announce(_ context.Context, chatID game.ChatID, text string, keyboard *game.Keyboard) error {
	message := FeedMessage{Type: FeedTypeAnnouncement, ChatID: chatID, Text: text}
	if keyboard != nil {
		for _, row := range keyboard.Rows {
			message.Buttons = append(message.Buttons, row...)
		}
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for _, peer := range h.spectatorsOf(chatID) {
		if err := peer.write(websocket.TextMessage, data); err != nil {
			slog.Warn("failed to write to spectator", "chatId", chatID, "error", err)
		}
	}
	return nil
}

func (h *Hub) DM(context.Context, game.UserID, string, *game.Keyboard) error {
	return nil
}

// SpectatorCount returns how many spectators are watching the chat.
func (h *Hub) SpectatorCount(chatID game.ChatID) int {
	h.spectatorsMutex.RLock()
	defer h.spectatorsMutex.RUnlock()

	return len(h.spectators[chatID])
}

// ServeFeed upgrades the request and streams the chat's announcements until the spectator
// disconnects.
func (h *Hub) ServeFeed(w http.ResponseWriter, r *http.Request, chatID game.ChatID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade spectator connection", "chatId", chatID, "error", err)
		return
	}
	defer func(conn *websocket.Conn) { _ = conn.Close() }(conn)

	conn.SetReadLimit(feedReadLimit)
	if err := conn.SetReadDeadline(time.Now().Add(feedPongWait)); err != nil {
		slog.Error("failed to set spectator read deadline", "error", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	peer := &spectator{conn: conn}
	h.register(chatID, peer)
	defer h.unregister(chatID, peer)

	slog.Info("spectator connected", "chatId", chatID)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(feedPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				peer.writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(feedWriteWait))
				peer.writeMu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// spectators only listen; reading keeps the pong handler running and notices closes
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("spectator connection closed", "chatId", chatID, "error", err)
			}
			return
		}
	}
}

func (h *Hub) register(chatID game.ChatID, peer *spectator) {
	h.spectatorsMutex.Lock()
	defer h.spectatorsMutex.Unlock()

	if h.spectators[chatID] == nil {
		h.spectators[chatID] = make(map[*spectator]bool)
	}
	h.spectators[chatID][peer] = true
}

func (h *Hub) unregister(chatID game.ChatID, peer *spectator) {
	h.spectatorsMutex.Lock()
	defer h.spectatorsMutex.Unlock()

	delete(h.spectators[chatID], peer)
	if len(h.spectators[chatID]) == 0 {
		delete(h.spectators, chatID)
	}
}

func (h *Hub) spectatorsOf(chatID game.ChatID) []*spectator {
	h.spectatorsMutex.RLock()
	defer h.spectatorsMutex.RUnlock()

	peers := make([]*spectator, 0, len(h.spectators[chatID]))
	for peer := range h.spectators[chatID] {
		peers = append(peers, peer)
	}
	return peers
}
