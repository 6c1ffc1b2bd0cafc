package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/folkengine/goname"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"

	"github.com/crosstalk-chat/crosstalk/globals"
	"github.com/crosstalk-chat/crosstalk/presence"
	"github.com/crosstalk-chat/crosstalk/store"
	"github.com/crosstalk-chat/crosstalk/translate"
	"github.com/crosstalk-chat/crosstalk/types"
)

// Client is a middleman between one websocket connection and the room it is
// joined to. A connection is a member of at most one room at a time.
type Client struct {
	hub      *Hub
	presence *presence.Manager
	store    *store.Store
	gateway  *translate.Gateway

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. Never closed: the write loop
	// exits via doneChan and the channel is left for the gc, so concurrent
	// broadcasts can never hit a closed channel.
	Send chan []byte

	// ConnID identifies this live connection; it changes across reconnects.
	ConnID string

	// current room and identity, empty until a successful join;
	// owned exclusively by the read loop
	roomCode string
	userName string

	doneChan chan struct{}
}

func NewClient(hub *Hub, pm *presence.Manager, st *store.Store, gw *translate.Gateway, conn *websocket.Conn) *Client {
	return &Client{
		hub:      hub,
		presence: pm,
		store:    st,
		gateway:  gw,
		conn:     conn,
		Send:     make(chan []byte, sendChannelSize),
		ConnID:   uuid.NewString(),
		doneChan: make(chan struct{}),
	}
}

// TrySend enqueues data for the write loop without ever blocking the caller.
// A client that cannot keep up loses messages rather than stalling the room.
func (c *Client) TrySend(data []byte) {
	select {
	case c.Send <- data:
	default:
		globals.AppLogger.Warn("send buffer full, dropping message", "connection", c.ConnID)
	}
}

// ReadLoop pumps messages from the websocket connection into the relay.
//
// The application runs ReadLoop in a per-connection goroutine. The
// application ensures that there is at most one reader on a connection by
// executing all reads from this goroutine. Translation for an utterance
// happens inline here, so a sender's messages reach the room in the order
// they were sent.
func (c *Client) ReadLoop() {
	defer func() {
		if c.roomCode != "" {
			globals.AppLogger.Debug("connection lost", "room", c.roomCode, "user", c.userName, "connection", c.ConnID)
			c.hub.Unregister(c.roomCode, c)
			c.presence.Disconnect(c.roomCode, c.ConnID)
			c.roomCode = ""
		}
		c.conn.Close()
		close(c.doneChan)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				globals.AppLogger.Debug("ws closed unexpected", "connection", c.ConnID, "error", err)
			}
			return
		}
		message := types.WebsocketMessage{}
		if err := json.Unmarshal(raw, &message); err != nil {
			globals.AppLogger.Warn("could not unmarshal ws message", "error", err)
			continue
		}
		c.dispatch(&message)
	}
}

func (c *Client) dispatch(message *types.WebsocketMessage) {
	switch message.Event {
	case types.EventJoinRoom:
		msg := types.JoinRoomMessage{}
		if !c.decode(message.Data, &msg) {
			return
		}
		c.handleJoin(msg)

	case types.EventHeartbeat:
		msg := types.HeartbeatMessage{}
		if !c.decode(message.Data, &msg) {
			return
		}
		c.handleHeartbeat(msg)

	case types.EventSpeechData:
		msg := types.SpeechDataMessage{}
		if !c.decode(message.Data, &msg) {
			return
		}
		c.handleSpeech(msg)

	default:
		// unrecognized events are ignored, they are not an error
	}
}

func (c *Client) decode(data json.RawMessage, out interface{}) bool {
	payload := make(map[string]interface{})
	if err := json.Unmarshal(data, &payload); err != nil {
		globals.AppLogger.Warn("could not unmarshal payload", "error", err)
		return false
	}
	if err := mapstructure.WeakDecode(payload, out); err != nil {
		globals.AppLogger.Warn("could not decode payload", "error", err)
		return false
	}
	return true
}

func (c *Client) handleJoin(msg types.JoinRoomMessage) {
	userName := msg.UserName
	if userName == "" {
		userName = goname.New(goname.FantasyMap).FirstLast() + " (guest)"
	}
	if c.roomCode != "" && (c.roomCode != msg.RoomCode || c.userName != userName) {
		// a connection is bound to one room and one identity at a time.
		// Rebinding is deliberate, not a transient drop, so the previous
		// identity leaves at once instead of riding out a grace window.
		if c.roomCode != msg.RoomCode {
			c.hub.Unregister(c.roomCode, c)
		}
		c.presence.Leave(c.roomCode, c.ConnID)
		c.roomCode = ""
	}
	// subscribe before joining so the join notification reaches this
	// connection as well
	c.hub.Register(msg.RoomCode, c)
	res, err := c.presence.Join(msg.RoomCode, userName, c.ConnID)
	if err != nil {
		c.hub.Unregister(msg.RoomCode, c)
		c.sendEvent(types.EventError, types.ErrorMessage{Message: "room not found"})
		return
	}
	c.roomCode = msg.RoomCode
	c.userName = userName
	c.sendEvent(types.EventRoomJoined, types.RoomJoinedMessage{
		RoomCode:             msg.RoomCode,
		TranslationDirection: res.Direction,
		Users:                res.Users,
	})
}

func (c *Client) handleHeartbeat(msg types.HeartbeatMessage) {
	if c.presence.Heartbeat(msg.RoomCode) {
		c.sendEvent(types.EventHeartbeatAck, types.HeartbeatAckMessage{RoomCode: msg.RoomCode})
	}
}

func (c *Client) handleSpeech(msg types.SpeechDataMessage) {
	info, ok := c.store.GetRoom(msg.RoomCode)
	if !ok {
		c.sendEvent(types.EventError, types.ErrorMessage{Message: "translation failed: room not found"})
		return
	}
	c.store.Touch(msg.RoomCode)
	sourceLang, targetLang := info.Direction.Languages()
	translated := c.gateway.Translate(context.Background(), msg.Text, sourceLang, targetLang)
	data, err := types.MarshalEvent(types.EventTranslatedSpeech, types.TranslatedSpeechMessage{
		OriginalText:   msg.Text,
		TranslatedText: translated,
		UserID:         c.ConnID,
	})
	if err != nil {
		globals.AppLogger.Error("could not marshal translated speech", "error", err)
		c.sendEvent(types.EventError, types.ErrorMessage{Message: "translation failed"})
		return
	}
	c.hub.BroadcastRoom(msg.RoomCode, data, c)
}

func (c *Client) sendEvent(event string, payload interface{}) {
	data, err := types.MarshalEvent(event, payload)
	if err != nil {
		globals.AppLogger.Error("could not marshal message", "event", event, "error", err)
		return
	}
	c.TrySend(data)
}

// WriteLoop pumps messages from the Send channel to the websocket connection.
//
// A goroutine running WriteLoop is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				globals.AppLogger.Debug("could not write to ws connection, exiting write loop", "connection", c.ConnID)
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				globals.AppLogger.Debug("could not send ping message, exiting write loop", "connection", c.ConnID)
				return
			}

		case <-c.doneChan:
			return
		}
	}
}
