package types

import "encoding/json"

// Event names exchanged on the websocket connection.
const (
	EventJoinRoom   = "join-room"
	EventHeartbeat  = "heartbeat"
	EventSpeechData = "speech-data"

	EventRoomJoined       = "room-joined"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventHeartbeatAck     = "heartbeat-ack"
	EventTranslatedSpeech = "translated-speech"
	EventError            = "error"
)

// JSON-serialized WebsocketMessage is what is actually sent via the Websocket
// connection.
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// MarshalEvent wraps a payload into the wire envelope.
func MarshalEvent(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WebsocketMessage{Event: event, Data: data})
}

// The different types of messages transferred from the client to here.

// JoinRoomMessage subscribes the connection to a room. An empty user name is
// replaced by a generated guest name.
type JoinRoomMessage struct {
	RoomCode string `json:"roomCode" mapstructure:"roomCode"`
	UserName string `json:"userName" mapstructure:"userName"`
}

// HeartbeatMessage is a liveness signal keeping the room's activity fresh.
type HeartbeatMessage struct {
	RoomCode string `json:"roomCode" mapstructure:"roomCode"`
}

// SpeechDataMessage carries one utterance to translate and relay.
type SpeechDataMessage struct {
	RoomCode string `json:"roomCode" mapstructure:"roomCode"`
	Text     string `json:"text" mapstructure:"text"`
}

// The different types of messages sent back to clients.

type RoomJoinedMessage struct {
	RoomCode             string     `json:"roomCode"`
	TranslationDirection Direction  `json:"translationDirection"`
	Users                []UserInfo `json:"users"`
}

type UserJoinedMessage struct {
	UserID   string     `json:"userId"`
	UserName string     `json:"userName"`
	Users    []UserInfo `json:"users"`
}

type UserLeftMessage struct {
	UserID   string     `json:"userId"`
	UserName string     `json:"userName"`
	Users    []UserInfo `json:"users"`
}

type HeartbeatAckMessage struct {
	RoomCode string `json:"roomCode"`
}

type TranslatedSpeechMessage struct {
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	UserID         string `json:"userId"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}
