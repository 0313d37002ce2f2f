package realtime

import "encoding/json"

// EventKind enumerates the realtime notification kinds. Keeping the set
// closed lets dispatch sites switch exhaustively instead of matching on
// loose strings.
type EventKind string

const (
	EventFriendRequest  EventKind = "friend_request"
	EventFriendAccept   EventKind = "friend_accept"
	EventFriendRemove   EventKind = "friend_remove"
	EventPresenceChange EventKind = "presence_change"
	EventGameInvite     EventKind = "game_invite"
	// EventCustom carries an arbitrary event name in Room.
	EventCustom EventKind = "custom"
)

// Event is one realtime notification addressed to a user.
type Event struct {
	Kind    EventKind
	Target  int64
	From    int64
	Room    string // wire event name for EventCustom
	Payload json.RawMessage
}

// wireType is the packet type the client sees.
func (e *Event) wireType() string {
	if e.Kind == EventCustom && e.Room != "" {
		return e.Room
	}
	return string(e.Kind)
}

// packet builds the WS envelope for this event.
func (e *Event) packet() *Packet {
	return &Packet{Type: e.wireType(), Payload: e.Payload}
}
