package server

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/openworld/internal/core/components"
)

// Input is the movement state a client sends as JSON whenever it changes.
type Input struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Jump  bool `json:"jump"`
}

// session is one connected client. Everything but conn and send is owned by
// the tick goroutine.
type session struct {
	id   string
	conn *websocket.Conn
	// frames queued for the writer; closed by the tick goroutine on leave
	send chan []byte

	point       int
	input       Input
	digests     map[components.ObjectID]uint64
	connectedAt time.Time
}

func (s *session) resetDigests() {
	clear(s.digests)
}

type commandKind uint8

const (
	commandJoin commandKind = iota
	commandLeave
	commandInput
)

type command struct {
	kind    commandKind
	session *session
	input   Input
	// join only; receives the slot acquisition result
	reply chan error
}
