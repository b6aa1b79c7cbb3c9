package server

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/longformhq/longform/internal/embedloader"
)

// session is one connected reader. It mirrors the page's placeholders
// as descriptors and acts as the loader's Sink (fragments, errors, and
// state changes flow back over the websocket) and Hook (the provider
// post-processor runs in the reader's browser on request).
type session struct {
	id       string
	conn     *websocket.Conn
	reg      *embedloader.Registry
	loader   *embedloader.Loader
	triggers *embedloader.Triggers

	out  chan serverMessage
	done chan struct{}
	once sync.Once
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		id:   uuid.NewString(),
		conn: conn,
		out:  make(chan serverMessage, 64),
		done: make(chan struct{}),
	}
}

// send queues a message for the write loop. Messages for a closed or
// backed-up session are dropped; the reader will resync on reconnect.
func (s *session) send(msg serverMessage) {
	select {
	case <-s.done:
	case s.out <- msg:
	default:
		log.Printf("session %s: dropping %s message, outbound queue full", s.id, msg.Type)
	}
}

// AttachFragment implements embedloader.Sink.
func (s *session) AttachFragment(nodeID, fragment string) {
	s.send(serverMessage{Type: msgEmbed, Node: nodeID, HTML: fragment})
}

// ShowError implements embedloader.Sink.
func (s *session) ShowError(nodeID, message string) {
	s.send(serverMessage{Type: msgError, Node: nodeID, Message: message})
}

// StateChanged implements embedloader.Sink.
func (s *session) StateChanged(nodeID string, state embedloader.State) {
	s.send(serverMessage{Type: msgState, Node: nodeID, State: state.String()})
}

// Process implements embedloader.Hook: the provider's post-processing
// entry point lives in the reader's browser, so the hook is a push
// telling it which node to upgrade. No markup comes back this way.
func (s *session) Process(ctx context.Context, permalink, fragment string) (string, error) {
	s.send(serverMessage{Type: msgProcess, Permalink: permalink})
	return "", nil
}

// close shuts the session down exactly once, abandoning any retry or
// hook timers still pending for this reader.
func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		if s.loader != nil {
			s.loader.Stop()
		}
		_ = s.conn.Close()
	})
}

// writeLoop serializes all websocket writes for the session.
func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.out:
			if err := s.conn.WriteJSON(msg); err != nil {
				s.close()
				return
			}
		}
	}
}

// readLoop parses inbound events and dispatches them to the trigger
// paths. It returns when the connection drops.
func (s *session) readLoop(ctx context.Context) {
	defer s.close()
	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case msgHello:
			s.triggers.Start(ctx, msg.Capabilities)
		case msgLoaded:
			s.triggers.HandleLoad(ctx, msg.Rects, msg.Viewport)
		case msgIntersect:
			s.triggers.HandleIntersect(ctx, msg.Node)
		case msgManual:
			s.triggers.HandleManual(ctx, msg.Node)
		default:
			log.Printf("session %s: unknown message type %q", s.id, msg.Type)
		}
	}
}
