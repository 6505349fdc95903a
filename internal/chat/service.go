// Package chat implements the room message protocol: presence notices,
// human chat messages and the in-band assistant command.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/devroom/internal/metrics"
	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/room"
)

// Event names on the wire.
const (
	EventMessage    = "event-message"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventError      = "error"
)

// Presence is the payload of user-joined and user-left events.
type Presence struct {
	User      models.Identity `json:"user"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

// Broadcaster is the room membership and fan-out surface.
type Broadcaster interface {
	Join(m room.Member, key string) error
	Leave(m room.Member) (string, bool)
	Broadcast(key string, evt room.Event) int
}

// Generator produces the assistant's reply to a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*models.StructuredReply, error)
}

// Config tunes the service.
type Config struct {
	Marker          string
	GenerateTimeout time.Duration
}

// Service runs the chat protocol for all rooms.
type Service struct {
	rooms    Broadcaster
	recorder *Recorder
	gen      Generator
	marker   string
	timeout  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	stopped bool
	pending sync.WaitGroup
}

// NewService wires a service. gen may be nil, in which case commands are answered with an error.
func NewService(rooms Broadcaster, recorder *Recorder, gen Generator, cfg Config) *Service {
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 2 * time.Minute
	}
	return &Service{
		rooms:    rooms,
		recorder: recorder,
		gen:      gen,
		marker:   cfg.Marker,
		timeout:  cfg.GenerateTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Join adds m to the project's room and announces it to everyone there, m included.
func (s *Service) Join(m room.Member, who models.Identity, projectID string) error {
	if err := s.rooms.Join(m, projectID); err != nil {
		return err
	}
	s.rooms.Broadcast(projectID, room.Event{
		Name: EventUserJoined,
		Data: Presence{User: who, Message: who.Email + " joined the project", Timestamp: s.now()},
	})
	return nil
}

// Leave removes m from its room and tells the remaining members.
func (s *Service) Leave(m room.Member, who models.Identity) {
	projectID, ok := s.rooms.Leave(m)
	if !ok {
		return
	}
	s.rooms.Broadcast(projectID, room.Event{
		Name: EventUserLeft,
		Data: Presence{User: who, Message: who.Email + " left the project", Timestamp: s.now()},
	})
}

// HandleMessage processes one inbound chat message from an authenticated sender.
// Blank text is ignored. The human message is broadcast and persisted before
// any assistant work starts; the assistant reply is produced in the background.
func (s *Service) HandleMessage(ctx context.Context, sender models.Identity, projectID, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if s.isStopped() {
		log.Printf("chat stopped: dropping message from %s in project %s", sender.Email, projectID)
		return
	}

	s.Publish(ctx, &models.Message{
		ProjectID: projectID,
		Sender:    sender,
		Payload:   models.TextPayload(text),
		Timestamp: s.now(),
	})

	prompt, found := ExtractPrompt(text, s.marker)
	if !found || prompt == "" {
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.pending.Done()
		s.answer(projectID, prompt)
	}()
}

// answer runs the assistant and publishes its reply or failure as the AI sender.
// It is detached from the requesting connection.
func (s *Service) answer(projectID, prompt string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	reply, err := s.generate(ctx, prompt)

	payload := models.GeneratedPayload(reply)
	if err != nil {
		log.Printf("chat ai reply failed: project %s: %v", projectID, err)
		payload = models.ErrorPayload(err.Error())
	}

	s.Publish(ctx, &models.Message{
		ProjectID: projectID,
		Sender:    models.AIIdentity,
		Payload:   payload,
		Timestamp: s.now(),
	})
}

func (s *Service) generate(ctx context.Context, prompt string) (reply *models.StructuredReply, err error) {
	defer func() {
		if p := recover(); p != nil {
			reply, err = nil, fmt.Errorf("generation failed: %v", p)
		}
	}()

	if s.gen == nil {
		return nil, fmt.Errorf("generation failed: assistant is not configured")
	}
	reply, err = s.gen.Generate(ctx, prompt)
	if err == nil && reply == nil {
		err = fmt.Errorf("generation failed: empty reply")
	}
	return reply, err
}

// Publish broadcasts msg to its project room, then persists it.
// A persistence failure does not undo the broadcast. msg must not be
// modified afterwards; members encode it concurrently.
func (s *Service) Publish(ctx context.Context, msg *models.Message) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	origin := "human"
	if msg.Sender.IsAI() {
		origin = "ai"
	}
	metrics.MessagesBroadcast.WithLabelValues(origin).Inc()

	s.rooms.Broadcast(msg.ProjectID, room.Event{Name: EventMessage, Data: msg})
	if s.recorder != nil {
		_ = s.recorder.Record(ctx, msg)
	}
}

// Stop makes the service drop further messages. Replies already in flight
// still complete; use Wait to drain them.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *Service) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Wait blocks until in-flight assistant replies finish or ctx is done.
// Call Stop first when draining for shutdown.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
