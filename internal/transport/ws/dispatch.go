package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/interactify/qna-service/internal/domain"
)

type SessionSvc interface {
	Create(ctx context.Context, name, owner string) (*domain.Session, error)
	Join(ctx context.Context, roomID string, attendee domain.Attendee) (*domain.Session, error)
	Leave(ctx context.Context, roomID, attendeeID string) (*domain.Session, error)
	AddQuestion(ctx context.Context, roomID, text, authorID, authorName string) (*domain.Question, *domain.Session, error)
	ToggleVote(ctx context.Context, roomID, questionID, voterID string) (*domain.Question, *domain.Session, error)
	Mark(ctx context.Context, roomID, questionID, action, actorID string) (*domain.Question, *domain.Session, error)
	Close(ctx context.Context, roomID, actorID string) (*domain.Session, error)
	Get(ctx context.Context, roomID string) (*domain.Session, error)
}

// Dispatcher converts inbound frames into engine calls and routes the results:
// requester-only responses via SendDirect, room-wide notifications via Deliver.
// Every failure becomes an error frame to the sender only.
type Dispatcher struct {
	svc SessionSvc
	hub *Hub
	bc  *Broadcaster
}

func NewDispatcher(svc SessionSvc, hub *Hub, bc *Broadcaster) *Dispatcher {
	return &Dispatcher{svc: svc, hub: hub, bc: bc}
}

func (d *Dispatcher) Dispatch(ctx context.Context, c Conn, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		d.sendError(c, "Invalid message format")
		return
	}

	switch frame.Type {
	case TypeCreate:
		d.handleCreate(ctx, c, frame.Payload)
	case TypeJoin:
		d.handleJoin(ctx, c, frame.Payload)
	case TypeGetSession:
		d.handleGetSession(ctx, c, frame.Payload)
	case TypeQuestion:
		d.handleQuestion(ctx, c, frame.Payload)
	case TypeVote:
		d.handleVote(ctx, c, frame.Payload)
	case TypeMarkQuestion:
		d.handleMarkQuestion(ctx, c, frame.Payload)
	case TypeLeave:
		d.handleLeave(ctx, c, frame.Payload)
	case TypeClose:
		d.handleClose(ctx, c, frame.Payload)
	default:
		slog.Debug("unknown message type", "type", frame.Type)
		d.sendError(c, "Unknown message type")
	}
}

func (d *Dispatcher) handleCreate(ctx context.Context, c Conn, raw json.RawMessage) {
	var p CreatePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionName == "" || p.Owner == "" {
		d.sendError(c, "Session name and owner are required")
		return
	}

	session, err := d.svc.Create(ctx, p.SessionName, p.Owner)
	if err != nil {
		d.sendError(c, errText(err, "Failed to create session"))
		return
	}
	d.bc.SendDirect(c, Message{Type: TypeSessionCreated, Payload: SessionPayload{Session: session}})
}

func (d *Dispatcher) handleJoin(ctx context.Context, c Conn, raw json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" || p.Attendee.ID == "" || p.Attendee.Name == "" {
		d.sendError(c, "Room ID and attendee details (id, name) are required")
		return
	}

	session, err := d.svc.Join(ctx, p.RoomID, p.Attendee)
	if err != nil {
		d.sendError(c, errText(err, "Failed to join session"))
		return
	}

	d.hub.Bind(c, p.RoomID, p.Attendee)

	d.bc.SendDirect(c, Message{Type: TypeSessionJoined, Payload: SessionPayload{Session: session}})
	// The joiner already has the snapshot; everyone else learns about them.
	d.bc.Deliver(p.RoomID, Message{
		Type:    TypeAttendeeJoined,
		Payload: AttendeeEventPayload{Attendee: p.Attendee, Attendees: session.Attendees},
	}, c, false)
}

func (d *Dispatcher) handleGetSession(ctx context.Context, c Conn, raw json.RawMessage) {
	var p GetSessionPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" {
		d.sendError(c, "Room ID is required")
		return
	}

	session, err := d.svc.Get(ctx, p.RoomID)
	if err != nil {
		d.sendError(c, errText(err, "Failed to get session data"))
		return
	}
	d.bc.SendDirect(c, Message{Type: TypeSessionData, Payload: SessionPayload{Session: session}})
}

func (d *Dispatcher) handleQuestion(ctx context.Context, c Conn, raw json.RawMessage) {
	var p QuestionPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" || p.QuestionText == "" || p.AuthorID == "" || p.AuthorName == "" {
		d.sendError(c, "Room ID, question text, authorId, and authorName are required")
		return
	}

	question, session, err := d.svc.AddQuestion(ctx, p.RoomID, p.QuestionText, p.AuthorID, p.AuthorName)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			d.sendError(c, "You must join the session to ask a question")
			return
		}
		d.sendError(c, errText(err, "Failed to add question"))
		return
	}
	d.bc.Deliver(p.RoomID, Message{
		Type:    TypeQuestionAdded,
		Payload: QuestionEventPayload{Question: question, Session: session},
	}, nil, false)
}

func (d *Dispatcher) handleVote(ctx context.Context, c Conn, raw json.RawMessage) {
	var p VotePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" || p.QuestionID == "" || p.VoterID == "" {
		d.sendError(c, "Room ID, question ID, and voter ID are required")
		return
	}

	question, session, err := d.svc.ToggleVote(ctx, p.RoomID, p.QuestionID, p.VoterID)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			d.sendError(c, "You must join the session to vote")
			return
		}
		d.sendError(c, errText(err, "Failed to vote on question"))
		return
	}
	d.bc.Deliver(p.RoomID, Message{
		Type:    TypeQuestionUpdated,
		Payload: QuestionEventPayload{Question: question, Session: session},
	}, nil, false)
}

func (d *Dispatcher) handleMarkQuestion(ctx context.Context, c Conn, raw json.RawMessage) {
	var p MarkQuestionPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" || p.QuestionID == "" || p.Action == "" || p.UserID == "" {
		d.sendError(c, "Room ID, question ID, action, and user ID are required")
		return
	}

	question, session, err := d.svc.Mark(ctx, p.RoomID, p.QuestionID, p.Action, p.UserID)
	if err != nil {
		d.sendError(c, errText(err, "Failed to mark question"))
		return
	}
	d.bc.Deliver(p.RoomID, Message{
		Type:    TypeQuestionUpdated,
		Payload: QuestionEventPayload{Question: question, Session: session},
	}, nil, false)
}

func (d *Dispatcher) handleLeave(ctx context.Context, c Conn, raw json.RawMessage) {
	var p LeavePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" || p.AttendeeID == "" {
		d.sendError(c, "Room ID and attendee ID are required")
		return
	}

	session, err := d.svc.Leave(ctx, p.RoomID, p.AttendeeID)
	if err != nil {
		d.sendError(c, errText(err, "Failed to leave session"))
		return
	}

	d.hub.Unbind(c)

	d.bc.SendDirect(c, Message{Type: TypeSuccess, Payload: SuccessPayload{Message: "Left session successfully"}})
	d.bc.Deliver(p.RoomID, Message{
		Type: TypeAttendeeLeft,
		Payload: AttendeeEventPayload{
			Attendee:  domain.Attendee{ID: p.AttendeeID},
			Attendees: session.Attendees,
		},
	}, c, false)
}

func (d *Dispatcher) handleClose(ctx context.Context, c Conn, raw json.RawMessage) {
	var p ClosePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" || p.OwnerID == "" {
		d.sendError(c, "Room ID and owner ID are required")
		return
	}

	if _, err := d.svc.Close(ctx, p.RoomID, p.OwnerID); err != nil {
		d.sendError(c, errText(err, "Failed to close session"))
		return
	}

	d.bc.Deliver(p.RoomID, Message{
		Type: TypeSessionClosed,
		Payload: SessionClosedPayload{
			RoomID:  p.RoomID,
			Message: "Session has been closed by the owner",
		},
	}, nil, false)

	// Late frames from these connections should hit NotFound, not a dying room.
	d.hub.ClearRoom(p.RoomID)
}

// DisconnectCleanup handles a transport close: synthesizes the implicit leave
// for the connection's last binding and notifies the room.
func (d *Dispatcher) DisconnectCleanup(ctx context.Context, c Conn) {
	binding, ok := d.hub.Unregister(c)
	if !ok {
		return
	}

	session, err := d.svc.Leave(ctx, binding.RoomID, binding.Peer.ID)
	if err != nil {
		slog.Debug("implicit leave failed", "room", binding.RoomID, "peer", binding.Peer.ID, "err", err)
		return
	}
	d.bc.Deliver(binding.RoomID, Message{
		Type: TypeAttendeeLeft,
		Payload: AttendeeEventPayload{
			Attendee:  binding.Peer,
			Attendees: session.Attendees,
		},
	}, c, false)
}

func (d *Dispatcher) sendError(c Conn, message string) {
	d.bc.SendDirect(c, Message{Type: TypeError, Payload: ErrorPayload{Message: message}})
}

// errText maps engine failures to the user-visible messages; unexpected
// errors fall back to the per-operation text.
func errText(err error, fallback string) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, domain.ErrQuestionNotFound):
		return "Question not found"
	case errors.Is(err, domain.ErrDuplicateQuestion):
		return "A similar question already exists. Please upvote that question instead."
	case errors.Is(err, domain.ErrForbidden):
		return "Only session owner can perform this action"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "Invalid request"
	case errors.Is(err, domain.ErrUnavailable):
		return "Service temporarily unavailable. Please try again."
	default:
		return fallback
	}
}
