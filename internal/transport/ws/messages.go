package ws

import (
	"encoding/json"

	"github.com/interactify/qna-service/internal/domain"
)

// Inbound frame types.
const (
	TypeCreate       = "create"
	TypeJoin         = "join"
	TypeGetSession   = "getSession"
	TypeQuestion     = "question"
	TypeVote         = "vote"
	TypeMarkQuestion = "markQuestion"
	TypeLeave        = "leave"
	TypeClose        = "close"
)

// Outbound frame types.
const (
	TypeSessionCreated  = "sessionCreated"
	TypeSessionJoined   = "sessionJoined"
	TypeSessionData     = "sessionData"
	TypeQuestionAdded   = "questionAdded"
	TypeQuestionUpdated = "questionUpdated" // covers both vote and mark results
	TypeAttendeeJoined  = "attendeeJoined"
	TypeAttendeeLeft    = "attendeeLeft"
	TypeSessionClosed   = "sessionClosed"
	TypeError           = "error"
	TypeSuccess         = "success"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// inboundFrame keeps the payload raw until the type is known.
type inboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type CreatePayload struct {
	SessionName string `json:"sessionName"`
	Owner       string `json:"owner"`
}

type JoinPayload struct {
	RoomID   string          `json:"roomId"`
	Attendee domain.Attendee `json:"attendee"`
}

type GetSessionPayload struct {
	RoomID string `json:"roomId"`
}

type QuestionPayload struct {
	RoomID       string `json:"roomId"`
	QuestionText string `json:"questionText"`
	AuthorID     string `json:"authorId"`
	AuthorName   string `json:"authorName"`
}

type VotePayload struct {
	RoomID     string `json:"roomId"`
	QuestionID string `json:"questionId"`
	VoterID    string `json:"voterId"`
}

type MarkQuestionPayload struct {
	RoomID     string `json:"roomId"`
	QuestionID string `json:"questionId"`
	Action     string `json:"action"`
	UserID     string `json:"userId"`
}

type LeavePayload struct {
	RoomID     string `json:"roomId"`
	AttendeeID string `json:"attendeeId"`
}

type ClosePayload struct {
	RoomID  string `json:"roomId"`
	OwnerID string `json:"ownerId"`
}

type SessionPayload struct {
	Session *domain.Session `json:"session"`
}

type QuestionEventPayload struct {
	Question *domain.Question `json:"question"`
	Session  *domain.Session  `json:"session"`
}

type AttendeeEventPayload struct {
	Attendee  domain.Attendee   `json:"attendee"`
	Attendees []domain.Attendee `json:"attendees"`
}

type SessionClosedPayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type SuccessPayload struct {
	Message string `json:"message"`
}
