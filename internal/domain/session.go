package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusClosed SessionStatus = "closed"
)

type Attendee struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

type Question struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Text        string             `bson:"questionText" json:"questionText"`
	AuthorID    string             `bson:"authorId" json:"authorId"`
	AuthorName  string             `bson:"authorName" json:"authorName"`
	UpVotes     int                `bson:"upVotes" json:"upVotes"`
	UpVotedBy   []string           `bson:"upVotedBy" json:"upVotedBy"`
	Answered    bool               `bson:"answered" json:"answered"`
	Highlighted bool               `bson:"highlighted" json:"highlighted"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

func (q *Question) VotedBy(voterID string) bool {
	for _, id := range q.UpVotedBy {
		if id == voterID {
			return true
		}
	}
	return false
}

type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RoomID    string             `bson:"roomId" json:"roomId"`
	Name      string             `bson:"sessionName" json:"sessionName"`
	Owner     string             `bson:"owner" json:"owner"`
	Attendees []Attendee         `bson:"attendees" json:"attendees"`
	Questions []Question         `bson:"questions" json:"questions"`
	Status    SessionStatus      `bson:"sessionStatus" json:"sessionStatus"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (s *Session) HasAttendee(id string) bool {
	for _, a := range s.Attendees {
		if a.ID == id {
			return true
		}
	}
	return false
}

// IsParticipant reports whether id belongs to the owner or a joined attendee.
func (s *Session) IsParticipant(id string) bool {
	return id == s.Owner || s.HasAttendee(id)
}

func (s *Session) Question(id primitive.ObjectID) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// HasSimilarQuestion checks the normalized text against every existing question.
func (s *Session) HasSimilarQuestion(text string) bool {
	norm := NormalizeQuestionText(text)
	for _, q := range s.Questions {
		if NormalizeQuestionText(q.Text) == norm {
			return true
		}
	}
	return false
}

// NormalizeQuestionText produces the trimmed, case-folded form used for
// duplicate detection. The normalized form is never displayed.
func NormalizeQuestionText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
