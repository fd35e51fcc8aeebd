package service

import (
	"context"
	"sync"
	"time"

	"github.com/interactify/qna-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is a single-process SessionStore used only by tests. Each method
// applies the same atomic semantics the mongo repository gets from update
// operators: guarded set-add/set-remove paired with counter changes under one
// lock.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*domain.Session)}
}

func (m *memStore) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.RoomID]; ok {
		return domain.ErrRoomIDTaken
	}
	cp := cloneSession(s)
	cp.ID = primitive.NewObjectID()
	m.sessions[s.RoomID] = cp
	s.ID = cp.ID
	return nil
}

func (m *memStore) FindByRoomID(_ context.Context, roomID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[roomID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *memStore) AddAttendee(_ context.Context, roomID string, a domain.Attendee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[roomID]
	if !ok {
		return nil
	}
	if !s.HasAttendee(a.ID) {
		s.Attendees = append(s.Attendees, a)
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memStore) RemoveAttendee(_ context.Context, roomID, attendeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[roomID]
	if !ok {
		return nil
	}
	out := s.Attendees[:0]
	for _, a := range s.Attendees {
		if a.ID != attendeeID {
			out = append(out, a)
		}
	}
	s.Attendees = out
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) AppendQuestion(_ context.Context, roomID string, q *domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[roomID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Questions = append(s.Questions, *q)
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) AddVote(_ context.Context, roomID string, questionID primitive.ObjectID, voterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.question(roomID, questionID)
	if q == nil || q.VotedBy(voterID) {
		return nil
	}
	q.UpVotedBy = append(q.UpVotedBy, voterID)
	q.UpVotes++
	return nil
}

func (m *memStore) RemoveVote(_ context.Context, roomID string, questionID primitive.ObjectID, voterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.question(roomID, questionID)
	if q == nil || !q.VotedBy(voterID) {
		return nil
	}
	out := q.UpVotedBy[:0]
	for _, id := range q.UpVotedBy {
		if id != voterID {
			out = append(out, id)
		}
	}
	q.UpVotedBy = out
	q.UpVotes--
	return nil
}

func (m *memStore) SetQuestionFlag(_ context.Context, roomID string, questionID primitive.ObjectID, field string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.question(roomID, questionID)
	if q == nil {
		return domain.ErrQuestionNotFound
	}
	switch field {
	case "answered":
		q.Answered = value
	case "highlighted":
		q.Highlighted = value
	}
	return nil
}

func (m *memStore) SetStatus(_ context.Context, roomID string, status domain.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[roomID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) Delete(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, roomID)
	return nil
}

func (m *memStore) question(roomID string, questionID primitive.ObjectID) *domain.Question {
	s, ok := m.sessions[roomID]
	if !ok {
		return nil
	}
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return &s.Questions[i]
		}
	}
	return nil
}

func cloneSession(s *domain.Session) *domain.Session {
	cp := *s
	cp.Attendees = append([]domain.Attendee(nil), s.Attendees...)
	cp.Questions = make([]domain.Question, len(s.Questions))
	for i, q := range s.Questions {
		cp.Questions[i] = q
		cp.Questions[i].UpVotedBy = append([]string(nil), q.UpVotedBy...)
	}
	return &cp
}

// fakeScheduler records purge requests.
type fakeScheduler struct {
	mu    sync.Mutex
	calls []purgeCall
}

type purgeCall struct {
	roomID string
	in     time.Duration
}

func (f *fakeScheduler) SchedulePurge(_ context.Context, roomID string, in time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, purgeCall{roomID: roomID, in: in})
	return nil
}

func (f *fakeScheduler) scheduled() []purgeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]purgeCall(nil), f.calls...)
}
