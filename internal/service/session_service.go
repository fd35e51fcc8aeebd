package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/interactify/qna-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStore is the persistence contract for sessions. Mutations must be
// atomic: concurrent writers on the same room may interleave but never lose
// each other's changes.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByRoomID(ctx context.Context, roomID string) (*domain.Session, error)
	AddAttendee(ctx context.Context, roomID string, a domain.Attendee) error
	RemoveAttendee(ctx context.Context, roomID, attendeeID string) error
	AppendQuestion(ctx context.Context, roomID string, q *domain.Question) error
	AddVote(ctx context.Context, roomID string, questionID primitive.ObjectID, voterID string) error
	RemoveVote(ctx context.Context, roomID string, questionID primitive.ObjectID, voterID string) error
	SetQuestionFlag(ctx context.Context, roomID string, questionID primitive.ObjectID, field string, value bool) error
	SetStatus(ctx context.Context, roomID string, status domain.SessionStatus) error
	Delete(ctx context.Context, roomID string) error
}

// PurgeScheduler defers the physical removal of a closed session.
type PurgeScheduler interface {
	SchedulePurge(ctx context.Context, roomID string, in time.Duration) error
}

const createRetries = 5

type SessionService struct {
	store SessionStore
	purge PurgeScheduler

	storeTimeout time.Duration
	graceDelay   time.Duration
}

func NewSessionService(store SessionStore, purge PurgeScheduler) *SessionService {
	return &SessionService{
		store:        store,
		purge:        purge,
		storeTimeout: 5 * time.Second,
		graceDelay:   5 * time.Second,
	}
}

func (s *SessionService) SetStoreTimeout(d time.Duration) {
	if d > 0 {
		s.storeTimeout = d
	}
}

func (s *SessionService) SetGraceDelay(d time.Duration) {
	if d > 0 {
		s.graceDelay = d
	}
}

// Create starts a new session with a fresh room code. Codes are regenerated
// on the unlikely collision with an existing one.
func (s *SessionService) Create(ctx context.Context, name, owner string) (*domain.Session, error) {
	name = strings.TrimSpace(name)
	owner = strings.TrimSpace(owner)
	if name == "" || owner == "" {
		return nil, fmt.Errorf("%w: session name and owner are required", domain.ErrInvalidArgument)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	var lastErr error
	for i := 0; i < createRetries; i++ {
		session := &domain.Session{
			RoomID:    domain.NewRoomID(),
			Name:      name,
			Owner:     owner,
			Attendees: []domain.Attendee{},
			Questions: []domain.Question{},
			Status:    domain.StatusActive,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		err := s.store.Create(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrRoomIDTaken) {
			return nil, s.storeErr(err)
		}
		lastErr = err
	}
	return nil, s.storeErr(lastErr)
}

// Join adds the attendee with set semantics: re-joining with the same id is a
// no-op, and the owner is never added to the attendee list.
func (s *SessionService) Join(ctx context.Context, roomID string, attendee domain.Attendee) (*domain.Session, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	session, err := s.store.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if attendee.ID == session.Owner || session.HasAttendee(attendee.ID) {
		return session, nil
	}

	if err := s.store.AddAttendee(ctx, roomID, attendee); err != nil {
		return nil, s.storeErr(err)
	}
	return s.refetch(ctx, roomID)
}

// Leave removes the attendee if present. Leaving a room you are not in is a
// no-op, not an error.
func (s *SessionService) Leave(ctx context.Context, roomID, attendeeID string) (*domain.Session, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.store.FindByRoomID(ctx, roomID); err != nil {
		return nil, s.storeErr(err)
	}
	if err := s.store.RemoveAttendee(ctx, roomID, attendeeID); err != nil {
		return nil, s.storeErr(err)
	}
	return s.refetch(ctx, roomID)
}

// AddQuestion appends a question after rejecting near-duplicates. Only joined
// attendees may ask.
func (s *SessionService) AddQuestion(ctx context.Context, roomID, text, authorID, authorName string) (*domain.Question, *domain.Session, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, fmt.Errorf("%w: question text is required", domain.ErrInvalidArgument)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	session, err := s.store.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, nil, s.storeErr(err)
	}
	if !session.HasAttendee(authorID) {
		return nil, nil, fmt.Errorf("%w: author %q is not an attendee of %s", domain.ErrForbidden, authorID, roomID)
	}
	if session.HasSimilarQuestion(text) {
		return nil, nil, domain.ErrDuplicateQuestion
	}

	question := &domain.Question{
		ID:          primitive.NewObjectID(),
		Text:        text,
		AuthorID:    authorID,
		AuthorName:  authorName,
		UpVotes:     0,
		UpVotedBy:   []string{},
		Answered:    false,
		Highlighted: false,
		CreatedAt:   time.Now(),
	}
	if err := s.store.AppendQuestion(ctx, roomID, question); err != nil {
		return nil, nil, s.storeErr(err)
	}

	updated, err := s.refetch(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	created, ok := updated.Question(question.ID)
	if !ok {
		return nil, nil, s.storeErr(domain.ErrQuestionNotFound)
	}
	return created, updated, nil
}

// ToggleVote flips the voter's membership in upVotedBy. The store pairs the
// set change with the counter change atomically; a lost race against an
// identical concurrent toggle degrades to a no-op and the fresh snapshot is
// returned either way.
func (s *SessionService) ToggleVote(ctx context.Context, roomID, questionID, voterID string) (*domain.Question, *domain.Session, error) {
	qid, err := primitive.ObjectIDFromHex(questionID)
	if err != nil {
		return nil, nil, domain.ErrQuestionNotFound
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	session, err := s.store.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, nil, s.storeErr(err)
	}
	if !session.IsParticipant(voterID) {
		return nil, nil, fmt.Errorf("%w: voter %q is not part of %s", domain.ErrForbidden, voterID, roomID)
	}
	question, ok := session.Question(qid)
	if !ok {
		return nil, nil, domain.ErrQuestionNotFound
	}

	if question.VotedBy(voterID) {
		err = s.store.RemoveVote(ctx, roomID, qid, voterID)
	} else {
		err = s.store.AddVote(ctx, roomID, qid, voterID)
	}
	if err != nil {
		return nil, nil, s.storeErr(err)
	}

	updated, err := s.refetch(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	current, ok := updated.Question(qid)
	if !ok {
		return nil, nil, domain.ErrQuestionNotFound
	}
	// upVotedBy is the source of truth; never let the counter drift.
	current.UpVotes = len(current.UpVotedBy)
	return current, updated, nil
}

// Mark sets the answered/highlighted flag named by action. Owner only.
func (s *SessionService) Mark(ctx context.Context, roomID, questionID, action, actorID string) (*domain.Question, *domain.Session, error) {
	qid, err := primitive.ObjectIDFromHex(questionID)
	if err != nil {
		return nil, nil, domain.ErrQuestionNotFound
	}

	var field string
	var value bool
	switch action {
	case "answered":
		field, value = "answered", true
	case "unanswered":
		field, value = "answered", false
	case "highlighted":
		field, value = "highlighted", true
	case "unhighlighted":
		field, value = "highlighted", false
	default:
		return nil, nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidArgument, action)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	session, err := s.store.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, nil, s.storeErr(err)
	}
	if session.Owner != actorID {
		return nil, nil, fmt.Errorf("%w: only the owner may mark questions", domain.ErrForbidden)
	}
	if _, ok := session.Question(qid); !ok {
		return nil, nil, domain.ErrQuestionNotFound
	}

	if err := s.store.SetQuestionFlag(ctx, roomID, qid, field, value); err != nil {
		return nil, nil, s.storeErr(err)
	}

	updated, err := s.refetch(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	current, ok := updated.Question(qid)
	if !ok {
		return nil, nil, domain.ErrQuestionNotFound
	}
	return current, updated, nil
}

// Close marks the session closed and schedules its physical removal after the
// grace delay, so in-flight close notifications land before reads start
// returning not-found.
func (s *SessionService) Close(ctx context.Context, roomID, actorID string) (*domain.Session, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	session, err := s.store.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if session.Owner != actorID {
		return nil, fmt.Errorf("%w: only the owner may close the session", domain.ErrForbidden)
	}

	if err := s.store.SetStatus(ctx, roomID, domain.StatusClosed); err != nil {
		return nil, s.storeErr(err)
	}
	session.Status = domain.StatusClosed

	if s.purge != nil {
		if err := s.purge.SchedulePurge(ctx, roomID, s.graceDelay); err != nil {
			// The close itself succeeded; a stuck purge only delays cleanup.
			slog.Warn("schedule session purge failed", "room", roomID, "err", err)
		}
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, roomID string) (*domain.Session, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	session, err := s.store.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return session, nil
}

func (s *SessionService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *SessionService) refetch(ctx context.Context, roomID string) (*domain.Session, error) {
	session, err := s.store.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return session, nil
}

// storeErr passes domain sentinels through and folds everything else,
// including deadline expiry, into ErrUnavailable.
func (s *SessionService) storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrDuplicateQuestion),
		errors.Is(err, domain.ErrInvalidArgument):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: store timed out", domain.ErrUnavailable)
	default:
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
}
