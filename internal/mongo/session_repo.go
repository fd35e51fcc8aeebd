package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/interactify/qna-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionRepository persists sessions as single documents with questions
// embedded as subdocuments. All mutations are single atomic updates so
// concurrent writers on the same room never lose each other's changes.
type SessionRepository struct {
	col *mongo.Collection
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{col: db.Database.Collection("sessions")}
}

// EnsureIndexes creates the unique roomId index. Create relies on it to
// reject code collisions.
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("ensure roomId index: %w", err)
	}
	return nil
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	res, err := r.col.InsertOne(ctx, s)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRoomIDTaken
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		s.ID = oid
	}
	return nil
}

func (r *SessionRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.Session, error) {
	var s domain.Session
	err := r.col.FindOne(ctx, bson.M{"roomId": roomID}).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// AddAttendee adds with set semantics keyed by attendee id: the filter skips
// documents that already contain the id, so a re-join never duplicates an
// attendee even under concurrent joins.
func (r *SessionRepository) AddAttendee(ctx context.Context, roomID string, a domain.Attendee) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"roomId": roomID, "attendees.id": bson.M{"$ne": a.ID}},
		bson.M{
			"$addToSet": bson.M{"attendees": a},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	return err
}

func (r *SessionRepository) RemoveAttendee(ctx context.Context, roomID, attendeeID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"roomId": roomID},
		bson.M{
			"$pull": bson.M{"attendees": bson.M{"id": attendeeID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	return err
}

func (r *SessionRepository) AppendQuestion(ctx context.Context, roomID string, q *domain.Question) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"roomId": roomID},
		bson.M{
			"$push": bson.M{"questions": q},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// AddVote pairs $addToSet with $inc in one update. The elemMatch filter only
// matches when the voter is absent, so the count and the set move together
// regardless of interleaving.
func (r *SessionRepository) AddVote(ctx context.Context, roomID string, questionID primitive.ObjectID, voterID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{
			"roomId": roomID,
			"questions": bson.M{"$elemMatch": bson.M{
				"_id":       questionID,
				"upVotedBy": bson.M{"$ne": voterID},
			}},
		},
		bson.M{
			"$addToSet": bson.M{"questions.$.upVotedBy": voterID},
			"$inc":      bson.M{"questions.$.upVotes": 1},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	return err
}

func (r *SessionRepository) RemoveVote(ctx context.Context, roomID string, questionID primitive.ObjectID, voterID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{
			"roomId": roomID,
			"questions": bson.M{"$elemMatch": bson.M{
				"_id":       questionID,
				"upVotedBy": voterID,
			}},
		},
		bson.M{
			"$pull": bson.M{"questions.$.upVotedBy": voterID},
			"$inc":  bson.M{"questions.$.upVotes": -1},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	return err
}

func (r *SessionRepository) SetQuestionFlag(ctx context.Context, roomID string, questionID primitive.ObjectID, field string, value bool) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"roomId": roomID, "questions._id": questionID},
		bson.M{"$set": bson.M{
			"questions.$." + field: value,
			"updatedAt":            time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r *SessionRepository) SetStatus(ctx context.Context, roomID string, status domain.SessionStatus) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"roomId": roomID},
		bson.M{"$set": bson.M{
			"sessionStatus": status,
			"updatedAt":     time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, roomID string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"roomId": roomID})
	return err
}
