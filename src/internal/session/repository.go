package session

import (
	"context"
	"errors"
	"pos-handoff-svc/src/clients"
	"pos-handoff-svc/src/internal/models"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActivationAnalytics is the client context captured when a session is
// activated.
type ActivationAnalytics struct {
	IPAddress               string
	UserAgent               string
	DeviceType              string
	Platform                string
	TimeToActivationSeconds int64
}

// TransitionUpdate describes one state machine move. The repository derives
// the legal source statuses from the central transition table and pins them
// into the update filter, so a concurrent writer that got there first makes
// this update match nothing.
type TransitionUpdate struct {
	To                      Status
	ActivatedAt             *time.Time
	CompletedAt             *time.Time
	Analytics               *ActivationAnalytics
	TimeToCompletionSeconds *int64
	CompletionData          *CompletionData
	Audit                   AuditEntry
}

type Repository interface {
	Insert(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, sessionID string) (*Session, error)
	Transition(ctx context.Context, sessionID string, update TransitionUpdate) error
	AppendEvent(ctx context.Context, sessionID, counterField string, audit AuditEntry) error
	RecordError(ctx context.Context, sessionID string, entry ErrorEntry) error
	Extend(ctx context.Context, sessionID string, expiresAt time.Time, audit AuditEntry) error
	SweepExpired(ctx context.Context, now time.Time) ([]string, error)
	EnsureIndexes(ctx context.Context) error
}

type sessionRepository struct {
	collection *mongo.Collection
}

func NewSessionRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &sessionRepository{collection: collection}
}

func (r *sessionRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "session_token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logrus.WithError(err).Error("Failed to create session indexes")
		return err
	}
	return nil
}

func (r *sessionRepository) Insert(ctx context.Context, session *Session) error {
	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		logrus.WithError(err).WithField("session_id", session.SessionID).Error("Failed to insert session")
		return models.ErrDatabaseInsert
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	filter := bson.M{"session_id": sessionID}

	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to get session")
		return nil, models.ErrDatabaseQuery
	}

	return &session, nil
}

// Transition performs the compare-and-swap status update. The filter pins
// both the session id and the set of statuses the target is reachable
// from; a matched count of zero means either a missing session or a lost
// race, disambiguated by a follow-up read.
func (r *sessionRepository) Transition(ctx context.Context, sessionID string, update TransitionUpdate) error {
	sources := TransitionSources(update.To)
	if len(sources) == 0 {
		return models.ErrInvalidStateTransition
	}

	filter := bson.M{
		"session_id": sessionID,
		"status":     bson.M{"$in": sources},
	}

	set := bson.M{"status": update.To}
	if update.ActivatedAt != nil {
		set["activated_at"] = update.ActivatedAt
	}
	if update.CompletedAt != nil {
		set["completed_at"] = update.CompletedAt
	}
	if update.Analytics != nil {
		set["analytics.ip_address"] = update.Analytics.IPAddress
		set["analytics.user_agent"] = update.Analytics.UserAgent
		set["analytics.device_type"] = update.Analytics.DeviceType
		set["analytics.platform"] = update.Analytics.Platform
		set["analytics.time_to_activation_seconds"] = update.Analytics.TimeToActivationSeconds
	}
	if update.TimeToCompletionSeconds != nil {
		set["analytics.time_to_completion_seconds"] = update.TimeToCompletionSeconds
	}
	if update.CompletionData != nil {
		set["completion_data"] = update.CompletionData
	}

	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set":  set,
		"$push": bson.M{"audit_log": update.Audit},
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"to_status":  update.To,
		}).Error("Failed to apply session transition")
		return models.ErrDatabaseUpdate
	}

	if res.MatchedCount == 0 {
		if _, getErr := r.GetByID(ctx, sessionID); getErr != nil {
			return getErr
		}
		return models.ErrInvalidStateTransition
	}

	return nil
}

// AppendEvent records a tracked event. Tracking is deliberately permissive
// about status; only a missing session is an error.
func (r *sessionRepository) AppendEvent(ctx context.Context, sessionID, counterField string, audit AuditEntry) error {
	update := bson.M{
		"$push": bson.M{"audit_log": audit},
	}
	if counterField != "" {
		update["$inc"] = bson.M{"analytics." + counterField: 1}
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"session_id": sessionID}, update)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to append session event")
		return models.ErrDatabaseUpdate
	}
	if res.MatchedCount == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) RecordError(ctx context.Context, sessionID string, entry ErrorEntry) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$push": bson.M{"errors": entry}},
	)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to record session error")
		return models.ErrDatabaseUpdate
	}
	if res.MatchedCount == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// Extend pushes expires_at forward. Only non-terminal sessions qualify;
// the move is audited like any transition even though status is unchanged.
func (r *sessionRepository) Extend(ctx context.Context, sessionID string, expiresAt time.Time, audit AuditEntry) error {
	filter := bson.M{
		"session_id": sessionID,
		"status":     bson.M{"$in": []Status{StatusPending, StatusActive}},
	}

	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set":  bson.M{"expires_at": expiresAt},
		"$push": bson.M{"audit_log": audit},
	})
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to extend session")
		return models.ErrDatabaseUpdate
	}
	if res.MatchedCount == 0 {
		if _, getErr := r.GetByID(ctx, sessionID); getErr != nil {
			return getErr
		}
		return models.ErrInvalidStateTransition
	}
	return nil
}

// SweepExpired marks every stale pending/active session expired in one
// batch update and returns the ids it found. Re-running against the same
// stale set is a no-op because the filter excludes expired sessions.
func (r *sessionRepository) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	filter := bson.M{
		"status":     bson.M{"$in": []Status{StatusPending, StatusActive}},
		"expires_at": bson.M{"$lt": now},
	}

	opts := options.Find().SetProjection(bson.M{"session_id": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find stale sessions")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			SessionID string `bson:"session_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			logrus.WithError(err).Error("Failed to decode stale session id")
			continue
		}
		ids = append(ids, doc.SessionID)
	}
	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error while sweeping sessions")
		return nil, models.ErrDatabaseQuery
	}

	if len(ids) == 0 {
		return nil, nil
	}

	audit := AuditEntry{
		Timestamp: now,
		Action:    ActionExpired,
		Details:   map[string]string{"swept_by": "expiration_sweeper"},
	}

	_, err = r.collection.UpdateMany(ctx, filter, bson.M{
		"$set":  bson.M{"status": StatusExpired},
		"$push": bson.M{"audit_log": audit},
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to expire stale sessions")
		return nil, models.ErrDatabaseUpdate
	}

	return ids, nil
}
