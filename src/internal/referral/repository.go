package referral

import (
	"context"
	"errors"
	"pos-handoff-svc/src/clients"
	"pos-handoff-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repository interface {
	FindByID(ctx context.Context, referralID string) (*ReferralSource, error)
	IncrementApplicationCounter(ctx context.Context, referralID string) error
}

type referralRepository struct {
	collection *mongo.Collection
}

func NewReferralRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &referralRepository{collection: collection}
}

func (r *referralRepository) FindByID(ctx context.Context, referralID string) (*ReferralSource, error) {
	var source ReferralSource
	filter := bson.M{"referral_source_id": referralID}

	err := r.collection.FindOne(ctx, filter).Decode(&source)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrReferralSourceNotFound
		}
		logrus.WithError(err).WithField("referral_source_id", referralID).Error("Failed to get referral source")
		return nil, models.ErrDatabaseQuery
	}

	return &source, nil
}

func (r *referralRepository) IncrementApplicationCounter(ctx context.Context, referralID string) error {
	filter := bson.M{"referral_source_id": referralID}
	update := bson.M{"$inc": bson.M{"application_count": 1}}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("referral_source_id", referralID).Error("Failed to increment application counter")
		return models.ErrDatabaseUpdate
	}
	if res.MatchedCount == 0 {
		return models.ErrReferralSourceNotFound
	}

	logrus.WithField("referral_source_id", referralID).Debug("Referral application counter incremented")
	return nil
}
