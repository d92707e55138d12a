package loan

import (
	"context"
	"errors"
	"pos-handoff-svc/src/clients"
	"pos-handoff-svc/src/internal/models"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repository interface {
	FindByID(ctx context.Context, loanID string) (*Loan, error)
	UpdateExternalReference(ctx context.Context, loanID, externalLoanID string, syncedAt time.Time) error
}

type loanRepository struct {
	collection *mongo.Collection
}

func NewLoanRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &loanRepository{collection: collection}
}

func (r *loanRepository) FindByID(ctx context.Context, loanID string) (*Loan, error) {
	var loan Loan
	filter := bson.M{"loan_id": loanID}

	err := r.collection.FindOne(ctx, filter).Decode(&loan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrLoanNotFound
		}
		logrus.WithError(err).WithField("loan_id", loanID).Error("Failed to get loan")
		return nil, models.ErrDatabaseQuery
	}

	return &loan, nil
}

func (r *loanRepository) UpdateExternalReference(ctx context.Context, loanID, externalLoanID string, syncedAt time.Time) error {
	filter := bson.M{"loan_id": loanID}
	update := bson.M{
		"$set": bson.M{
			"external_loan_id": externalLoanID,
			"last_synced_at":   syncedAt,
		},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("loan_id", loanID).Error("Failed to update loan external reference")
		return models.ErrDatabaseUpdate
	}
	if res.MatchedCount == 0 {
		return models.ErrLoanNotFound
	}

	logrus.WithFields(logrus.Fields{
		"loan_id":          loanID,
		"external_loan_id": externalLoanID,
	}).Debug("Loan external reference updated")

	return nil
}
