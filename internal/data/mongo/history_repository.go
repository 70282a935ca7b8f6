// Package mongo implements the ledger history archive, a read model fed
// from the Kafka event stream. It is eventually consistent with the
// PostgreSQL ledger and serves statement queries off the hot path.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/google/uuid"
)

const (
	// HistoryCollectionName is the name of the archive collection
	HistoryCollectionName = "ledger_history"
)

// HistoryRepository stores and queries archived ledger entries
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB history repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Archive upserts an entry keyed by entry id. Kafka gives at-least-once
// delivery, so the same entry may arrive more than once; the upsert
// makes redelivery harmless.
func (r *HistoryRepository) Archive(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"entry_id": entry.ID}
	opts := options.Replace().SetUpsert(true)

	_, err := collection.ReplaceOne(ctx, filter, entry, opts)
	if err != nil {
		r.logger.Error("Failed to archive ledger entry", "entry_id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to archive ledger entry: %w", err)
	}

	return nil
}

// GetStatement retrieves paginated archived entries for an account
// within a date range, newest first. A zero time bound is open.
func (r *HistoryRepository) GetStatement(ctx context.Context, accountID uuid.UUID, since, until time.Time, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := statementFilter(accountID, since, until)
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to query ledger history", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to query ledger history: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger history", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to decode ledger history: %w", err)
	}

	return entries, nil
}

// CountStatement counts archived entries under the same filter as
// GetStatement, for pagination metadata
func (r *HistoryRepository) CountStatement(ctx context.Context, accountID uuid.UUID, since, until time.Time) (int64, error) {
	collection := r.db.Collection(HistoryCollectionName)

	count, err := collection.CountDocuments(ctx, statementFilter(accountID, since, until))
	if err != nil {
		r.logger.Error("Failed to count ledger history", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger history: %w", err)
	}

	return count, nil
}

func statementFilter(accountID uuid.UUID, since, until time.Time) bson.M {
	filter := bson.M{"account_id": accountID}
	created := bson.M{}
	if !since.IsZero() {
		created["$gte"] = since
	}
	if !until.IsZero() {
		created["$lte"] = until
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return filter
}
