package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the marketplace relies on for correctness.
// The unique (listing_id, buyer_id) index on leads is what makes duplicate
// enquiries impossible under concurrent submission; the application pre-check
// only exists to produce a friendlier message.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	accountIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"deleted": false}),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "account_status", Value: 1}},
			Options: options.Index().SetName("role_status"),
		},
	}
	if _, err := db.Collection("accounts").Indexes().CreateMany(ctx, accountIndexes); err != nil {
		return fmt.Errorf("failed to create account indexes: %w", err)
	}

	listingIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("status_created"),
		},
		{
			Keys:    bson.D{{Key: "seller_id", Value: 1}},
			Options: options.Index().SetName("seller"),
		},
		{
			Keys:    bson.D{{Key: "assigned_agent_id", Value: 1}},
			Options: options.Index().SetName("assigned_agent"),
		},
	}
	if _, err := db.Collection("listings").Indexes().CreateMany(ctx, listingIndexes); err != nil {
		return fmt.Errorf("failed to create listing indexes: %w", err)
	}

	leadIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "buyer_id", Value: 1}},
			Options: options.Index().
				SetName("listing_buyer_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"deleted": false}),
		},
	}
	if _, err := db.Collection("leads").Indexes().CreateMany(ctx, leadIndexes); err != nil {
		return fmt.Errorf("failed to create lead indexes: %w", err)
	}

	verificationIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("expiry"),
		},
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().SetName("account_type"),
		},
	}
	if _, err := db.Collection("verification_actions").Indexes().CreateMany(ctx, verificationIndexes); err != nil {
		return fmt.Errorf("failed to create verification indexes: %w", err)
	}

	return nil
}
