package database

import (
	"context"
	"errors"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"socialfeed/errs"
	"socialfeed/models"
)

// Subscriptions stores one web-push subscription per user.
type Subscriptions struct {
	coll *mongo.Collection
}

func NewSubscriptions(db *mongo.Database) *Subscriptions {
	return &Subscriptions{coll: db.Collection(subscriptionsCollection)}
}

// Save inserts or replaces the subscription for userID.
func (s *Subscriptions) Save(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$set":         bson.M{"sub": sub, "updatedAt": time.Now().UTC()},
			"$setOnInsert": bson.M{"userId": userID},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Subscriptions) Find(ctx context.Context, userID primitive.ObjectID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.Errorf(errs.NotFound, "Subscription not found.")
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Subscriptions) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}
