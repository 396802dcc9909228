package database

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"socialfeed/feed"
)

const (
	postsCollection         = "posts"
	commentsCollection      = "comments"
	usersCollection         = "users"
	subscriptionsCollection = "subscriptions"
)

// Store implements feed.Store on MongoDB collections.
type Store struct {
	client       *mongo.Client
	posts        *mongo.Collection
	comments     *mongo.Collection
	users        *mongo.Collection
	transactions bool
}

var _ feed.Store = (*Store)(nil)

// NewStore wires the feed collections of db. Transactions require a replica
// set or sharded cluster.
func NewStore(db *mongo.Database, transactions bool) *Store {
	return &Store{
		client:       db.Client(),
		posts:        db.Collection(postsCollection),
		comments:     db.Collection(commentsCollection),
		users:        db.Collection(usersCollection),
		transactions: transactions,
	}
}

func (s *Store) Transactional() bool { return s.transactions }

// WithTx runs fn inside a session transaction when enabled. fn may be
// retried by the driver on transient transaction errors.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
