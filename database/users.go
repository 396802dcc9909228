package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"socialfeed/errs"
	"socialfeed/models"
	"socialfeed/query"
)

// Never load credentials or other account fields into this service.
var userProjection = bson.M{
	"username":  1,
	"fullname":  1,
	"avatar":    1,
	"followers": 1,
	"following": 1,
	"saved":     1,
}

func userNotFound() error {
	return errs.Errorf(errs.NotFound, "User not found.")
}

// FindUser loads the caller's document, including following and saved sets.
func (s *Store) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	opts := options.FindOne().SetProjection(userProjection)
	err := s.users.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, userNotFound()
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	opts := options.Find().SetProjection(bson.M{
		"username":  1,
		"fullname":  1,
		"avatar":    1,
		"followers": 1,
	})
	cursor, err := s.users.Find(ctx, query.IDIn(ids), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AddSaved bookmarks postID on the user's own document.
func (s *Store) AddSaved(ctx context.Context, userID, postID primitive.ObjectID) error {
	return s.updateSaved(ctx, userID, bson.M{"$addToSet": bson.M{"saved": postID}})
}

func (s *Store) RemoveSaved(ctx context.Context, userID, postID primitive.ObjectID) error {
	return s.updateSaved(ctx, userID, bson.M{"$pull": bson.M{"saved": postID}})
}

func (s *Store) updateSaved(ctx context.Context, userID primitive.ObjectID, update bson.M) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return userNotFound()
	}
	return nil
}
