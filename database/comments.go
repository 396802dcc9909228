package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"socialfeed/models"
	"socialfeed/query"
)

func (s *Store) FindComments(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error) {
	cursor, err := s.comments.Find(ctx, query.IDIn(ids))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var comments []models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Store) DeleteComments(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	res, err := s.comments.DeleteMany(ctx, query.IDIn(ids))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteOrphanComments removes comments whose postId no longer matches a post.
func (s *Store) DeleteOrphanComments(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: postsCollection},
			{Key: "localField", Value: "postId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "post"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "post", Value: bson.D{{Key: "$size", Value: 0}}}}}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := s.comments.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var orphans []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &orphans); err != nil {
		return 0, err
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	ids := make([]primitive.ObjectID, len(orphans))
	for i, o := range orphans {
		ids[i] = o.ID
	}
	return s.DeleteComments(ctx, ids)
}
