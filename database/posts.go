package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"socialfeed/errs"
	"socialfeed/models"
	"socialfeed/query"
)

func postNotFound() error {
	return errs.Errorf(errs.NotFound, "Post not found.")
}

func (s *Store) InsertPost(ctx context.Context, post *models.Post) error {
	_, err := s.posts.InsertOne(ctx, post)
	return err
}

func (s *Store) FindPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, postNotFound()
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// FindPostsByOwners returns one page of posts owned by any of owners, newest first.
func (s *Store) FindPostsByOwners(ctx context.Context, owners []primitive.ObjectID, page query.Page) ([]models.Post, error) {
	filter := query.OwnerIn(owners)
	if len(owners) == 1 {
		filter = query.Owner(owners[0])
	}
	return s.findPage(ctx, filter, page)
}

// FindPostsByIDs returns one page of the posts in ids, newest first.
func (s *Store) FindPostsByIDs(ctx context.Context, ids []primitive.ObjectID, page query.Page) ([]models.Post, error) {
	return s.findPage(ctx, query.IDIn(ids), page)
}

func (s *Store) findPage(ctx context.Context, filter bson.M, page query.Page) ([]models.Post, error) {
	filter, opts := query.Paginate(filter, page)

	cursor, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// UpdateOwnedPost replaces content and images only when owner matches.
func (s *Store) UpdateOwnedPost(ctx context.Context, id, owner primitive.ObjectID, content string, images []string) (*models.Post, error) {
	update := bson.M{"$set": bson.M{
		"content":   content,
		"images":    images,
		"updatedAt": time.Now().UTC(),
	}}
	return s.updatePost(ctx, bson.M{"_id": id, "user": owner}, update)
}

// AddLike inserts userID into the liker set with one conditional update.
// When nothing matched, a second read tells a duplicate like from a missing post.
func (s *Store) AddLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	filter := bson.M{"_id": postID, "likes": bson.M{"$ne": userID}}
	update := bson.M{"$addToSet": bson.M{"likes": userID}}

	post, err := s.updatePost(ctx, filter, update)
	if errs.KindOf(err) != errs.NotFound {
		return post, err
	}

	exists, err := s.postExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.Errorf(errs.Conflict, "You have already liked this post.")
	}
	return nil, postNotFound()
}

// RemoveLike pulls userID from the liker set. Removing an absent member is a no-op.
func (s *Store) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	return s.updatePost(ctx, bson.M{"_id": postID}, bson.M{"$pull": bson.M{"likes": userID}})
}

func (s *Store) updatePost(ctx context.Context, filter, update bson.M) (*models.Post, error) {
	var post models.Post
	err := s.posts.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, postNotFound()
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Store) postExists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := s.posts.FindOne(ctx, bson.M{"_id": id}, opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return err == nil, err
}

// DeleteOwnedPost deletes the post only when owner matches and returns the
// deleted document so its comments can be cascaded.
func (s *Store) DeleteOwnedPost(ctx context.Context, id, owner primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := s.posts.FindOneAndDelete(ctx, bson.M{"_id": id, "user": owner}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, postNotFound()
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// SamplePosts draws up to n random posts whose owner is not excluded.
func (s *Store) SamplePosts(ctx context.Context, excludeOwners []primitive.ObjectID, n int) ([]models.Post, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: query.OwnerNotIn(excludeOwners)}},
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: n}}}},
	}

	cursor, err := s.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}
