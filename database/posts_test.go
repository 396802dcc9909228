package database

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"socialfeed/errs"
	"socialfeed/query"
)

const postsNS = "socialfeed.posts"

func postDoc(id, owner primitive.ObjectID, created time.Time, likes ...primitive.ObjectID) bson.D {
	if likes == nil {
		likes = []primitive.ObjectID{}
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "user", Value: owner},
		{Key: "content", Value: "hi"},
		{Key: "images", Value: bson.A{"img1"}},
		{Key: "likes", Value: likes},
		{Key: "comments", Value: bson.A{}},
		{Key: "createdAt", Value: created},
		{Key: "updatedAt", Value: created},
	}
}

func TestAddLike(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("adds the user once", func(mt *mtest.T) {
		store := NewStore(mt.DB, false)
		postID, owner, liker := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: postDoc(postID, owner, created, liker)},
		))

		post, err := store.AddLike(ctx, postID, liker)
		if err != nil {
			mt.Fatalf("add like: %v", err)
		}
		if len(post.Likes) != 1 || post.Likes[0] != liker {
			mt.Fatalf("likes = %v", post.Likes)
		}
	})

	mt.Run("already liked is a conflict", func(mt *mtest.T) {
		store := NewStore(mt.DB, false)
		postID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, postsNS, mtest.FirstBatch, bson.D{{Key: "_id", Value: postID}}),
		)

		_, err := store.AddLike(ctx, postID, primitive.NewObjectID())
		if errs.KindOf(err) != errs.Conflict {
			mt.Fatalf("expected Conflict, got %v", err)
		}
	})

	mt.Run("missing post is not found", func(mt *mtest.T) {
		store := NewStore(mt.DB, false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, postsNS, mtest.FirstBatch),
		)

		_, err := store.AddLike(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		if errs.KindOf(err) != errs.NotFound {
			mt.Fatalf("expected NotFound, got %v", err)
		}
	})
}

func TestFindPostsByOwners(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes a page", func(mt *mtest.T) {
		store := NewStore(mt.DB, false)
		owner := primitive.NewObjectID()
		newer, older := primitive.NewObjectID(), primitive.NewObjectID()
		t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, postsNS, mtest.FirstBatch,
			postDoc(newer, owner, t0.Add(time.Hour)),
			postDoc(older, owner, t0),
		))

		posts, err := store.FindPostsByOwners(context.Background(), []primitive.ObjectID{owner}, query.Page{Page: 1, Limit: 9})
		if err != nil {
			mt.Fatalf("find: %v", err)
		}
		if len(posts) != 2 || posts[0].ID != newer || posts[1].ID != older {
			mt.Fatalf("posts = %+v", posts)
		}
		if posts[0].Images[0] != "img1" || posts[0].User != owner {
			mt.Fatalf("decoded post = %+v", posts[0])
		}
	})
}

func TestDeleteOwnedPost(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("returns the deleted post", func(mt *mtest.T) {
		store := NewStore(mt.DB, false)
		postID, owner := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: postDoc(postID, owner, time.Now().UTC())},
		))

		post, err := store.DeleteOwnedPost(ctx, postID, owner)
		if err != nil {
			mt.Fatalf("delete: %v", err)
		}
		if post.ID != postID {
			mt.Fatalf("deleted %s, want %s", post.ID.Hex(), postID.Hex())
		}
	})

	mt.Run("wrong owner matches nothing", func(mt *mtest.T) {
		store := NewStore(mt.DB, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		_, err := store.DeleteOwnedPost(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		if errs.KindOf(err) != errs.NotFound {
			mt.Fatalf("expected NotFound, got %v", err)
		}
	})
}

func TestDeleteComments(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("reports deleted count", func(mt *mtest.T) {
		store := NewStore(mt.DB, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(2)}))

		n, err := store.DeleteComments(context.Background(), []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()})
		if err != nil {
			mt.Fatalf("delete comments: %v", err)
		}
		if n != 2 {
			mt.Fatalf("deleted = %d", n)
		}
	})
}

func TestSamplePosts(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes sampled posts", func(mt *mtest.T) {
		store := NewStore(mt.DB, false)
		stranger := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, postsNS, mtest.FirstBatch,
			postDoc(primitive.NewObjectID(), stranger, time.Now().UTC()),
		))

		posts, err := store.SamplePosts(context.Background(), []primitive.ObjectID{primitive.NewObjectID()}, 8)
		if err != nil {
			mt.Fatalf("sample: %v", err)
		}
		if len(posts) != 1 || posts[0].User != stranger {
			mt.Fatalf("posts = %+v", posts)
		}
	})
}
