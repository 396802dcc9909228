package feed

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"socialfeed/models"
)

// LikePost adds caller to the post's liker set. A second like by the same
// user fails with errs.Conflict; the store performs the check and the insert
// as one conditional update.
func (s *Service) LikePost(ctx context.Context, caller *models.User, postID primitive.ObjectID) (*PostResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	post, err := s.store.AddLike(ctx, postID, caller.ID)
	if err != nil {
		return nil, s.fail("like post", err)
	}
	s.cache.InvalidatePost(ctx, postID.Hex())

	if post.User != caller.ID {
		s.notify.Notify(Event{
			Type:       EventPostLiked,
			PostID:     post.ID,
			Actor:      models.AuthorOf(caller, false),
			Recipients: []primitive.ObjectID{post.User},
		})
	}
	return &PostResponse{Msg: "Post liked successfully.", Post: post}, nil
}

// UnlikePost removes caller from the liker set. Safe to repeat.
func (s *Service) UnlikePost(ctx context.Context, caller *models.User, postID primitive.ObjectID) (*PostResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	post, err := s.store.RemoveLike(ctx, postID, caller.ID)
	if err != nil {
		return nil, s.fail("unlike post", err)
	}
	s.cache.InvalidatePost(ctx, postID.Hex())
	return &PostResponse{Msg: "Post unliked successfully.", Post: post}, nil
}

// SavePost bookmarks postID in the caller's own saved set.
func (s *Service) SavePost(ctx context.Context, caller *models.User, postID primitive.ObjectID) (*MessageResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.AddSaved(ctx, caller.ID, postID); err != nil {
		return nil, s.fail("save post", err)
	}
	return &MessageResponse{Msg: "Post saved successfully."}, nil
}

// UnsavePost removes postID from the caller's saved set. Safe to repeat.
func (s *Service) UnsavePost(ctx context.Context, caller *models.User, postID primitive.ObjectID) (*MessageResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.RemoveSaved(ctx, caller.ID, postID); err != nil {
		return nil, s.fail("unsave post", err)
	}
	return &MessageResponse{Msg: "Post unsaved successfully."}, nil
}
