package feed

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"socialfeed/models"
)

// DeletePost removes a post owned by caller and then the comments it
// references. The owner check is part of the delete itself; a miss means the
// post is absent or belongs to someone else, and no comment is touched.
//
// In a transactional store both steps commit together. Otherwise a failed
// comment delete is logged and left to the Sweeper.
func (s *Service) DeletePost(ctx context.Context, caller *models.User, postID primitive.ObjectID) (*MessageResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		post, err := s.store.DeleteOwnedPost(ctx, postID, caller.ID)
		if err != nil {
			return err
		}
		if len(post.Comments) == 0 {
			return nil
		}
		n, err := s.store.DeleteComments(ctx, post.Comments)
		if err != nil {
			if s.store.Transactional() {
				return err
			}
			s.log.Warn("comment cascade incomplete",
				zap.String("post", postID.Hex()),
				zap.Int("comments", len(post.Comments)),
				zap.Error(err))
			return nil
		}
		if int(n) != len(post.Comments) {
			s.log.Info("comment cascade removed fewer comments than referenced",
				zap.String("post", postID.Hex()),
				zap.Int64("deleted", n),
				zap.Int("referenced", len(post.Comments)))
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("delete post", err)
	}

	s.cache.InvalidatePost(ctx, postID.Hex())
	return &MessageResponse{Msg: "Post deleted successfully."}, nil
}

// Sweeper periodically removes comments whose post no longer exists.
type Sweeper struct {
	comments CommentStore
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewSweeper(comments CommentStore, interval time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{comments: comments, interval: interval, timeout: time.Minute, log: log}
}

// Run sweeps every interval until ctx is done. A non-positive interval
// disables sweeping.
func (sw *Sweeper) Run(ctx context.Context) {
	if sw.interval <= 0 {
		return
	}
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sw.SweepOnce(ctx); err != nil {
				sw.log.Warn("orphan comment sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce deletes orphaned comments and returns how many were removed.
func (sw *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sw.timeout)
	defer cancel()

	n, err := sw.comments.DeleteOrphanComments(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		sw.log.Info("removed orphan comments", zap.Int64("count", n))
	}
	return n, nil
}
