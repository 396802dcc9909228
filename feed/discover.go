package feed

import (
	"context"

	"socialfeed/models"
)

// Discover samples up to n posts from users outside the caller's graph.
// The caller and everyone they follow are excluded.
func (s *Service) Discover(ctx context.Context, caller *models.User, n int) (*DiscoverResponse, error) {
	if n < 1 {
		n = DefaultDiscover
	}
	if s.maxDiscover > 0 && n > s.maxDiscover {
		n = s.maxDiscover
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	posts, err := s.store.SamplePosts(ctx, caller.Audience(), n)
	if err != nil {
		return nil, s.fail("discover posts", err)
	}
	posts = nonNilPosts(posts)
	return &DiscoverResponse{Msg: "Success", Result: len(posts), Posts: posts}, nil
}
