// Package feed implements post creation, populated feeds, engagement,
// discovery and cascade deletion on top of a Store.
package feed

import (
	"context"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"socialfeed/errs"
	"socialfeed/models"
	"socialfeed/query"
)

const (
	DefaultDiscover = 8

	msgNoImages     = "Please add photo(s)."
	msgPostNotFound = "Post not found."
)

type Options struct {
	Cache        Cache
	Notifier     Notifier
	Logger       *zap.Logger
	MaxPageLimit int
	MaxDiscover  int
	// Timeout bounds every operation's storage calls.
	Timeout time.Duration
}

// Service is the entry point for every feed operation. Callers are
// authenticated users loaded by the transport layer.
type Service struct {
	store    Store
	resolver *Resolver
	cache    Cache
	notify   Notifier
	log      *zap.Logger
	policy   *bluemonday.Policy

	maxLimit    int
	maxDiscover int
	timeout     time.Duration
	now         func() time.Time
}

func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:       store,
		resolver:    NewResolver(store, store),
		cache:       opts.Cache,
		notify:      opts.Notifier,
		log:         opts.Logger,
		policy:      bluemonday.UGCPolicy(),
		maxLimit:    opts.MaxPageLimit,
		maxDiscover: opts.MaxDiscover,
		timeout:     opts.Timeout,
		now:         time.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.cache == nil {
		s.cache = noCache{}
	}
	if s.notify == nil {
		s.notify = Notifiers(nil)
	}
	if s.timeout <= 0 {
		s.timeout = 10 * time.Second
	}
	return s
}

type CreatePostResponse struct {
	Msg     string           `json:"msg"`
	NewPost *models.PostView `json:"newPost"`
}

type FeedResponse struct {
	Msg    string            `json:"msg"`
	Result int               `json:"result"`
	Posts  []models.PostView `json:"posts"`
}

type PostResponse struct {
	Msg  string       `json:"msg"`
	Post *models.Post `json:"post"`
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

type UserPostsResponse struct {
	Posts  []models.Post `json:"posts"`
	Result int           `json:"result"`
}

type SinglePostResponse struct {
	Post *models.PostView `json:"post"`
}

type DiscoverResponse struct {
	Msg    string        `json:"msg"`
	Result int           `json:"result"`
	Posts  []models.Post `json:"posts"`
}

type SavedPostsResponse struct {
	SavePosts []models.Post `json:"savePosts"`
	Result    int           `json:"result"`
}

// CreatePost stores a new post owned by caller. At least one image is required.
// Not idempotent: a retry after a timeout may create a second post.
func (s *Service) CreatePost(ctx context.Context, caller *models.User, content string, images []string) (*CreatePostResponse, error) {
	if len(images) == 0 {
		return nil, errs.Errorf(errs.BadRequest, msgNoImages)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()
	post := &models.Post{
		ID:        primitive.NewObjectID(),
		User:      caller.ID,
		Content:   s.policy.Sanitize(content),
		Images:    images,
		Likes:     []primitive.ObjectID{},
		Comments:  []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertPost(ctx, post); err != nil {
		return nil, s.fail("create post", err)
	}

	author := models.AuthorOf(caller, true)
	view := &models.PostView{
		ID:        post.ID,
		User:      &author,
		Content:   post.Content,
		Images:    post.Images,
		Likes:     []models.Author{},
		Comments:  []models.CommentView{},
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}

	s.notify.Notify(Event{
		Type:       EventPostCreated,
		PostID:     post.ID,
		Actor:      models.AuthorOf(caller, false),
		Recipients: caller.Followers,
	})

	return &CreatePostResponse{Msg: "Post created successfully.", NewPost: view}, nil
}

// GetPosts is the home feed: posts by the caller and everyone they follow,
// newest first, populated.
func (s *Service) GetPosts(ctx context.Context, caller *models.User, page query.Page) (*FeedResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	posts, err := s.store.FindPostsByOwners(ctx, caller.Audience(), page.Clamp(s.maxLimit))
	if err != nil {
		return nil, s.fail("get posts", err)
	}
	views, err := s.resolver.Resolve(ctx, posts)
	if err != nil {
		return nil, s.fail("resolve posts", err)
	}
	return &FeedResponse{Msg: "Success", Result: len(views), Posts: views}, nil
}

// UpdatePost replaces content and images of a post owned by caller.
func (s *Service) UpdatePost(ctx context.Context, caller *models.User, postID primitive.ObjectID, content string, images []string) (*CreatePostResponse, error) {
	if len(images) == 0 {
		return nil, errs.Errorf(errs.BadRequest, msgNoImages)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	post, err := s.store.UpdateOwnedPost(ctx, postID, caller.ID, s.policy.Sanitize(content), images)
	if err != nil {
		return nil, s.fail("update post", err)
	}
	s.cache.InvalidatePost(ctx, postID.Hex())

	view, err := s.resolver.ResolveOne(ctx, post)
	if err != nil {
		return nil, s.fail("resolve post", err)
	}
	return &CreatePostResponse{Msg: "Post updated successfully.", NewPost: view}, nil
}

// GetUserPosts lists one user's posts with raw references.
func (s *Service) GetUserPosts(ctx context.Context, userID primitive.ObjectID, page query.Page) (*UserPostsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	posts, err := s.store.FindPostsByOwners(ctx, []primitive.ObjectID{userID}, page.Clamp(s.maxLimit))
	if err != nil {
		return nil, s.fail("get user posts", err)
	}
	posts = nonNilPosts(posts)
	return &UserPostsResponse{Posts: posts, Result: len(posts)}, nil
}

// GetPost returns one populated post, from cache when available.
func (s *Service) GetPost(ctx context.Context, postID primitive.ObjectID) (*SinglePostResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if view, ok := s.cache.GetPost(ctx, postID.Hex()); ok {
		return &SinglePostResponse{Post: view}, nil
	}

	post, err := s.store.FindPost(ctx, postID)
	if err != nil {
		return nil, s.fail("get post", err)
	}
	view, err := s.resolver.ResolveOne(ctx, post)
	if err != nil {
		return nil, s.fail("resolve post", err)
	}
	s.cache.SetPost(ctx, view)
	return &SinglePostResponse{Post: view}, nil
}

// GetSavedPosts lists the caller's bookmarked posts with raw references.
func (s *Service) GetSavedPosts(ctx context.Context, caller *models.User, page query.Page) (*SavedPostsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	posts, err := s.store.FindPostsByIDs(ctx, caller.Saved, page.Clamp(s.maxLimit))
	if err != nil {
		return nil, s.fail("get saved posts", err)
	}
	posts = nonNilPosts(posts)
	return &SavedPostsResponse{SavePosts: posts, Result: len(posts)}, nil
}

// fail classifies err and logs anything that is not a caller mistake.
func (s *Service) fail(op string, err error) error {
	err = errs.FromStorage(err)
	switch errs.KindOf(err) {
	case errs.ServiceUnavailable:
		s.log.Warn("storage unavailable", zap.String("op", op), zap.Error(err))
	case errs.Internal:
		s.log.Error("feed operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func nonNilPosts(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	return posts
}

type noCache struct{}

func (noCache) GetPost(context.Context, string) (*models.PostView, bool) { return nil, false }
func (noCache) SetPost(context.Context, *models.PostView)                {}
func (noCache) InvalidatePost(context.Context, string)                   {}
