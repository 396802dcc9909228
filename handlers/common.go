package handlers

import (
	"context"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"socialfeed/errs"
	"socialfeed/feed"
	"socialfeed/middleware"
	"socialfeed/models"
	"socialfeed/query"
)

// FeedService is the set of feed operations exposed over HTTP.
type FeedService interface {
	CreatePost(ctx context.Context, caller *models.User, content string, images []string) (*feed.CreatePostResponse, error)
	GetPosts(ctx context.Context, caller *models.User, page query.Page) (*feed.FeedResponse, error)
	UpdatePost(ctx context.Context, caller *models.User, postID primitive.ObjectID, content string, images []string) (*feed.CreatePostResponse, error)
	LikePost(ctx context.Context, caller *models.User, postID primitive.ObjectID) (*feed.PostResponse, error)
	UnlikePost(ctx context.Context, caller *models.User, postID primitive.ObjectID) (*feed.PostResponse, error)
	DeletePost(ctx context.Context, caller *models.User, postID primitive.ObjectID) (*feed.MessageResponse, error)
	GetUserPosts(ctx context.Context, userID primitive.ObjectID, page query.Page) (*feed.UserPostsResponse, error)
	GetPost(ctx context.Context, postID primitive.ObjectID) (*feed.SinglePostResponse, error)
	Discover(ctx context.Context, caller *models.User, n int) (*feed.DiscoverResponse, error)
	SavePost(ctx context.Context, caller *models.User, postID primitive.ObjectID) (*feed.MessageResponse, error)
	UnsavePost(ctx context.Context, caller *models.User, postID primitive.ObjectID) (*feed.MessageResponse, error)
	GetSavedPosts(ctx context.Context, caller *models.User, page query.Page) (*feed.SavedPostsResponse, error)
}

// SubscriptionSaver stores a user's web-push subscription.
type SubscriptionSaver interface {
	Save(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error
}

type Handler struct {
	feed           FeedService
	subs           SubscriptionSaver
	vapidPublicKey string
	log            *zap.Logger
}

func New(svc FeedService, subs SubscriptionSaver, vapidPublicKey string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{feed: svc, subs: subs, vapidPublicKey: vapidPublicKey, log: log}
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind errs.Kind) int {
	switch kind {
	case errs.BadRequest:
		return http.StatusBadRequest
	case errs.Unauthorized:
		return http.StatusUnauthorized
	case errs.Forbidden:
		return http.StatusForbidden
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Conflict:
		return http.StatusConflict
	case errs.TooManyRequests:
		return http.StatusTooManyRequests
	case errs.ServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := StatusOf(kind)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"msg": errs.Message(err), "kind": kind})
}

func (h *Handler) caller(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.Caller(c)
	if !ok {
		h.fail(c, errs.Errorf(errs.Unauthorized, "Invalid Authentication."))
	}
	return user, ok
}

func (h *Handler) objectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		h.fail(c, errs.Errorf(errs.BadRequest, "Invalid id."))
		return primitive.NilObjectID, false
	}
	return id, true
}

func page(c *gin.Context) query.Page {
	return query.ParsePage(c.Query("page"), c.Query("limit"))
}
