package feed

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"socialfeed/models"
	"socialfeed/query"
)

// PostStore reads and writes posts. Lookups that match nothing return an
// errs.NotFound error; AddLike returns errs.Conflict when the user already
// likes the post.
type PostStore interface {
	InsertPost(ctx context.Context, post *models.Post) error
	FindPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindPostsByOwners(ctx context.Context, owners []primitive.ObjectID, page query.Page) ([]models.Post, error)
	FindPostsByIDs(ctx context.Context, ids []primitive.ObjectID, page query.Page) ([]models.Post, error)
	UpdateOwnedPost(ctx context.Context, id, owner primitive.ObjectID, content string, images []string) (*models.Post, error)
	AddLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error)
	RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error)
	DeleteOwnedPost(ctx context.Context, id, owner primitive.ObjectID) (*models.Post, error)
	SamplePosts(ctx context.Context, excludeOwners []primitive.ObjectID, n int) ([]models.Post, error)
}

// CommentStore reads and removes comments.
type CommentStore interface {
	FindComments(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error)
	DeleteComments(ctx context.Context, ids []primitive.ObjectID) (int64, error)
	DeleteOrphanComments(ctx context.Context) (int64, error)
}

// UserStore reads user projections and edits the saved set.
type UserStore interface {
	FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	AddSaved(ctx context.Context, userID, postID primitive.ObjectID) error
	RemoveSaved(ctx context.Context, userID, postID primitive.ObjectID) error
}

// Store is everything the feed service needs from persistence.
type Store interface {
	PostStore
	CommentStore
	UserStore

	// WithTx runs fn in a multi-document transaction when the store supports
	// one, otherwise it runs fn directly. Transactional reports which.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Transactional() bool
}

// Cache holds resolved single-post views.
type Cache interface {
	GetPost(ctx context.Context, id string) (*models.PostView, bool)
	SetPost(ctx context.Context, view *models.PostView)
	InvalidatePost(ctx context.Context, id string)
}

const (
	EventPostCreated = "post_created"
	EventPostLiked   = "post_liked"
)

// Event is fired after a successful create or like.
type Event struct {
	Type       string               `json:"type"`
	PostID     primitive.ObjectID   `json:"postId"`
	Actor      models.Author        `json:"actor"`
	Recipients []primitive.ObjectID `json:"-"`
}

// Notifier receives events. Implementations must not block the caller.
type Notifier interface {
	Notify(ev Event)
}

// Notifiers fans an event out to every notifier in the list.
type Notifiers []Notifier

func (ns Notifiers) Notify(ev Event) {
	for _, n := range ns {
		n.Notify(ev)
	}
}
