package feed

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"socialfeed/models"
)

// Resolver populates post references with user and comment projections.
// It loads every referenced user and comment in one query each.
type Resolver struct {
	comments CommentStore
	users    UserStore
}

func NewResolver(comments CommentStore, users UserStore) *Resolver {
	return &Resolver{comments: comments, users: users}
}

// Resolve builds views for posts in the same order. Missing authors become
// nil; missing likers and comments are left out.
func (r *Resolver) Resolve(ctx context.Context, posts []models.Post) ([]models.PostView, error) {
	commentIDs := newIDSet()
	for _, p := range posts {
		commentIDs.add(p.Comments...)
	}

	comments := map[primitive.ObjectID]*models.Comment{}
	if commentIDs.size() > 0 {
		found, err := r.comments.FindComments(ctx, commentIDs.ids)
		if err != nil {
			return nil, err
		}
		for i := range found {
			comments[found[i].ID] = &found[i]
		}
	}

	userIDs := newIDSet()
	for _, p := range posts {
		userIDs.add(p.User)
		userIDs.add(p.Likes...)
	}
	for _, id := range commentIDs.ids {
		if c, ok := comments[id]; ok {
			userIDs.add(c.User)
			userIDs.add(c.Likes...)
		}
	}

	users := map[primitive.ObjectID]*models.User{}
	if userIDs.size() > 0 {
		found, err := r.users.FindUsers(ctx, userIDs.ids)
		if err != nil {
			return nil, err
		}
		for i := range found {
			users[found[i].ID] = &found[i]
		}
	}

	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, buildView(p, users, comments))
	}
	return views, nil
}

// ResolveOne resolves a single post.
func (r *Resolver) ResolveOne(ctx context.Context, post *models.Post) (*models.PostView, error) {
	views, err := r.Resolve(ctx, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func buildView(p models.Post, users map[primitive.ObjectID]*models.User, comments map[primitive.ObjectID]*models.Comment) models.PostView {
	v := models.PostView{
		ID:        p.ID,
		Content:   p.Content,
		Images:    p.Images,
		Likes:     lightAuthors(p.Likes, users),
		Comments:  make([]models.CommentView, 0, len(p.Comments)),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	if u, ok := users[p.User]; ok {
		a := models.AuthorOf(u, true)
		v.User = &a
	}
	for _, id := range p.Comments {
		c, ok := comments[id]
		if !ok {
			continue
		}
		cv := models.CommentView{
			ID:         c.ID,
			PostID:     c.PostID,
			PostUserID: c.PostUserID,
			Content:    c.Content,
			Likes:      lightAuthors(c.Likes, users),
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
		}
		if u, ok := users[c.User]; ok {
			a := models.AuthorOf(u, false)
			cv.User = &a
		}
		v.Comments = append(v.Comments, cv)
	}
	return v
}

func lightAuthors(ids []primitive.ObjectID, users map[primitive.ObjectID]*models.User) []models.Author {
	out := make([]models.Author, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, models.AuthorOf(u, false))
		}
	}
	return out
}

// idSet keeps first-seen order so $in queries are deterministic.
type idSet struct {
	seen map[primitive.ObjectID]struct{}
	ids  []primitive.ObjectID
}

func newIDSet() *idSet {
	return &idSet{seen: map[primitive.ObjectID]struct{}{}}
}

func (s *idSet) add(ids ...primitive.ObjectID) {
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
}

func (s *idSet) size() int { return len(s.ids) }
