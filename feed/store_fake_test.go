package feed

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"socialfeed/errs"
	"socialfeed/models"
	"socialfeed/query"
)

// memStore is an in-memory Store with the same outcome contract as the
// MongoDB repositories.
type memStore struct {
	mu       sync.Mutex
	posts    map[primitive.ObjectID]*models.Post
	comments map[primitive.ObjectID]*models.Comment
	users    map[primitive.ObjectID]*models.User

	tx                bool
	err               error
	deleteCommentsErr error
	userLookups       int
}

func newMemStore() *memStore {
	return &memStore{
		posts:    map[primitive.ObjectID]*models.Post{},
		comments: map[primitive.ObjectID]*models.Comment{},
		users:    map[primitive.ObjectID]*models.User{},
	}
}

var _ Store = (*memStore)(nil)

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Images = append([]string(nil), p.Images...)
	c.Likes = append([]primitive.ObjectID{}, p.Likes...)
	c.Comments = append([]primitive.ObjectID{}, p.Comments...)
	return &c
}

func (m *memStore) InsertPost(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.posts[post.ID] = clonePost(post)
	return nil
}

func (m *memStore) FindPost(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, errs.Errorf(errs.NotFound, "Post not found.")
	}
	return clonePost(p), nil
}

func (m *memStore) find(match func(*models.Post) bool, page query.Page) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Post
	for _, p := range m.posts {
		if match(p) {
			out = append(out, *clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	skip := page.Skip()
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (m *memStore) FindPostsByOwners(_ context.Context, owners []primitive.ObjectID, page query.Page) ([]models.Post, error) {
	return m.find(func(p *models.Post) bool { return contains(owners, p.User) }, page)
}

func (m *memStore) FindPostsByIDs(_ context.Context, ids []primitive.ObjectID, page query.Page) ([]models.Post, error) {
	return m.find(func(p *models.Post) bool { return contains(ids, p.ID) }, page)
}

func (m *memStore) UpdateOwnedPost(_ context.Context, id, owner primitive.ObjectID, content string, images []string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.User != owner {
		return nil, errs.Errorf(errs.NotFound, "Post not found.")
	}
	p.Content = content
	p.Images = images
	return clonePost(p), nil
}

func (m *memStore) AddLike(_ context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, errs.Errorf(errs.NotFound, "Post not found.")
	}
	if contains(p.Likes, userID) {
		return nil, errs.Errorf(errs.Conflict, "You have already liked this post.")
	}
	p.Likes = append(p.Likes, userID)
	return clonePost(p), nil
}

func (m *memStore) RemoveLike(_ context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, errs.Errorf(errs.NotFound, "Post not found.")
	}
	kept := p.Likes[:0]
	for _, id := range p.Likes {
		if id != userID {
			kept = append(kept, id)
		}
	}
	p.Likes = kept
	return clonePost(p), nil
}

func (m *memStore) DeleteOwnedPost(_ context.Context, id, owner primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.User != owner {
		return nil, errs.Errorf(errs.NotFound, "Post not found.")
	}
	delete(m.posts, id)
	return p, nil
}

func (m *memStore) SamplePosts(_ context.Context, exclude []primitive.ObjectID, n int) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Post
	for _, p := range m.posts {
		if !contains(exclude, p.User) {
			out = append(out, *clonePost(p))
		}
	}
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *memStore) FindComments(_ context.Context, ids []primitive.ObjectID) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Comment
	for _, id := range ids {
		if c, ok := m.comments[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) DeleteComments(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteCommentsErr != nil {
		return 0, m.deleteCommentsErr
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.comments[id]; ok {
			delete(m.comments, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteOrphanComments(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.comments {
		if _, ok := m.posts[c.PostID]; !ok {
			delete(m.comments, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) FindUsers(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userLookups++
	var out []models.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memStore) AddSaved(_ context.Context, userID, postID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return errs.Errorf(errs.NotFound, "User not found.")
	}
	if !contains(u.Saved, postID) {
		u.Saved = append(u.Saved, postID)
	}
	return nil
}

func (m *memStore) RemoveSaved(_ context.Context, userID, postID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return errs.Errorf(errs.NotFound, "User not found.")
	}
	kept := u.Saved[:0]
	for _, id := range u.Saved {
		if id != postID {
			kept = append(kept, id)
		}
	}
	u.Saved = kept
	return nil
}

// WithTx restores the previous post and comment maps when fn fails in
// transactional mode.
func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.tx {
		return fn(ctx)
	}
	m.mu.Lock()
	posts := make(map[primitive.ObjectID]*models.Post, len(m.posts))
	for k, v := range m.posts {
		posts[k] = v
	}
	comments := make(map[primitive.ObjectID]*models.Comment, len(m.comments))
	for k, v := range m.comments {
		comments[k] = v
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.posts, m.comments = posts, comments
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) Transactional() bool { return m.tx }
