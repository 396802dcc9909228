package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	User       primitive.ObjectID   `bson:"user" json:"user"`
	PostID     primitive.ObjectID   `bson:"postId" json:"postId"`
	PostUserID primitive.ObjectID   `bson:"postUserId,omitempty" json:"postUserId,omitempty"`
	Likes      []primitive.ObjectID `bson:"likes" json:"likes"`
	Content    string               `bson:"content" json:"content"`
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// CommentView is a comment with its author and likers resolved one level deep.
type CommentView struct {
	ID         primitive.ObjectID `json:"_id"`
	User       *Author            `json:"user"`
	PostID     primitive.ObjectID `json:"postId"`
	PostUserID primitive.ObjectID `json:"postUserId,omitempty"`
	Likes      []Author           `json:"likes"`
	Content    string             `json:"content"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}
