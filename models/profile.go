package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Author is the public projection of a user embedded in feed payloads.
// Followers is only filled for the primary author of a post.
type Author struct {
	ID        primitive.ObjectID   `json:"_id"`
	Avatar    string               `json:"avatar"`
	Username  string               `json:"username"`
	Fullname  string               `json:"fullname"`
	Followers []primitive.ObjectID `json:"followers,omitempty"`
}

// AuthorOf projects u, including the follower set when withFollowers is set.
func AuthorOf(u *User, withFollowers bool) Author {
	a := Author{
		ID:       u.ID,
		Avatar:   u.Avatar,
		Username: u.Username,
		Fullname: u.Fullname,
	}
	if withFollowers {
		a.Followers = u.Followers
		if a.Followers == nil {
			a.Followers = []primitive.ObjectID{}
		}
	}
	return a
}
