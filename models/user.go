package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is the subset of the account document this service reads.
// Only Saved is ever written here.
type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username  string               `bson:"username" json:"username"`
	Fullname  string               `bson:"fullname" json:"fullname"`
	Avatar    string               `bson:"avatar" json:"avatar"`
	Followers []primitive.ObjectID `bson:"followers" json:"followers"`
	Following []primitive.ObjectID `bson:"following" json:"following"`
	Saved     []primitive.ObjectID `bson:"saved" json:"saved"`
}

// Audience returns the caller followed by everyone they follow.
func (u *User) Audience() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(u.Following)+1)
	ids = append(ids, u.ID)
	for _, id := range u.Following {
		if id != u.ID {
			ids = append(ids, id)
		}
	}
	return ids
}
