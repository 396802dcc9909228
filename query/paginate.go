// Package query composes filters with pagination into executable find options.
package query

import (
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPage  = 1
	DefaultLimit = 9
)

// Page is a 1-based page number and a page size.
type Page struct {
	Page  int
	Limit int
}

// Skip is the number of matching records before this page.
func (p Page) Skip() int {
	return (p.Page - 1) * p.Limit
}

// Clamp caps the page size at max. A non-positive max leaves p unchanged.
func (p Page) Clamp(max int) Page {
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	return p
}

// ParsePage reads page and limit query values. Anything that is not a
// positive integer falls back to the defaults.
func ParsePage(page, limit string) Page {
	return Page{
		Page:  positiveOr(page, DefaultPage),
		Limit: positiveOr(limit, DefaultLimit),
	}
}

// ParseCount parses a positive count such as a discovery sample size.
func ParseCount(raw string, def int) int {
	return positiveOr(raw, def)
}

func positiveOr(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// NewestFirst orders by creation time descending with _id as tie-breaker so
// repeated reads of an unchanged collection return the same order.
var NewestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// Paginate returns filter unchanged along with options that skip to page p,
// sort newest first and return at most p.Limit documents.
func Paginate(filter bson.M, p Page) (bson.M, *options.FindOptions) {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	opts := options.Find().
		SetSort(NewestFirst).
		SetSkip(int64(p.Skip())).
		SetLimit(int64(p.Limit))
	return filter, opts
}

// OwnerIn matches documents whose owner is one of ids.
func OwnerIn(ids []primitive.ObjectID) bson.M {
	return bson.M{"user": bson.M{"$in": nonNil(ids)}}
}

// OwnerNotIn matches documents whose owner is none of ids.
func OwnerNotIn(ids []primitive.ObjectID) bson.M {
	return bson.M{"user": bson.M{"$nin": nonNil(ids)}}
}

// Owner matches documents owned by exactly id.
func Owner(id primitive.ObjectID) bson.M {
	return bson.M{"user": id}
}

// IDIn matches documents whose _id is one of ids.
func IDIn(ids []primitive.ObjectID) bson.M {
	return bson.M{"_id": bson.M{"$in": nonNil(ids)}}
}

// nonNil keeps $in/$nin operands encoded as arrays; a nil slice encodes as null.
func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
