package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type LikeKind string

const (
	LikeComment LikeKind = "comment"
	LikeVideo   LikeKind = "video"
	LikeTweet   LikeKind = "tweet"
)

var ErrInvalidLikeTarget = errors.New("like must reference exactly one of comment, video or tweet")

// LikeTarget is the thing being liked. The zero value is invalid; build one
// with NewLikeTarget.
type LikeTarget struct {
	kind LikeKind
	id   bson.ObjectID
}

func NewLikeTarget(kind LikeKind, id bson.ObjectID) (LikeTarget, error) {
	switch kind {
	case LikeComment, LikeVideo, LikeTweet:
	default:
		return LikeTarget{}, ErrInvalidLikeTarget
	}
	if id.IsZero() {
		return LikeTarget{}, ErrInvalidLikeTarget
	}
	return LikeTarget{kind: kind, id: id}, nil
}

// Field is the like document field holding ids of this kind.
func (k LikeKind) Field() string { return string(k) }

func (t LikeTarget) Kind() LikeKind    { return t.kind }
func (t LikeTarget) ID() bson.ObjectID { return t.id }

// Field is the document field holding the target id.
func (t LikeTarget) Field() string { return t.kind.Field() }

func (t LikeTarget) IsValid() bool { return t.kind != "" && !t.id.IsZero() }

// Like records "LikeBy liked target". Exactly one of Comment, Video, Tweet is
// set; construct it with NewLike.
type Like struct {
	ID        bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Comment   *bson.ObjectID `bson:"comment,omitempty" json:"comment,omitempty"`
	Video     *bson.ObjectID `bson:"video,omitempty" json:"video,omitempty"`
	Tweet     *bson.ObjectID `bson:"tweet,omitempty" json:"tweet,omitempty"`
	LikeBy    bson.ObjectID  `bson:"likeBy" json:"likeBy"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}

func NewLike(target LikeTarget, by bson.ObjectID, now time.Time) (Like, error) {
	if !target.IsValid() || by.IsZero() {
		return Like{}, ErrInvalidLikeTarget
	}
	id := target.id
	like := Like{ID: bson.NewObjectID(), LikeBy: by, CreatedAt: now}
	switch target.kind {
	case LikeComment:
		like.Comment = &id
	case LikeVideo:
		like.Video = &id
	case LikeTweet:
		like.Tweet = &id
	}
	return like, nil
}

// Target recovers the variant from a decoded document.
func (l Like) Target() (LikeTarget, error) {
	var set []LikeTarget
	if l.Comment != nil {
		set = append(set, LikeTarget{kind: LikeComment, id: *l.Comment})
	}
	if l.Video != nil {
		set = append(set, LikeTarget{kind: LikeVideo, id: *l.Video})
	}
	if l.Tweet != nil {
		set = append(set, LikeTarget{kind: LikeTweet, id: *l.Tweet})
	}
	if len(set) != 1 || set[0].id.IsZero() {
		return LikeTarget{}, ErrInvalidLikeTarget
	}
	return set[0], nil
}
