package queries

import (
	"regexp"

	"github.com/princinho/videotube/database"
	"github.com/princinho/videotube/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// OwnerProjection is the public profile joined onto videos and comments.
var OwnerProjection = bson.D{
	{Key: "username", Value: 1},
	{Key: "fullName", Value: 1},
	{Key: "email", Value: 1},
	{Key: "avatar", Value: 1},
}

// MinimalOwnerProjection is used inside watch history.
var MinimalOwnerProjection = bson.D{
	{Key: "username", Value: 1},
	{Key: "fullName", Value: 1},
	{Key: "avatar", Value: 1},
}

// matchNothing is a filter no document satisfies.
var matchNothing = bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{}}}}}

// OwnerLookup joins the user referenced by the owner field and replaces the
// id with the projected profile. A dangling owner leaves the field unset.
func OwnerLookup(projection bson.D) []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.UsersCollection},
			{Key: "localField", Value: "owner"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
			{Key: "pipeline", Value: bson.A{bson.D{{Key: "$project", Value: projection}}}},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "owner", Value: bson.D{{Key: "$first", Value: "$owner"}}},
		}}},
	}
}

// VideoListParams is a resolved video listing request.
type VideoListParams struct {
	// Query matches title or description, case-insensitively.
	Query string
	// OwnerID restricts to one owner. It is nil when no resolvable owner was
	// given.
	OwnerID *bson.ObjectID
	// ViewerID sees their own unpublished videos. Zero for anonymous callers.
	ViewerID bson.ObjectID
	Sort     Sort
	Page     PageRequest
}

func videoMatch(p VideoListParams) bson.D {
	var or bson.A
	if p.Query != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(p.Query), Options: "i"}
		or = append(or,
			bson.D{{Key: "title", Value: pattern}},
			bson.D{{Key: "description", Value: pattern}},
		)
	}
	if p.OwnerID != nil {
		or = append(or, bson.D{{Key: "owner", Value: *p.OwnerID}})
	}
	if len(or) == 0 {
		return matchNothing
	}

	visible := bson.D{{Key: "isPublished", Value: true}}
	if !p.ViewerID.IsZero() {
		visible = bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "isPublished", Value: true}},
			bson.D{{Key: "owner", Value: p.ViewerID}},
		}}}
	}

	return bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "$or", Value: or}},
		visible,
	}}}
}

func VideoListPipeline(p VideoListParams) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: videoMatch(p)}},
		p.Sort.stage(),
		paginate(p.Page, OwnerLookup(OwnerProjection)...),
	}
}

// CommentListPipeline lists a video's comments newest first.
func CommentListPipeline(videoID bson.ObjectID, page PageRequest) mongo.Pipeline {
	newestFirst := Sort{Field: "createdAt", Direction: SortDesc}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "video", Value: videoID}}}},
		newestFirst.stage(),
		paginate(page, OwnerLookup(OwnerProjection)...),
	}
}

// ChannelProfilePipeline loads the user named username with subscriber and
// subscription counts. isSubscribed reports whether viewerID follows the
// channel.
func ChannelProfilePipeline(username string, viewerID bson.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "username", Value: username}}}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.SubscriptionsCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "channel"},
			{Key: "as", Value: "subscribers"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.SubscriptionsCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "subscriber"},
			{Key: "as", Value: "subscribedTo"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "subscribersCount", Value: bson.D{{Key: "$size", Value: "$subscribers"}}},
			{Key: "subscribedCount", Value: bson.D{{Key: "$size", Value: "$subscribedTo"}}},
			{Key: "isSubscribed", Value: bson.D{{Key: "$in", Value: bson.A{viewerID, "$subscribers.subscriber"}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "username", Value: 1},
			{Key: "fullName", Value: 1},
			{Key: "email", Value: 1},
			{Key: "avatar", Value: 1},
			{Key: "coverImage", Value: 1},
			{Key: "subscribersCount", Value: 1},
			{Key: "subscribedCount", Value: 1},
			{Key: "isSubscribed", Value: 1},
		}}},
	}
}

// watchHistoryResult keeps the stored order next to the joined videos since
// $lookup does not preserve it.
type watchHistoryResult struct {
	HistoryIDs []bson.ObjectID         `bson:"historyIds"`
	Videos     []models.VideoWithOwner `bson:"videos"`
}

func WatchHistoryPipeline(userID bson.ObjectID) mongo.Pipeline {
	videoStages := bson.A{}
	for _, s := range OwnerLookup(MinimalOwnerProjection) {
		videoStages = append(videoStages, s)
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: userID}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "historyIds", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$watchHistory", bson.A{}}}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.VideosCollection},
			{Key: "localField", Value: "historyIds"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "videos"},
			{Key: "pipeline", Value: videoStages},
		}}},
	}
}

// UserPlaylistsPipeline lists a user's playlists, most recently updated first.
func UserPlaylistsPipeline(ownerID bson.ObjectID, page PageRequest) mongo.Pipeline {
	recent := Sort{Field: "updatedAt", Direction: SortDesc}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "owner", Value: ownerID}}}},
		recent.stage(),
		paginate(page, bson.D{{Key: "$project", Value: bson.D{
			{Key: "name", Value: 1},
			{Key: "description", Value: 1},
			{Key: "updatedAt", Value: 1},
			{Key: "totalVideos", Value: bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$videos", bson.A{}}}}}}},
		}}}),
	}
}

// LikedVideosPipeline runs on the likes collection and yields the videos
// userID liked, most recent like first. Likes of deleted videos are skipped.
func LikedVideosPipeline(userID bson.ObjectID, page PageRequest) mongo.Pipeline {
	recent := Sort{Field: "createdAt", Direction: SortDesc}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "likeBy", Value: userID},
			{Key: "video", Value: bson.D{{Key: "$exists", Value: true}}},
		}}},
		recent.stage(),
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.VideosCollection},
			{Key: "localField", Value: "video"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "video"},
		}}},
		{{Key: "$unwind", Value: "$video"}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$video"}}}},
		paginate(page, OwnerLookup(OwnerProjection)...),
	}
}

// OrderByIDs returns the items whose id appears in ids, in ids order. Ids with
// no matching item are skipped.
func OrderByIDs[T any](ids []bson.ObjectID, items []T, idOf func(T) bson.ObjectID) []T {
	byID := make(map[bson.ObjectID]T, len(items))
	for _, it := range items {
		byID[idOf(it)] = it
	}
	out := make([]T, 0, len(items))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
			delete(byID, id)
		}
	}
	return out
}
