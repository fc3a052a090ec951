package queries

import (
	"strings"

	"github.com/princinho/videotube/apierror"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

var videoSortFields = map[string]bool{
	"createdAt": true,
	"updatedAt": true,
	"title":     true,
	"duration":  true,
	"views":     true,
}

type Sort struct {
	Field     string
	Direction SortDirection
}

// ParseSort validates sortBy/sortType for video listings. Empty values default
// to createdAt ascending.
func ParseSort(sortBy, sortType string) (Sort, error) {
	s := Sort{Field: "createdAt", Direction: SortAsc}

	if v := strings.TrimSpace(sortBy); v != "" {
		if !videoSortFields[v] {
			return Sort{}, apierror.ValidationError("unsupported sortBy value", "sortBy must be one of createdAt, updatedAt, title, duration, views")
		}
		s.Field = v
	}

	switch SortDirection(strings.ToLower(strings.TrimSpace(sortType))) {
	case "":
	case SortAsc:
		s.Direction = SortAsc
	case SortDesc:
		s.Direction = SortDesc
	default:
		return Sort{}, apierror.ValidationError("unsupported sortType value", "sortType must be asc or desc")
	}
	return s, nil
}

func (s Sort) order() int {
	if s.Direction == SortDesc {
		return -1
	}
	return 1
}

// stage sorts by the field with _id as tiebreaker so pages never overlap.
func (s Sort) stage() bson.D {
	keys := bson.D{{Key: s.Field, Value: s.order()}}
	if s.Field != "_id" {
		keys = append(keys, bson.E{Key: "_id", Value: s.order()})
	}
	return bson.D{{Key: "$sort", Value: keys}}
}
