package queries

import (
	"strconv"
	"strings"

	"github.com/princinho/videotube/apierror"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageRequest is a validated page/limit pair. Page is 1-based.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// ParsePageRequest reads raw query values. Empty values take the defaults,
// values that are not positive integers are rejected and limit is clamped to
// maxLimit.
func ParsePageRequest(pageStr, limitStr string, defaultLimit, maxLimit int) (PageRequest, error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit > 0 && defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	page, err := parsePositive("page", pageStr, DefaultPage)
	if err != nil {
		return PageRequest{}, err
	}
	limit, err := parsePositive("limit", limitStr, defaultLimit)
	if err != nil {
		return PageRequest{}, err
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return PageRequest{Page: page, Limit: limit}, nil
}

func parsePositive(name, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apierror.ValidationError(name + " must be a positive integer")
	}
	return n, nil
}

// Page is one page of results plus the counters clients page with.
type Page[T any] struct {
	Items     []T   `json:"items"`
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int64 {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}

func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:     items,
		Page:      req.Page,
		Limit:     req.Limit,
		Total:     total,
		TotalPage: TotalPages(total, req.Limit),
	}
}

// facetResult is the shape produced by paginate.
type facetResult[T any] struct {
	Items []T `bson:"items"`
	Total []struct {
		Count int64 `bson:"count"`
	} `bson:"total"`
}

func (f facetResult[T]) page(req PageRequest) Page[T] {
	var total int64
	if len(f.Total) > 0 {
		total = f.Total[0].Count
	}
	return NewPage(f.Items, total, req)
}

// paginate splits the sorted stream into the requested slice and the total
// count. itemStages run only on the slice, which keeps joins off the rows the
// page does not return.
func paginate(req PageRequest, itemStages ...bson.D) bson.D {
	items := bson.A{
		bson.D{{Key: "$skip", Value: req.Skip()}},
		bson.D{{Key: "$limit", Value: int64(req.Limit)}},
	}
	for _, s := range itemStages {
		items = append(items, s)
	}
	return bson.D{{Key: "$facet", Value: bson.D{
		{Key: "items", Value: items},
		{Key: "total", Value: bson.A{bson.D{{Key: "$count", Value: "count"}}}},
	}}}
}
