// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows in a page. MaxPageSize caps ?limit=.
const (
	PageSize    = 50
	MaxPageSize = 100
)

// Params are the keyset paging inputs of a list request.
type Params struct {
	Before string
	After  string
	Limit  int
	Search string
}

// ParseParams reads ?before=, ?after=, ?limit= and ?q= from r.
func ParseParams(r *http.Request) Params {
	p := Params{
		Before: query.Get(r, "before"),
		After:  query.Get(r, "after"),
		Limit:  PageSize,
		Search: query.Search(r, "q"),
	}
	if s := query.Get(r, "limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			p.Limit = min(n, MaxPageSize)
		}
	}
	return p
}

// Result holds the page indicators computed by TrimPage.
type Result struct {
	HasPrev bool
	HasNext bool
}

// TrimPage trims rows fetched with limit+1 and reports neighbours.
//
// Going backwards (before != "") the extra row is the first one; otherwise it
// is the last one.
func TrimPage[T any](rows *[]T, before, after string, limit int) Result {
	var res Result
	n := len(*rows)
	if before != "" {
		if n > limit {
			*rows = (*rows)[1:]
			res.HasPrev = true
		}
		res.HasNext = true
		return res
	}
	if n > limit {
		*rows = (*rows)[:limit]
		res.HasNext = true
	}
	res.HasPrev = after != ""
	return res
}

// Direction indicates the pagination direction.
type Direction int

const (
	Forward  Direction = iota // ascending, "gt" cursor
	Backward                  // descending, "lt" cursor
)

// KeysetConfig is the resolved direction and cursor for a query.
type KeysetConfig struct {
	Direction Direction
	SortOrder int
	Cursor    *wafflemongo.Cursor
}

// ConfigureKeyset resolves direction and cursor. before wins over after.
func ConfigureKeyset(before, after string) KeysetConfig {
	cfg := KeysetConfig{Direction: Forward, SortOrder: 1}
	raw := after
	if before != "" {
		cfg.Direction = Backward
		cfg.SortOrder = -1
		raw = before
	}
	if raw != "" {
		if c, ok := wafflemongo.DecodeCursor(raw); ok {
			cfg.Cursor = &c
		}
	}
	return cfg
}

// ApplyToFind sets sort and a limit+1 look-ahead on find.
func (cfg KeysetConfig) ApplyToFind(find *options.FindOptions, sortField string, limit int) {
	find.SetSort(bson.D{
		{Key: sortField, Value: cfg.SortOrder},
		{Key: "_id", Value: cfg.SortOrder},
	}).SetLimit(int64(limit + 1))
}

// KeysetWindow returns the cursor filter, or nil on the first page.
func (cfg KeysetConfig) KeysetWindow(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	dir := "gt"
	if cfg.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, cfg.Cursor.CI, cfg.Cursor.ID)
}

// Reverse reverses rows in place; used after a backward fetch.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// BuildCursors encodes cursors for the first and last rows.
func BuildCursors[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) (prev, next string) {
	if len(rows) == 0 {
		return "", ""
	}
	first, last := rows[0], rows[len(rows)-1]
	return wafflemongo.EncodeCursor(keyFn(first), idFn(first)), wafflemongo.EncodeCursor(keyFn(last), idFn(last))
}

// Page is the JSON envelope for list responses.
type Page[T any] struct {
	Items      []T    `json:"items"`
	HasPrev    bool   `json:"has_prev"`
	HasNext    bool   `json:"has_next"`
	PrevCursor string `json:"prev_cursor,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}
