package paging

import (
	"context"
	"maps"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindPage runs one keyset-paged Find over coll, sorted by sortField then
// _id. base must already carry the tenant filter. A non-empty p.Search
// narrows sortField to that prefix.
func FindPage[T any](
	ctx context.Context,
	coll *mongo.Collection,
	base bson.M,
	p Params,
	sortField string,
	keyFn func(T) string,
	idFn func(T) primitive.ObjectID,
) (Page[T], error) {
	if p.Limit <= 0 {
		p.Limit = PageSize
	}

	f := maps.Clone(base)
	var and []bson.M
	if lo, hi := text.PrefixRange(p.Search); lo != "" {
		and = append(and, bson.M{sortField: bson.M{"$gte": lo, "$lt": hi}})
	}

	cfg := ConfigureKeyset(p.Before, p.After)
	if ks := cfg.KeysetWindow(sortField); ks != nil {
		and = append(and, ks)
	}
	if len(and) > 0 {
		f["$and"] = and
	}

	find := options.Find()
	cfg.ApplyToFind(find, sortField, p.Limit)

	cur, err := coll.Find(ctx, f, find)
	if err != nil {
		return Page[T]{}, err
	}
	defer cur.Close(ctx)

	rows := []T{}
	if err := cur.All(ctx, &rows); err != nil {
		return Page[T]{}, err
	}

	if cfg.Direction == Backward {
		Reverse(rows)
	}
	res := TrimPage(&rows, p.Before, p.After, p.Limit)
	prev, next := BuildCursors(rows, keyFn, idFn)
	return Page[T]{
		Items:      rows,
		HasPrev:    res.HasPrev,
		HasNext:    res.HasNext,
		PrevCursor: prev,
		NextCursor: next,
	}, nil
}
