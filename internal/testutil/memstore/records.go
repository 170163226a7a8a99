package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	recordstore "github.com/dalemusser/grouphub/internal/app/store/records"
	"github.com/dalemusser/grouphub/internal/app/system/paging"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Records mirrors recordstore.Store for one kind. Records are not part of
// transaction snapshots. List ignores cursors.
type Records struct {
	d    *DB
	kind models.RecordKind
}

func (d *DB) Records(kind models.RecordKind) *Records {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.records[kind] == nil {
		d.records[kind] = map[primitive.ObjectID]models.Record{}
	}
	return &Records{d: d, kind: kind}
}

func (s *Records) coll() map[primitive.ObjectID]models.Record { return s.d.records[s.kind] }

func (s *Records) Create(_ context.Context, r models.Record) (models.Record, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fail(string(s.kind) + ".create"); err != nil {
		return models.Record{}, err
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.TitleCI = text.Fold(r.Title)
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	s.coll()[r.ID] = r
	return r, nil
}

func (s *Records) GetScoped(_ context.Context, id, groupID primitive.ObjectID) (models.Record, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	r, ok := s.coll()[id]
	if !ok || r.GroupID != groupID {
		return models.Record{}, recordstore.ErrNotFound
	}
	return r, nil
}

func (s *Records) Update(_ context.Context, id, groupID primitive.ObjectID, u recordstore.Update) (models.Record, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	r, ok := s.coll()[id]
	if !ok || r.GroupID != groupID {
		return models.Record{}, recordstore.ErrNotFound
	}
	if u.Title != nil {
		r.Title = *u.Title
		r.TitleCI = text.Fold(*u.Title)
	}
	if u.Body != nil {
		r.Body = *u.Body
	}
	if u.Amount != nil {
		a := *u.Amount
		r.Amount = &a
	}
	if u.OccursAt != nil {
		t := u.OccursAt.UTC()
		r.OccursAt = &t
	}
	r.UpdatedAt = time.Now().UTC()
	s.coll()[id] = r
	return r, nil
}

func (s *Records) Delete(_ context.Context, id, groupID primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	r, ok := s.coll()[id]
	if !ok || r.GroupID != groupID {
		return recordstore.ErrNotFound
	}
	delete(s.coll(), id)
	return nil
}

func (s *Records) List(_ context.Context, groupID primitive.ObjectID, p paging.Params) (paging.Page[models.Record], error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	prefix := text.Fold(p.Search)
	rows := []models.Record{}
	for _, r := range s.coll() {
		if r.GroupID == groupID && strings.HasPrefix(r.TitleCI, prefix) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TitleCI < rows[j].TitleCI })
	limit := p.Limit
	if limit <= 0 {
		limit = paging.PageSize
	}
	page := paging.Page[models.Record]{}
	if len(rows) > limit {
		rows = rows[:limit]
		page.HasNext = true
	}
	page.Items = rows
	return page, nil
}
