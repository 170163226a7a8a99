// Package memstore provides in-memory repositories for service tests.
//
// All repositories share one DB. Tx().Run serializes transactions and
// restores a snapshot of every collection when fn fails, which is enough
// to assert all-or-nothing behaviour without a replica set.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/credentials"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB holds every collection.
type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users    map[primitive.ObjectID]models.User
	groups   map[primitive.ObjectID]models.Group
	otps     map[primitive.ObjectID]verification
	payments map[primitive.ObjectID]models.Payment
	records  map[models.RecordKind]map[primitive.ObjectID]models.Record

	failures map[string][]error
	codes    map[primitive.ObjectID]string

	Hasher *credentials.Hasher
	Expiry time.Duration
}

type verification struct {
	email     string
	codeHash  string
	expiresAt time.Time
}

// New returns an empty DB with a cheap hasher.
func New() *DB {
	return &DB{
		users:    map[primitive.ObjectID]models.User{},
		groups:   map[primitive.ObjectID]models.Group{},
		otps:     map[primitive.ObjectID]verification{},
		payments: map[primitive.ObjectID]models.Payment{},
		records:  map[models.RecordKind]map[primitive.ObjectID]models.Record{},
		failures: map[string][]error{},
		codes:    map[primitive.ObjectID]string{},
		Hasher:   credentials.NewHasher(4),
		Expiry:   10 * time.Minute,
	}
}

// FailOn queues err for the next call of op. Calling it n times fails the
// next n calls. Op names are "<collection>.<method>", e.g. "otps.create".
func (d *DB) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = append(d.failures[op], err)
}

// fail must be called with mu held.
func (d *DB) fail(op string) error {
	q := d.failures[op]
	if len(q) == 0 {
		return nil
	}
	d.failures[op] = q[1:]
	return q[0]
}

func (d *DB) Users() *Users       { return &Users{d} }
func (d *DB) Groups() *Groups     { return &Groups{d} }
func (d *DB) OTPs() *OTPs         { return &OTPs{d} }
func (d *DB) Payments() *Payments { return &Payments{d} }
func (d *DB) Tx() *Runner         { return &Runner{d} }

// Runner is an in-memory transaction runner.
type Runner struct{ d *DB }

type snapshot struct {
	users    map[primitive.ObjectID]models.User
	groups   map[primitive.ObjectID]models.Group
	otps     map[primitive.ObjectID]verification
	payments map[primitive.ObjectID]models.Payment
}

func (d *DB) snapshot() snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := snapshot{
		users:    make(map[primitive.ObjectID]models.User, len(d.users)),
		groups:   make(map[primitive.ObjectID]models.Group, len(d.groups)),
		otps:     make(map[primitive.ObjectID]verification, len(d.otps)),
		payments: make(map[primitive.ObjectID]models.Payment, len(d.payments)),
	}
	for k, v := range d.users {
		s.users[k] = cloneUser(v)
	}
	for k, v := range d.groups {
		s.groups[k] = cloneGroup(v)
	}
	for k, v := range d.otps {
		s.otps[k] = v
	}
	for k, v := range d.payments {
		s.payments[k] = clonePayment(v)
	}
	return s
}

func (d *DB) restore(s snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users, d.groups, d.otps, d.payments = s.users, s.groups, s.otps, s.payments
}

// Run executes fn atomically with respect to other Run calls.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	r.d.txMu.Lock()
	defer r.d.txMu.Unlock()
	snap := r.d.snapshot()
	if err := fn(ctx); err != nil {
		r.d.restore(snap)
		return err
	}
	return nil
}

// Counts reports collection sizes for assertions.
func (d *DB) Counts() (users, groups, otps, payments int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users), len(d.groups), len(d.otps), len(d.payments)
}

func cloneUser(u models.User) models.User {
	out := u
	out.Groups = make([]models.UserGroup, len(u.Groups))
	for i, g := range u.Groups {
		g.Permissions = append([]models.Permission(nil), g.Permissions...)
		out.Groups[i] = g
	}
	if u.CurrentGroup != nil {
		id := *u.CurrentGroup
		out.CurrentGroup = &id
	}
	return out
}

func cloneGroup(g models.Group) models.Group {
	out := g
	out.Members = make([]models.GroupMember, len(g.Members))
	for i, m := range g.Members {
		m.Permissions = append([]models.Permission(nil), m.Permissions...)
		out.Members[i] = m
	}
	return out
}

func clonePayment(p models.Payment) models.Payment {
	out := p
	out.Members = append([]models.LedgerEntry{}, p.Members...)
	if p.DueDate != nil {
		t := *p.DueDate
		out.DueDate = &t
	}
	return out
}
