package search

import (
	"context"
	"reflect"

	"gorm.io/gorm"

	"microblog_backend/internal/models"
)

// changeSetKey is the gorm settings key under which a transaction's
// pending change set travels. Statements executed outside a synced
// transaction carry no change set and are not tracked.
const changeSetKey = "search:changeset"

type pendingDoc struct {
	id     uint
	fields map[string]interface{}
}

// changeSet is the pre-commit snapshot of searchable writes in one
// transaction. Upserts are keyed by (collection, id), so a second update
// to the same entity before commit overwrites the first and the index
// receives a single write reflecting the final pending state.
type changeSet struct {
	upserts map[string]map[uint]pendingDoc
	deletes map[string]map[uint]struct{}
}

func newChangeSet() *changeSet {
	return &changeSet{
		upserts: make(map[string]map[uint]pendingDoc),
		deletes: make(map[string]map[uint]struct{}),
	}
}

func (cs *changeSet) recordUpsert(index string, id uint, fields map[string]interface{}) {
	if id == 0 {
		return
	}
	if cs.upserts[index] == nil {
		cs.upserts[index] = make(map[uint]pendingDoc)
	}
	cs.upserts[index][id] = pendingDoc{id: id, fields: fields}
	delete(cs.deletes[index], id)
}

func (cs *changeSet) recordDelete(index string, id uint) {
	if id == 0 {
		return
	}
	if cs.deletes[index] == nil {
		cs.deletes[index] = make(map[uint]struct{})
	}
	cs.deletes[index][id] = struct{}{}
	delete(cs.upserts[index], id)
}

func (cs *changeSet) empty() bool {
	for _, docs := range cs.upserts {
		if len(docs) > 0 {
			return false
		}
	}
	for _, ids := range cs.deletes {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

// Syncer keeps the external index consistent with the relational store.
// Writes to searchable entities must go through Transaction: gorm
// callbacks capture the pending changes while statements execute, and the
// captured diff is replayed into the Indexer strictly after the commit
// succeeds. A rollback discards the snapshot, so the index never exposes
// uncommitted data.
type Syncer struct {
	index Indexer
}

func NewSyncer(index Indexer) *Syncer {
	return &Syncer{index: index}
}

// Indexer exposes the adapter for read-side queries.
func (s *Syncer) Indexer() Indexer {
	return s.index
}

// RegisterCallbacks installs the change-tracking hooks on the gorm root.
// Must be called once at startup, before any synced transaction runs.
func (s *Syncer) RegisterCallbacks(db *gorm.DB) error {
	if err := db.Callback().Create().After("gorm:create").Register("search:track_create", trackWrite); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("search:track_update", trackWrite); err != nil {
		return err
	}
	return db.Callback().Delete().Before("gorm:delete").Register("search:track_delete", trackDelete)
}

// Transaction runs fn inside a database transaction and, once the commit
// has succeeded, pushes the captured diff to the index. Index errors
// surface to the caller but the relational write already stands; the
// store is the source of truth and the index is best-effort by design.
func (s *Syncer) Transaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	cs := newChangeSet()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx.Set(changeSetKey, cs))
	})
	if err != nil {
		// Rolled back: the snapshot must not reach the index.
		return err
	}

	return s.flush(ctx, cs)
}

func (s *Syncer) flush(ctx context.Context, cs *changeSet) error {
	if cs.empty() {
		return nil
	}
	for index, docs := range cs.upserts {
		for _, doc := range docs {
			if err := s.index.Index(ctx, index, doc.id, doc.fields); err != nil {
				return err
			}
		}
	}
	for index, ids := range cs.deletes {
		for id := range ids {
			if err := s.index.Delete(ctx, index, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// changeSetFrom returns the transaction's change set, or nil when the
// statement runs outside a synced transaction.
func changeSetFrom(db *gorm.DB) *changeSet {
	v, ok := db.Get(changeSetKey)
	if !ok {
		return nil
	}
	cs, _ := v.(*changeSet)
	return cs
}

func trackWrite(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	cs := changeSetFrom(db)
	if cs == nil {
		return
	}
	eachSearchable(db.Statement.ReflectValue, func(e models.Searchable) {
		cs.recordUpsert(e.SearchIndex(), e.SearchID(), e.SearchFields())
	})
}

func trackDelete(db *gorm.DB) {
	cs := changeSetFrom(db)
	if cs == nil {
		return
	}
	eachSearchable(db.Statement.ReflectValue, func(e models.Searchable) {
		cs.recordDelete(e.SearchIndex(), e.SearchID())
	})
}

// eachSearchable walks the statement's destination value, which gorm
// hands over as a struct or a slice of structs.
func eachSearchable(rv reflect.Value, fn func(models.Searchable)) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			eachSearchable(rv.Index(i), fn)
		}
	case reflect.Struct:
		if !rv.CanAddr() {
			return
		}
		if e, ok := rv.Addr().Interface().(models.Searchable); ok {
			fn(e)
		}
	case reflect.Ptr:
		if !rv.IsNil() {
			if e, ok := rv.Interface().(models.Searchable); ok {
				fn(e)
			}
		}
	}
}
