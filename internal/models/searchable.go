package models

// Searchable marks an entity type as mirrored into the full-text index.
// The relational store stays the source of truth; the index holds only
// the projection returned by SearchFields, keyed by SearchID under the
// collection named by SearchIndex.
type Searchable interface {
	SearchIndex() string
	SearchID() uint
	SearchFields() map[string]interface{}
}
