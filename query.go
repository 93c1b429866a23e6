package physis

import (
	"fmt"
	"sync"
)

// QueryKey is the constraint for query keys — they must be comparable
// for use as map keys.
type QueryKey interface {
	comparable
}

// Query represents a cached, dependency-tracked computation. K is the
// key type (input), V is the value type (output). Physis wires
// exactly one: AnalyzeKernel, so that re-analyzing an unchanged
// kernel is a cache hit and provably returns the byte-identical
// StencilRange (spec §8, "Attribute stability").
type Query[K QueryKey, V any] struct {
	Name    string
	Compute func(db *Database, key K) (V, error)
}

// queryID is a unique identifier for a cached query result, combining
// the query name with its key.
type queryID struct {
	queryName string
	key       any
}

// cachedValue holds a cached computation result along with metadata
// for invalidation.
type cachedValue struct {
	value    any
	err      error
	revision int
}

// Database is a revision-tracked, dependency-invalidating query
// cache, trimmed from the teacher's grammar-analysis database down to
// the one concern Physis needs: caching C3's per-kernel stencil
// analysis so a Session can be asked to re-analyze a kernel it has
// already seen without redoing the walk, and so rewriting a kernel
// body in place (e.g. C9's unconditional-get rewrite) can explicitly
// invalidate just that kernel's cached result.
type Database struct {
	mu sync.RWMutex

	revision int

	cache map[queryID]cachedValue
	deps  map[queryID][]queryID
	rdeps map[queryID][]queryID

	activeQuery *queryID

	sess *Session
}

// bindSession records the owning session, so a Query's Compute
// function can reach Session state (grid type table, config) through
// the Database it was handed. Called once from NewSession.
func (db *Database) bindSession(s *Session) { db.sess = s }

// Session returns the session this database belongs to.
func (db *Database) Session() *Session { return db.sess }

// NewDatabase creates an empty query database.
func NewDatabase() *Database {
	return &Database{
		cache: make(map[queryID]cachedValue),
		deps:  make(map[queryID][]queryID),
		rdeps: make(map[queryID][]queryID),
	}
}

// Revision returns the current database revision.
func (db *Database) Revision() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.revision
}

// Get executes a query, returning a cached result if available, or
// computing and caching a new one. It tracks dependencies between
// queries automatically (nested Get calls record the parent as a
// dependent, so invalidating an inner query invalidates its callers
// too).
func Get[K QueryKey, V any](db *Database, q *Query[K, V], key K) (V, error) {
	id := queryID{queryName: q.Name, key: key}

	db.mu.Lock()

	if db.activeQuery != nil {
		parent := *db.activeQuery
		db.deps[parent] = append(db.deps[parent], id)
		db.rdeps[id] = append(db.rdeps[id], parent)
	}

	if cached, ok := db.cache[id]; ok {
		db.mu.Unlock()
		if cached.err != nil {
			var zero V
			return zero, cached.err
		}
		return cached.value.(V), nil
	}

	prevActive := db.activeQuery
	db.activeQuery = &id
	db.deps[id] = nil
	db.mu.Unlock()

	value, err := q.Compute(db, key)

	db.mu.Lock()
	db.activeQuery = prevActive
	db.cache[id] = cachedValue{value: value, err: err, revision: db.revision}
	db.mu.Unlock()

	return value, err
}

// Invalidate removes a cached value and all its dependents, forcing
// recomputation on the next Get.
func Invalidate[K QueryKey, V any](db *Database, q *Query[K, V], key K) {
	id := queryID{queryName: q.Name, key: key}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.revision++
	db.invalidateWithDependents(id)
}

func (db *Database) invalidateDependents(id queryID) {
	for _, dep := range db.rdeps[id] {
		delete(db.cache, dep)
		db.invalidateDependents(dep)
	}
}

func (db *Database) invalidateWithDependents(id queryID) {
	delete(db.cache, id)
	db.invalidateDependents(id)
}

// InvalidateAll clears every cached value, forcing full recomputation.
func (db *Database) InvalidateAll() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.revision++
	db.cache = make(map[queryID]cachedValue)
	db.deps = make(map[queryID][]queryID)
	db.rdeps = make(map[queryID][]queryID)
}

// DatabaseStats reports cache size, mostly for tests.
type DatabaseStats struct {
	Revision    int
	CachedCount int
}

func (db *Database) Stats() DatabaseStats {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return DatabaseStats{Revision: db.revision, CachedCount: len(db.cache)}
}

func (s DatabaseStats) String() string {
	return fmt.Sprintf("Database{revision=%d, cached=%d}", s.Revision, s.CachedCount)
}
