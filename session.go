package physis

import (
	"fmt"
	"log/slog"

	"github.com/rs/xid"
)

// Session is the compiler-session object that owns every descriptor
// table used across a single translation run. Spec §3's "ownership"
// note — "the compiler session owns all descriptors; AST attributes
// hold non-owning back-references" — is realized here: Grid,
// StencilMap and Run values live in maps keyed by the AST node that
// introduced them, GridType values in a map keyed by type name, never
// inside a node itself.
//
// Sessions are never global (spec §9, "Global mutable state"): every
// counter and cache a translation needs hangs off one *Session, so
// that two sessions translating concurrently never observe each
// other's state.
type Session struct {
	db *Database

	config *Config
	log    *slog.Logger

	id string

	gridTypes  map[string]*GridType
	grids      map[AstNode]*Grid
	stencilMaps map[*CallExpr]*StencilMap
	runs        map[*CallExpr]*Run

	attrs map[AstNode]any

	counters map[string]int
}

// NewSession creates a fresh session. cfg may be nil, in which case
// NewConfig's defaults apply. log may be nil, in which case a
// discarding logger is installed — Translate itself never requires
// logging to function, per spec §1's "logging ... excluded".
func NewSession(cfg *Config, log *slog.Logger) *Session {
	if cfg == nil {
		cfg = NewConfig()
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	s := &Session{
		db:          NewDatabase(),
		config:      cfg,
		log:         log,
		gridTypes:   make(map[string]*GridType),
		grids:       make(map[AstNode]*Grid),
		stencilMaps: make(map[*CallExpr]*StencilMap),
		runs:        make(map[*CallExpr]*Run),
		attrs:       make(map[AstNode]any),
		counters:    make(map[string]int),
	}
	s.db.bindSession(s)
	return s
}

// ID returns the session's diagnostic correlation id, minted lazily
// on first use via a non-deterministic xid — never consulted by any
// codegen decision, only stitched into error messages and log lines
// so a multi-session host process can tell which session produced
// which diagnostic.
func (s *Session) ID() string {
	if s.id == "" {
		s.id = xid.New().String()
	}
	return s.id
}

// Config returns the session's configuration.
func (s *Session) Config() *Config { return s.config }

// Log returns the session's logger.
func (s *Session) Log() *slog.Logger { return s.log }

// Database returns the session's query cache, exported for the
// AnalyzeKernel query wiring in analysis.go.
func (s *Session) Database() *Database { return s.db }

// NextID returns the next integer in the monotonically increasing
// counter named scope, starting at 0. Separate scopes (e.g.
// "stencil_map_id", "tmp") are independent, matching spec §5's
// "all auto-generated names derived from a monotonically increasing
// per-scope counter".
func (s *Session) NextID(scope string) int {
	id := s.counters[scope]
	s.counters[scope] = id + 1
	return id
}

// InvalidateKernel drops any cached AnalyzeKernel result for fn. A
// pass that rewrites a kernel body in place (e.g. C9's
// unconditional-get rewrite, after which Translate calls this) must
// call this
// before any later AnalyzeKernel lookup, or the cache would return a
// stale StencilRange for the rewritten body.
func (s *Session) InvalidateKernel(fn *FuncDecl) {
	Invalidate(s.db, analyzeKernelQuery, fn)
}

// GridType returns the named grid type if RegisterGridType installed
// one; it never registers. Grid types are deduplicated by name: spec §3, "a grid type
// is created once per distinct user declaration".
func (s *Session) GridType(name string) (*GridType, bool) {
	gt, ok := s.gridTypes[name]
	return gt, ok
}

// RegisterGridType installs gt under its own name. Panics if a
// distinct type is already registered under that name — grid type
// identity is name-keyed and singular per session.
func (s *Session) RegisterGridType(gt *GridType) {
	if existing, ok := s.gridTypes[gt.Name]; ok && existing != gt {
		internalInvariantf("grid type %q redefined", gt.Name)
	}
	s.gridTypes[gt.Name] = gt
}

// Grid returns the Grid descriptor attached to the allocation site
// node, if any.
func (s *Session) Grid(site AstNode) (*Grid, bool) {
	g, ok := s.grids[site]
	return g, ok
}

// RegisterGrid attaches g to its allocation site. Spec §3's Grid
// lifecycle: "created when stencil analysis sees the allocation
// call; never destroyed before translation completes" — there is no
// corresponding Unregister.
func (s *Session) RegisterGrid(site AstNode, g *Grid) {
	s.grids[site] = g
}

// StencilMap returns the StencilMap descriptor for a `map(...)` call
// site.
func (s *Session) StencilMap(site *CallExpr) (*StencilMap, bool) {
	sm, ok := s.stencilMaps[site]
	return sm, ok
}

// RegisterStencilMap attaches sm to its call site. Spec §3: "A
// StencilMap is created on first traversal of a map call and is
// immutable thereafter" — callers must not call this twice for the
// same site.
func (s *Session) RegisterStencilMap(site *CallExpr, sm *StencilMap) {
	if _, ok := s.stencilMaps[site]; ok {
		internalInvariantf("stencil map re-registered at same call site")
	}
	s.stencilMaps[site] = sm
}

// Run returns the Run descriptor for a `run(...)` call site.
func (s *Session) Run(site *CallExpr) (*Run, bool) {
	r, ok := s.runs[site]
	return r, ok
}

// RegisterRun attaches r to its call site.
func (s *Session) RegisterRun(site *CallExpr, r *Run) {
	s.runs[site] = r
}

// Attr returns the side-table attribute stored for node, if any. This
// is the generic backing store for GridGetAttribute, GridEmitAttribute
// and the other per-node attributes C1 describes; typed accessors
// (e.g. optimizer_unconditional_get.go's gridGetAttrOf) wrap this
// with a type assertion.
func (s *Session) Attr(node AstNode) (any, bool) {
	v, ok := s.attrs[node]
	return v, ok
}

// SetAttr stores an attribute for node, overwriting any previous
// value.
func (s *Session) SetAttr(node AstNode, v any) {
	s.attrs[node] = v
}

// internalInvariantf panics with a formatted predicate description,
// for the session-bookkeeping invariants above that have no single
// offending AST node to report (errors.go's internalInvariant takes
// the offending node as an argument).
func internalInvariantf(format string, args ...any) {
	panic(fmt.Sprintf("internal invariant violated: %s", fmt.Sprintf(format, args...)))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
