package physis

import "fmt"

// TranslationErrorKind enumerates the closed user-facing error
// taxonomy of spec §7. Every fatal translation error reports one of
// these.
type TranslationErrorKind int

const (
	ErrIndirectKernelCall TranslationErrorKind = iota
	ErrNonAffineOffset
	ErrMixedEmitTypes
	ErrUnsupportedMemberType
	ErrNonGridCall
	ErrUnsupportedReduction
	ErrUnconditionalGetTernary // warning-level, see optimizer_unconditional_get.go
)

var translationErrorKindNames = map[TranslationErrorKind]string{
	ErrIndirectKernelCall:      "indirect kernel call",
	ErrNonAffineOffset:         "non-affine offset",
	ErrMixedEmitTypes:          "mixed types at emit",
	ErrUnsupportedMemberType:   "unsupported record member type",
	ErrNonGridCall:             "grid intrinsic called on a non-grid value",
	ErrUnsupportedReduction:    "unsupported reduction",
	ErrUnconditionalGetTernary: "conditional-expression get site not lifted",
}

func (k TranslationErrorKind) String() string {
	if s, ok := translationErrorKindNames[k]; ok {
		return s
	}
	return "unknown translation error"
}

// TranslationError is the sum-type result spec §9 calls for in place
// of the original's exception-driven control flow: Ok | Translation-
// Error{location, kind, detail}. Every fatal condition from C3
// (stencil analysis) or any Builder operation produces one of these;
// Translate halts the current unit and discards partial output on the
// first one returned (spec §7).
type TranslationError struct {
	Kind     TranslationErrorKind
	Location SourceRange
	Detail   string
	Session  string // Session.ID(), diagnostic correlation only
}

func (e *TranslationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Location, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Detail)
}

// newTranslationError builds a TranslationError tagged with sess's
// diagnostic id, so every fatal error line can be correlated back to
// the session that raised it in a multi-session host process.
func newTranslationError(sess *Session, kind TranslationErrorKind, loc SourceRange, detail string) *TranslationError {
	id := ""
	if sess != nil {
		id = sess.ID()
	}
	return &TranslationError{Kind: kind, Location: loc, Detail: detail, Session: id}
}

// internalInvariant panics with the failing predicate and the node
// identity responsible, per spec §7's second error taxon ("internal
// invariants ... checked and triggers immediate abort with the
// failing predicate and node identity"). A check with no node to
// blame passes nil and panics with the predicate alone. Never
// recovered inside the core; Translate's caller may recover at its
// own boundary.
func internalInvariant(predicate string, node AstNode) {
	if node == nil {
		panic(fmt.Sprintf("internal invariant violated: %s", predicate))
	}
	panic(fmt.Sprintf("internal invariant violated: %s (node %T @ %s)", predicate, node, node.Range()))
}
