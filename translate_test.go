package physis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildMapRunProgram constructs a minimal program exercising the full
// recognition pipeline: a kernel `k(x int, g GridF)` doing `v =
// PSGridGet(g, x-1)`, a host function `main` that declares
// `GridF g = PSGridNew(10)` and `Domain d = PSDomainNew()`, then calls
// `PSStencilRun(1, PSStencilMap(k, d, g))`.
func buildMapRunProgram(t *testing.T, sess *Session) (*Program, *GridType) {
	t.Helper()
	rg := SourceRange{}

	gt := NewPrimitiveGridType("GridF", 1, TypeFloat)
	sess.RegisterGridType(gt)

	get := NewCallExpr(NewIdent("PSGridGet", rg), []AstNode{
		NewIdent("g", rg),
		NewBinaryExpr(OpSub, NewIdent("x", rg), NewIntLit(1, rg), rg),
	}, rg)
	vDecl := NewVarDecl("v", "float", get, rg)
	kernelBody := NewBlock([]AstNode{vDecl}, rg)
	kernel := NewFuncDecl("k", []*Param{
		NewParam("x", "int", rg),
		NewParam("g", "GridF", rg),
	}, kernelBody, rg)

	gridAlloc := NewVarDecl("g", "GridF", NewCallExpr(NewIdent("PSGridNew", rg), []AstNode{
		NewIntLit(10, rg),
	}, rg), rg)

	domAlloc := NewVarDecl("d", "Domain", NewCallExpr(NewIdent("PSDomainNew", rg), nil, rg), rg)

	mapCall := NewCallExpr(NewIdent("PSStencilMap", rg), []AstNode{
		NewIdent("k", rg),
		NewIdent("d", rg),
		NewIdent("g", rg),
	}, rg)
	runCall := NewExprStmt(NewCallExpr(NewIdent("PSStencilRun", rg), []AstNode{
		NewIntLit(1, rg),
		mapCall,
	}, rg), rg)

	mainBody := NewBlock([]AstNode{gridAlloc, domAlloc, runCall}, rg)
	mainFn := NewFuncDecl("main", nil, mainBody, rg)

	return NewProgram([]*FuncDecl{kernel, mainFn}, rg), gt
}

func TestTranslateReferenceBackendEndToEnd(t *testing.T) {
	sess := NewSession(nil, nil)
	prog, _ := buildMapRunProgram(t, sess)

	result, terr := Translate(sess, prog, BackendReference)
	require.Nil(t, terr)
	require.NotNil(t, result)
	require.Empty(t, result.Warnings)

	var names []string
	for _, fn := range result.Program.Funcs {
		names = append(names, fn.Name)
	}
	require.Contains(t, names, "k")
	require.Contains(t, names, "main")
	require.Contains(t, names, "Run_k", "the reference builder must synthesize a Run_<kernel> function")

	g, ok := result.Grids["g"]
	require.True(t, ok, "the grid allocation named \"g\" must be tracked")
	require.Equal(t, 1, g.Range.Halo.Bw[0], "get at x-1 should derive a backward halo of 1")
	require.Equal(t, 0, g.Range.Halo.Fw[0])
}

func TestTranslateRejectsIndirectKernelCall(t *testing.T) {
	sess := NewSession(nil, nil)
	rg := SourceRange{}
	prog, _ := buildMapRunProgram(t, sess)

	// Replace the map call's kernel argument with something that
	// isn't a direct identifier reference to a recognized kernel.
	mainFn := prog.Funcs[1]
	badMap := NewCallExpr(NewIdent("PSStencilMap", rg), []AstNode{
		NewIntLit(0, rg), // not an *Ident
		NewIdent("d", rg),
		NewIdent("g", rg),
	}, rg)
	mainFn.Body.Stmts[2] = NewExprStmt(NewCallExpr(NewIdent("PSStencilRun", rg), []AstNode{
		NewIntLit(1, rg), badMap,
	}, rg), rg)

	_, terr := Translate(sess, prog, BackendReference)
	require.NotNil(t, terr)
	require.Equal(t, ErrIndirectKernelCall, terr.Kind)
}

func TestTranslateMPICUDABuildsVariants(t *testing.T) {
	sess := NewSession(nil, nil)
	prog, _ := buildMapRunProgram(t, sess)

	result, terr := Translate(sess, prog, BackendMPICUDA)
	require.Nil(t, terr)

	var names []string
	for _, fn := range result.Program.Funcs {
		names = append(names, fn.Name)
	}
	require.Contains(t, names, "Run_k_global")
	require.Contains(t, names, "k_interior")
	require.Contains(t, names, "k_boundary_single")
}
