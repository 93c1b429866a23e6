package physis_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/physis-lang/physis"
)

// oneDimGetKernel returns a rank-1 kernel `k(x int, g GridF) { v =
// PSGridGet(g, x+offset) }`, with the literal offset folded in by the
// switch below (a bare identifier when offset is 0, otherwise an
// OpAdd/OpSub BinaryExpr with a positive IntLit) —
// exercised across a spread of offsets to stand in for "for every
// offset in range" quantification.
func oneDimGetKernel(offset int) (*FuncDecl, *GridType) {
	rg := SourceRange{}
	gt := NewPrimitiveGridType("GridF", 1, TypeFloat)

	var idxExpr AstNode = NewIdent("x", rg)
	switch {
	case offset > 0:
		idxExpr = NewBinaryExpr(OpAdd, NewIdent("x", rg), NewIntLit(offset, rg), rg)
	case offset < 0:
		idxExpr = NewBinaryExpr(OpSub, NewIdent("x", rg), NewIntLit(-offset, rg), rg)
	}

	get := NewCallExpr(NewIdent("PSGridGet", rg), []AstNode{NewIdent("g", rg), idxExpr}, rg)
	vDecl := NewVarDecl("v", "float", get, rg)
	body := NewBlock([]AstNode{vDecl}, rg)
	fn := NewFuncDecl("k", []*Param{
		NewParam("x", "int", rg),
		NewParam("g", "GridF", rg),
	}, body, rg)
	return fn, gt
}

var _ = Describe("stencil offset derivation", func() {
	DescribeTable("a get at x+offset derives a halo matching the offset's sign and magnitude",
		func(offset int) {
			sess := NewSession(nil, nil)
			fn, gt := oneDimGetKernel(offset)
			sess.RegisterGridType(gt)
			MarkKernel(sess, fn, 1)

			analysis, terr := AnalyzeKernel(sess, fn)
			Expect(terr).To(BeNil())

			rng, ok := analysis.RangeByParam[0]
			Expect(ok).To(BeTrue())
			Expect(rng.HasIrregular()).To(BeFalse())

			wantFw, wantBw := 0, 0
			if offset > 0 {
				wantFw = offset
			} else if offset < 0 {
				wantBw = -offset
			}
			Expect(rng.Halo.Fw[0]).To(Equal(wantFw))
			Expect(rng.Halo.Bw[0]).To(Equal(wantBw))
		},
		Entry("offset -3", -3),
		Entry("offset -2", -2),
		Entry("offset -1", -1),
		Entry("offset 0", 0),
		Entry("offset 1", 1),
		Entry("offset 2", 2),
		Entry("offset 3", 3),
	)
})

// evalLinearOffset numerically evaluates the restricted AST shape
// BuildGridOffset produces — IntLit, BinaryExpr{Add,Mul}, and
// PSGridDim(grid, d) calls — substituting dimVals[d] for each
// PSGridDim(_, d) call, so the multiplicative tower's structure can be
// checked against the closed-form offset formula instead of just its
// textual rendering.
func evalLinearOffset(n AstNode, dimVals []int) int {
	switch e := n.(type) {
	case *IntLit:
		return e.Value
	case *BinaryExpr:
		l := evalLinearOffset(e.Left, dimVals)
		r := evalLinearOffset(e.Right, dimVals)
		switch e.Op {
		case OpAdd:
			return l + r
		case OpMul:
			return l * r
		default:
			panic("unexpected op in linear offset expression")
		}
	case *CallExpr:
		if e.CalleeName() != "PSGridDim" {
			panic("unexpected call in linear offset expression: " + e.CalleeName())
		}
		d := e.Args[1].(*IntLit).Value
		return dimVals[d]
	default:
		panic("unexpected node in linear offset expression")
	}
}

var _ = Describe("multi-dimensional offset linearization", func() {
	DescribeTable("BuildGridOffset computes i_0 + i_1*dim_0 + i_2*dim_0*dim_1 + ... for every rank",
		func(idxVals, dimVals []int) {
			rank := len(idxVals)
			sess := NewSession(nil, nil)
			gt := NewPrimitiveGridType("GridF", rank, TypeFloat)
			b := NewReferenceBuilder(sess)
			grid := NewIdent("g", SourceRange{})

			indexExprs := make([]AstNode, rank)
			for d, v := range idxVals {
				indexExprs[d] = NewIntLit(v, SourceRange{})
			}

			offset, terr := b.BuildGridOffset(grid, gt, indexExprs, nil, true, false)
			Expect(terr).To(BeNil())

			want := 0
			stride := 1
			for d := 0; d < rank; d++ {
				want += idxVals[d] * stride
				stride *= dimVals[d]
			}
			Expect(evalLinearOffset(offset, dimVals)).To(Equal(want))
		},
		Entry("rank 1", []int{5}, []int{10}),
		Entry("rank 2", []int{2, 3}, []int{10, 20}),
		Entry("rank 2, larger indices", []int{7, 4}, []int{16, 8}),
		Entry("rank 3 (spec §4.2/§8 example)", []int{1, 2, 3}, []int{10, 20, 30}),
		Entry("rank 4", []int{1, 2, 3, 4}, []int{5, 6, 7, 8}),
	)
})

var _ = Describe("periodic absorption is idempotent", func() {
	DescribeTable("absorbing the same regular access twice never widens the halo further",
		func(offset int) {
			r := NewStencilRange(1)
			l := NewStencilIndexList([]StencilIndex{{Dim: 1, Offset: offset}})

			r.Absorb(l, true, 1)
			// Absorb widens r.Halo's slices in place, so snapshot them.
			firstHalo := HaloExtent{Fw: append([]int(nil), r.Halo.Fw...), Bw: append([]int(nil), r.Halo.Bw...)}
			firstLen := r.Len()

			r.Absorb(l, true, 1)

			Expect(r.Halo).To(Equal(firstHalo))
			Expect(r.Len()).To(Equal(firstLen), "re-absorbing an already-seen access must not grow the dedup table")
			Expect(r.Periodic[0]).To(BeTrue())
		},
		Entry("offset -2", -2),
		Entry("offset -1", -1),
		Entry("offset 0", 0),
		Entry("offset 1", 1),
		Entry("offset 2", 2),
	)
})

var _ = Describe("halo extents are monotone under further absorption", func() {
	DescribeTable("absorbing a wider access can only grow the halo, never shrink it",
		func(first, second int) {
			r := NewStencilRange(1)
			before := NewHaloExtent(1)
			r.Absorb(NewStencilIndexList([]StencilIndex{{Dim: 1, Offset: first}}), false, 1)
			// Absorb widens r.Halo's slices in place, so snapshot them.
			before = HaloExtent{Fw: append([]int(nil), r.Halo.Fw...), Bw: append([]int(nil), r.Halo.Bw...)}

			r.Absorb(NewStencilIndexList([]StencilIndex{{Dim: 1, Offset: second}}), false, 1)
			after := r.Halo

			Expect(after.Dominates(before)).To(BeTrue(), "halo must never shrink after an additional absorb")
		},
		Entry("grow forward", 1, 3),
		Entry("grow backward", -1, -3),
		Entry("second narrower than first", 3, 1),
		Entry("second on the other side", -1, 1),
		Entry("identical access twice", 2, 2),
	)
})

var _ = Describe("kernel analysis attributes are stable across statement reordering", func() {
	It("derives the same halo regardless of the order independent get statements appear in", func() {
		rg := SourceRange{}
		gt := NewPrimitiveGridType("GridF", 1, TypeFloat)

		build := func(order []int) *FuncDecl {
			getAt := func(off int) AstNode {
				idx := AstNode(NewIdent("x", rg))
				if off != 0 {
					idx = NewBinaryExpr(OpAdd, NewIdent("x", rg), NewIntLit(off, rg), rg)
				}
				return NewExprStmt(NewCallExpr(NewIdent("PSGridGet", rg), []AstNode{NewIdent("g", rg), idx}, rg), rg)
			}
			offsets := []int{-2, 0, 1}
			var stmts []AstNode
			for _, i := range order {
				stmts = append(stmts, getAt(offsets[i]))
			}
			body := NewBlock(stmts, rg)
			return NewFuncDecl("k", []*Param{
				NewParam("x", "int", rg),
				NewParam("g", "GridF", rg),
			}, body, rg)
		}

		sessA := NewSession(nil, nil)
		sessA.RegisterGridType(gt)
		fnA := build([]int{0, 1, 2})
		MarkKernel(sessA, fnA, 1)
		analysisA, terr := AnalyzeKernel(sessA, fnA)
		Expect(terr).To(BeNil())

		sessB := NewSession(nil, nil)
		sessB.RegisterGridType(gt)
		fnB := build([]int{2, 0, 1})
		MarkKernel(sessB, fnB, 1)
		analysisB, terr := AnalyzeKernel(sessB, fnB)
		Expect(terr).To(BeNil())

		Expect(analysisA.RangeByParam[0].Halo).To(Equal(analysisB.RangeByParam[0].Halo))
		Expect(analysisA.RangeByParam[0].Len()).To(Equal(analysisB.RangeByParam[0].Len()))
	})
})
