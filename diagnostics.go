package physis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// FormatProgram renders prog as a summary table of its top-level
// functions (name, kernel rank if recognized, parameter count)
// followed by the full textual AST dump Program.String() already
// produces — a CLI -dump flag's single entry point, grounded on the
// box-drawing/table texture the pack otherwise reaches for go-pretty
// to render (sarchlab-zeonica's register/buffer dumps).
func FormatProgram(sess *Session, prog *Program) string {
	t := table.NewWriter()
	t.SetTitle("Functions")
	t.AppendHeader(table.Row{"Name", "Kind", "Params"})
	for _, fn := range prog.Funcs {
		kind := "host"
		if rank, ok := IsKernel(sess, fn); ok {
			kind = fmt.Sprintf("kernel(rank=%d)", rank)
		}
		t.AppendRow(table.Row{fn.Name, kind, len(fn.Params)})
	}

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(prog.String())
	return b.String()
}

// FormatStencilRanges renders one row per tracked grid: its type, the
// number of distinct accesses absorbed, the derived halo extent, which
// dimensions were ever accessed periodically, and whether any
// irregular access was seen — the per-grid summary spec.md §3's Grid
// descriptor accumulates, surfaced for -dump-ranges. grids is keyed by
// surface-language variable name (the map translate.go builds while
// walking allocation sites); rows are sorted by name for deterministic
// output across repeated runs of the same program.
func FormatStencilRanges(grids map[string]*Grid) string {
	names := make([]string, 0, len(grids))
	for name := range grids {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetTitle("Stencil ranges")
	t.AppendHeader(table.Row{"Grid", "Type", "Accesses", "Halo fw", "Halo bw", "Periodic", "Irregular"})
	for _, name := range names {
		g := grids[name]
		r := g.Range
		t.AppendRow(table.Row{
			name,
			g.Type.String(),
			r.Len(),
			fmt.Sprint(r.Halo.Fw),
			fmt.Sprint(r.Halo.Bw),
			periodicDims(r.Periodic),
			r.HasIrregular(),
		})
		for _, key := range memberKeysOf(g) {
			mr := g.Members.Get(key)
			t.AppendRow(table.Row{
				"  ." + memberKeyLabel(key),
				"",
				mr.Len(),
				fmt.Sprint(mr.Halo.Fw),
				fmt.Sprint(mr.Halo.Bw),
				periodicDims(mr.Periodic),
				mr.HasIrregular(),
			})
		}
	}
	return t.Render()
}

func memberKeysOf(g *Grid) []MemberKey {
	if g.Members == nil {
		return nil
	}
	return g.Members.Keys()
}

func memberKeyLabel(key MemberKey) string {
	if key.Indices == "" {
		return key.Member
	}
	return fmt.Sprintf("%s[%s]", key.Member, key.Indices)
}

func periodicDims(periodic []bool) string {
	var dims []string
	for d, p := range periodic {
		if p {
			dims = append(dims, fmt.Sprintf("d%d", d+1))
		}
	}
	if len(dims) == 0 {
		return "-"
	}
	return strings.Join(dims, ",")
}
