// Package render draws the sampler's ranked view to a terminal. Screen
// initialization, cursor control and key input are out of scope (an
// external collaborator's concern); this package only implements the
// rendering contract: given a view, produce a table.
package render

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/vladimirazarov/isa-top/internal/flow"
	"github.com/vladimirazarov/isa-top/pkg/formatting"
)

// Renderer draws one ranked view per sampling tick. It implements
// sampler.Consumer.
type Renderer struct {
	out    io.Writer
	w      *tabwriter.Writer
	plain  bool
	cursor cursorControl
}

// cursorControl issues the escape sequences used to redraw in place. It
// is a no-op in plain mode, where each tick simply appends a fresh table
// (suited to output redirected to a file or to a non-interactive CI
// runner).
type cursorControl interface {
	Reset(io.Writer)
}

type ansiCursor struct{}

func (ansiCursor) Reset(w io.Writer) {
	// move to top-left and clear from cursor to end of screen
	fmt.Fprint(w, "\x1b[H\x1b[J")
}

type noCursor struct{}

func (noCursor) Reset(io.Writer) {}

// New returns an interactive renderer that clears and redraws the screen
// every tick.
func New(out io.Writer) *Renderer {
	return &Renderer{
		out:    out,
		w:      tabwriter.NewWriter(out, 0, 1, 2, ' ', tabwriter.AlignRight),
		cursor: ansiCursor{},
	}
}

// NewPlain returns a non-interactive renderer that appends one table dump
// per tick without cursor control, for output redirected to a file.
func NewPlain(out io.Writer) *Renderer {
	return &Renderer{
		out:   out,
		w:     tabwriter.NewWriter(out, 0, 1, 2, ' ', tabwriter.AlignRight),
		plain: true,
		cursor: noCursor{},
	}
}

var columns = []string{"Src IP:Port", "Dst IP:Port", "Proto", "Rx b/s", "Rx p/s", "Tx b/s", "Tx p/s"}

// Consume implements sampler.Consumer.
func (r *Renderer) Consume(view []flow.Entry, sampledAt time.Time) error {
	r.cursor.Reset(r.out)

	if !r.plain {
		fmt.Fprintf(r.out, "isa-top — %s\n\n", sampledAt.Format(time.Stamp))
	}

	for i, col := range columns {
		if i > 0 {
			fmt.Fprint(r.w, "\t")
		}
		fmt.Fprint(r.w, col)
	}
	fmt.Fprintln(r.w)

	for _, e := range view {
		fmt.Fprintf(r.w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Key.Src.String(),
			e.Key.Dst.String(),
			e.Key.Proto.String(),
			formatting.RateSize(e.Stats.RxBPS),
			formatting.RateCount(e.Stats.RxPPS),
			formatting.RateSize(e.Stats.TxBPS),
			formatting.RateCount(e.Stats.TxPPS),
		)
	}

	return r.w.Flush()
}
