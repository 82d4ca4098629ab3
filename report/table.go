// Package report renders the outcome of a simulation as a text table
// followed by a statistics summary.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/hierarchy"
)

const (
	columnHeader = "Address  Op DC Tag Ind Res. L2 Tag Ind Res. Mem"
	columnRule   = "-------- -- ------ --- ---- ------ --- ---- ---"
)

// ratioGuard keeps ratios finite when nothing was counted.
const ratioGuard = 0.0000001

var levelTitles = [...]string{"D-cache", "L2-cache"}

// TableWriter writes one row per access and a summary at the end of a run.
type TableWriter struct {
	out    *bufio.Writer
	levels []*cache.Level

	quiet         bool
	headerWritten bool
}

// NewTableWriter creates a TableWriter that describes the hierarchy of c.
func NewTableWriter(w io.Writer, c *hierarchy.Controller) *TableWriter {
	return &TableWriter{
		out:    bufio.NewWriter(w),
		levels: c.Levels(),
	}
}

// WithQuiet makes the writer skip the configuration and the rows. Only the
// summary is written.
func (t *TableWriter) WithQuiet(quiet bool) *TableWriter {
	t.quiet = quiet
	return t
}

// WriteHeader writes the configuration description and the column titles.
// It is called automatically before the first row.
func (t *TableWriter) WriteHeader() error {
	if t.headerWritten || t.quiet {
		return nil
	}

	t.headerWritten = true

	for i, l := range t.levels {
		t.describeLevel(levelTitles[i], l)
	}

	fmt.Fprintln(t.out, "The addresses read in are physical addresses.")

	if len(t.levels) < 2 {
		fmt.Fprintln(t.out, "L2 cache is disabled in this configuration.")
	}

	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, columnHeader)
	fmt.Fprintln(t.out, columnRule)

	return nil
}

func (t *TableWriter) describeLevel(title string, l *cache.Level) {
	g := l.Geometry()

	allocate := ""
	if l.AllocatePolicy() == cache.NoWriteAllocate {
		allocate = "no "
	}

	write := "back"
	if l.WritePolicy() == cache.WriteThrough {
		write = "through"
	}

	fmt.Fprintf(t.out, "%s contains %d sets.\n", title, g.NumSets)
	fmt.Fprintf(t.out, "Each set contains %d entries.\n", g.Ways)
	fmt.Fprintf(t.out, "Each line is %d bytes.\n", g.BlockSize)
	fmt.Fprintf(t.out, "The cache uses a %swrite-allocate and write-%s policy.\n",
		allocate, write)

	if l.ReplacementPolicy() != cache.LRU {
		fmt.Fprintf(t.out, "Lines are replaced in %s order.\n",
			strings.ToUpper(l.ReplacementPolicy().String()))
	}

	fmt.Fprintf(t.out, "Number of bits used for the index is %d.\n", g.IndexBits)
	fmt.Fprintf(t.out, "Number of bits used for the offset is %d.\n", g.OffsetBits)
	fmt.Fprintln(t.out)
}

// Record writes the row of one access.
func (t *TableWriter) Record(o hierarchy.Outcome) error {
	if t.quiet {
		return nil
	}

	if err := t.WriteHeader(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(t.out, FormatRow(o))

	return err
}

// FormatRow renders one access in the column layout of the table. The L2
// columns are blank unless a demand read or write reached L2.
func FormatRow(o hierarchy.Outcome) string {
	sb := new(strings.Builder)

	fmt.Fprintf(sb, "%08x %-2s", o.Access.Address, o.Access.Op.Letter())

	if dc, ok := o.Level(hierarchy.DC); ok {
		fmt.Fprintf(sb, " %6x %3x %s",
			dc.Address.Tag, dc.Address.Index, hitOrMiss(dc.Hit))
	} else {
		sb.WriteString(strings.Repeat(" ", 16))
	}

	if l2, ok := o.Level(hierarchy.L2); ok && l2.Queried {
		fmt.Fprintf(sb, " %6x %3x %s",
			l2.Address.Tag, l2.Address.Index, hitOrMiss(l2.Hit))
	} else {
		sb.WriteString(strings.Repeat(" ", 16))
	}

	fmt.Fprintf(sb, " %3d", o.MemoryReferences())

	return sb.String()
}

func hitOrMiss(hit bool) string {
	if hit {
		return "hit "
	}

	return "miss"
}

func ratio(part, other uint64) float64 {
	total := float64(part + other)
	if total < ratioGuard {
		total = ratioGuard
	}

	return float64(part) / total
}

// Summarize writes the statistics of the run and flushes the output.
func (t *TableWriter) Summarize(stats hierarchy.Statistics) error {
	if err := t.WriteHeader(); err != nil {
		return err
	}

	if !t.quiet {
		fmt.Fprintln(t.out)
	}

	fmt.Fprint(t.out, "Simulation statistics\n\n")

	t.line("dc hits", "%d", stats.Hits(hierarchy.DC))
	t.line("dc misses", "%d", stats.Misses(hierarchy.DC))
	t.line("dc hit ratio", "%1.6f",
		ratio(stats.Hits(hierarchy.DC), stats.Misses(hierarchy.DC)))
	fmt.Fprintln(t.out)

	t.line("L2 hits", "%d", stats.Hits(hierarchy.L2))
	t.line("L2 misses", "%d", stats.Misses(hierarchy.L2))

	if len(t.levels) > 1 {
		t.line("L2 hit ratio", "%1.6f",
			ratio(stats.Hits(hierarchy.L2), stats.Misses(hierarchy.L2)))
	} else {
		t.line("L2 hit ratio", "%s", "N/A")
	}

	fmt.Fprintln(t.out)

	t.line("Total reads", "%d", stats.Reads())
	t.line("Total writes", "%d", stats.Writes())
	t.line("Ratio of reads", "%1.6f", ratio(stats.Reads(), stats.Writes()))
	fmt.Fprintln(t.out)

	t.line("dc write-backs", "%d", stats.WriteBacks(hierarchy.DC))
	t.line("L2 write-backs", "%d", stats.WriteBacks(hierarchy.L2))
	fmt.Fprintln(t.out)

	t.line("main memory refs", "%d", stats.MemoryReferences())
	t.line("memory reads", "%d", stats.MemoryReads())
	t.line("memory writes", "%d", stats.MemoryWrites())

	return t.Flush()
}

// Flush writes out the rows buffered so far.
func (t *TableWriter) Flush() error {
	return errors.Wrap(t.out.Flush(), "writing report")
}

func (t *TableWriter) line(label, format string, value any) {
	fmt.Fprintf(t.out, "%-17s: "+format+"\n", label, value)
}
