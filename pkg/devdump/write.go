package devdump

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/fabriclink/pkg/grid"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

// Save writes d to a file.
func Save(path string, d *Device) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "devdump: create device file")
	}
	if err := Write(f, d); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "devdump: close device file")
}

// Write serializes d in the format Read accepts. Names are written as
// quoted strings.
func Write(w io.Writer, d *Device) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(bw, format, args...)
	}
	q := strconv.Quote

	p("(device\n")
	for _, t := range d.Grid.TileTypes() {
		p("  (tiletype %s", q(t.Name))
		for _, port := range t.Ports {
			p(" (port %s %s %d)", q(port.Name), port.Direction, port.Width)
		}
		p(")\n")
	}

	p("  (grid %d %d", d.Grid.Width(), d.Grid.Height())
	for y := 0; y < d.Grid.Height(); y++ {
		for x := 0; x < d.Grid.Width(); x++ {
			if t := d.Grid.Tile(grid.Coordinate{X: x, Y: y}); t != nil {
				p("\n    (tile %d %d %s)", x, y, q(t.Name))
			}
		}
	}
	p(")\n")

	g := d.Graph
	for _, sw := range g.Switches() {
		p("  (switch %d %s)\n", sw.ID, q(sw.Name))
	}
	for _, seg := range g.Segments() {
		p("  (segment %d %s %d)\n", seg.ID, q(seg.Name), seg.Length)
	}
	for i := 0; i < g.NumNodes(); i++ {
		n := g.Node(rrgraph.NodeID(i))
		p("  (node %d %s %s %d %d %d %d %d %s %d)\n",
			n.ID, n.Type, n.Direction, n.XLow, n.YLow, n.XHigh, n.YHigh, n.PTC, n.Side, n.Segment)
	}
	for i := 0; i < g.NumEdges(); i++ {
		e := g.Edge(rrgraph.EdgeID(i))
		p("  (edge %d %d %d)\n", e.From, e.To, e.Switch)
	}

	for _, b := range d.Clustering.Blocks {
		p("  (block %d %s %s (atoms", b.ID, q(b.Name), q(b.TileType))
		for _, a := range b.Atoms {
			p(" %s", q(a))
		}
		p("))\n")
	}
	for _, n := range d.Clustering.Nets {
		p("  (net %d %s)\n", n.ID, q(n.Name))
	}
	for _, id := range d.Placement.Blocks() {
		loc, _ := d.Placement.Location(id)
		p("  (place %d %d %d %d)\n", id, loc.X, loc.Y, loc.Subtile)
	}
	for _, net := range d.Routing.Nets() {
		for _, rn := range d.Routing.Tree(net) {
			p("  (route %d %d %d)\n", net, rn.Node, rn.Parent)
		}
	}
	for _, a := range d.Timing {
		p("  (arc %s %s %s)\n", q(a.From), q(a.To), strconv.FormatFloat(a.Delay, 'g', -1, 64))
	}
	p(")\n")
	return errors.Wrap(bw.Flush(), "devdump: write")
}
