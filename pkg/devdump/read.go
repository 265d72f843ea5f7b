package devdump

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chewxy/sexp"
	"github.com/pkg/errors"

	"github.com/OpenTraceLab/fabriclink/pkg/grid"
	"github.com/OpenTraceLab/fabriclink/pkg/netlist"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
	"github.com/OpenTraceLab/fabriclink/pkg/timing"
)

// Load reads a device state file from disk.
func Load(path string) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "devdump: open device file")
	}
	defer f.Close()
	d, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "devdump: %s", path)
	}
	return d, nil
}

// ParseString reads a device state from a string.
func ParseString(s string) (*Device, error) {
	return Read(strings.NewReader(s))
}

// Read parses a device state.
func Read(r io.Reader) (*Device, error) {
	exprs, err := sexp.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "devdump: parse")
	}
	if len(exprs) != 1 {
		return nil, errors.Errorf("devdump: expected one (device ...) form, got %d", len(exprs))
	}
	top := toSlice(exprs[0])
	if len(top) == 0 || atom(top[0]) != "device" {
		return nil, errors.New("devdump: missing (device ...) form")
	}

	forms := make(map[string][]*form)
	for _, s := range top[1:] {
		items := toSlice(s)
		if len(items) == 0 {
			return nil, errors.Errorf("devdump: unexpected atom %q in device", atom(s))
		}
		f := &form{head: atom(items[0]), items: items}
		forms[f.head] = append(forms[f.head], f)
	}

	rd := &reader{forms: forms}
	return rd.read()
}

type reader struct {
	forms map[string][]*form
	d     *Device
}

func (r *reader) read() (*Device, error) {
	for head := range r.forms {
		switch head {
		case "tiletype", "grid", "switch", "segment", "node", "edge",
			"block", "net", "place", "route", "arc":
		default:
			return nil, errors.Errorf("devdump: unknown form %q", head)
		}
	}

	var types []*grid.TileType
	for _, f := range r.forms["tiletype"] {
		t, err := readTileType(f)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}

	grids := r.forms["grid"]
	if len(grids) != 1 {
		return nil, errors.Errorf("devdump: expected one grid form, got %d", len(grids))
	}
	g := grids[0]
	w, h := g.int(1), g.int(2)
	if err := g.check(3, w > 0 && h > 0); err != nil {
		return nil, err
	}
	r.d = NewDevice(w, h)
	for _, t := range types {
		if err := r.d.Grid.AddTileType(t); err != nil {
			return nil, errors.Wrap(err, "devdump")
		}
	}
	for _, s := range g.items[3:] {
		tile := &form{head: "tile", items: toSlice(s)}
		x, y, name := tile.int(1), tile.int(2), tile.str(3)
		if err := tile.check(4, tile.str(0) == "tile"); err != nil {
			return nil, err
		}
		if err := r.d.Grid.Set(grid.Coordinate{X: x, Y: y}, name); err != nil {
			return nil, errors.Wrap(err, "devdump")
		}
	}

	for _, step := range []func() error{r.readGraph, r.readNetlist, r.readArcs} {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return r.d, nil
}

func readTileType(f *form) (*grid.TileType, error) {
	t := grid.NewTileType(f.str(1))
	if err := f.check(2, true); err != nil {
		return nil, err
	}
	for _, s := range f.items[2:] {
		p := &form{head: "port", items: toSlice(s)}
		name, dirName, width := p.str(1), p.str(2), p.int(3)
		if err := p.check(4, p.str(0) == "port"); err != nil {
			return nil, err
		}
		dir, err := grid.ParsePortDirection(dirName)
		if err != nil {
			return nil, errors.Wrap(err, "devdump")
		}
		if err := t.AddPort(name, dir, width); err != nil {
			return nil, errors.Wrap(err, "devdump")
		}
	}
	return t, nil
}

func (r *reader) readGraph() error {
	g := r.d.Graph
	for i, f := range r.forms["switch"] {
		id, name := f.int(1), f.str(2)
		if err := f.check(3, id == i); err != nil {
			return err
		}
		g.AddSwitch(name)
	}
	for i, f := range r.forms["segment"] {
		id, name, length := f.int(1), f.str(2), f.int(3)
		if err := f.check(4, id == i); err != nil {
			return err
		}
		g.AddSegment(name, length)
	}
	for i, f := range r.forms["node"] {
		n, err := readNode(f)
		if err != nil {
			return err
		}
		if int(n.ID) != i {
			return errors.Errorf("devdump: node %d listed at position %d", n.ID, i)
		}
		g.AddNode(n)
	}
	for _, f := range r.forms["edge"] {
		from, to, sw := f.int(1), f.int(2), f.int(3)
		if err := f.check(4, true); err != nil {
			return err
		}
		if _, err := g.AddEdge(rrgraph.NodeID(from), rrgraph.NodeID(to), rrgraph.SwitchID(sw)); err != nil {
			return errors.Wrap(err, "devdump")
		}
	}
	return nil
}

func readNode(f *form) (rrgraph.Node, error) {
	n := rrgraph.Node{
		ID:      rrgraph.NodeID(f.int(1)),
		XLow:    f.int(4),
		YLow:    f.int(5),
		XHigh:   f.int(6),
		YHigh:   f.int(7),
		PTC:     f.int(8),
		Segment: rrgraph.SegmentID(f.int(10)),
	}
	if err := f.check(11, true); err != nil {
		return n, err
	}
	var err error
	if n.Type, err = rrgraph.ParseNodeType(f.str(2)); err != nil {
		return n, errors.Wrap(err, "devdump")
	}
	if n.Direction, err = rrgraph.ParseDirection(f.str(3)); err != nil {
		return n, errors.Wrap(err, "devdump")
	}
	if n.Side, err = rrgraph.ParseSide(f.str(9)); err != nil {
		return n, errors.Wrap(err, "devdump")
	}
	return n, nil
}

func (r *reader) readNetlist() error {
	c := r.d.Clustering
	for i, f := range r.forms["block"] {
		id, name, tile := f.int(1), f.str(2), f.str(3)
		if err := f.check(4, id == i); err != nil {
			return err
		}
		var atoms []string
		if len(f.items) > 4 {
			a := &form{head: "atoms", items: toSlice(f.items[4])}
			if a.str(0) != "atoms" {
				return errors.Errorf("devdump: block %s: expected (atoms ...)", name)
			}
			for _, s := range a.items[1:] {
				atoms = append(atoms, atom(s))
			}
		}
		c.AddBlock(name, tile, atoms...)
	}
	for i, f := range r.forms["net"] {
		id, name := f.int(1), f.str(2)
		if err := f.check(3, id == i); err != nil {
			return err
		}
		c.AddNet(name)
	}
	for _, f := range r.forms["place"] {
		id := netlist.BlockID(f.int(1))
		loc := netlist.Location{X: f.int(2), Y: f.int(3), Subtile: f.int(4)}
		if err := f.check(5, true); err != nil {
			return err
		}
		r.d.Placement.Place(id, loc)
	}
	for _, f := range r.forms["route"] {
		net, node, parent := f.int(1), f.int(2), f.int(3)
		if err := f.check(4, true); err != nil {
			return err
		}
		r.d.Routing.AddRoute(netlist.NetID(net), rrgraph.NodeID(node), rrgraph.NodeID(parent))
	}
	return nil
}

func (r *reader) readArcs() error {
	for _, f := range r.forms["arc"] {
		a := timing.Arc{From: f.str(1), To: f.str(2), Delay: f.float(3)}
		if err := f.check(4, true); err != nil {
			return err
		}
		r.d.Timing = append(r.d.Timing, a)
	}
	return nil
}

// form is one parsed (head arg ...) list. Field accessors record the first
// decoding error, reported by check.
type form struct {
	head  string
	items []sexp.Sexp
	err   error
}

func (f *form) str(i int) string {
	if i >= len(f.items) {
		f.fail(errors.Errorf("missing field %d", i))
		return ""
	}
	if !f.items[i].IsLeaf() {
		f.fail(errors.Errorf("field %d is a list", i))
		return ""
	}
	return atom(f.items[i])
}

func (f *form) int(i int) int {
	s := f.str(i)
	v, err := strconv.Atoi(s)
	if err != nil && f.err == nil {
		f.fail(errors.Errorf("field %d: %q is not an integer", i, s))
	}
	return v
}

func (f *form) float(i int) float64 {
	s := f.str(i)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && f.err == nil {
		f.fail(errors.Errorf("field %d: %q is not a number", i, s))
	}
	return v
}

func (f *form) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

// check reports decoding errors, a form shorter than min items, or a
// failed consistency condition.
func (f *form) check(min int, ok bool) error {
	switch {
	case f.err != nil:
		return errors.Wrapf(f.err, "devdump: (%s ...)", f.head)
	case len(f.items) < min:
		return errors.Errorf("devdump: (%s ...) has %d fields, want at least %d", f.head, len(f.items)-1, min-1)
	case !ok:
		return errors.Errorf("devdump: malformed (%s ...) form", f.head)
	}
	return nil
}

// toSlice flattens a list into its elements. Atoms yield nil.
func toSlice(s sexp.Sexp) []sexp.Sexp {
	var items []sexp.Sexp
	for s != nil && !s.IsLeaf() {
		n := s.LeafCount()
		if n == 0 {
			break
		}
		if head := s.Head(); head != nil {
			items = append(items, head)
		}
		if n <= 1 {
			break
		}
		s = s.Tail()
	}
	return items
}

// atom returns the text of a leaf, unquoting string literals.
func atom(s sexp.Sexp) string {
	if s == nil {
		return ""
	}
	text := fmt.Sprintf("%s", s)
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		if u, err := strconv.Unquote(text); err == nil {
			return u
		}
	}
	return text
}
