// Package fabricgen builds synthetic island-style devices with
// uni-directional length-1 routing, for tests and for the generate
// command.
package fabricgen

import (
	"fmt"

	"github.com/OpenTraceLab/fabriclink/pkg/devdump"
	"github.com/OpenTraceLab/fabriclink/pkg/grid"
	"github.com/OpenTraceLab/fabriclink/pkg/netlist"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
	"github.com/OpenTraceLab/fabriclink/pkg/timing"
)

// Names shared by generated devices and their architecture.
const (
	SwitchRouting   = "L1_mux"
	SwitchIPin      = "ipin_cblock"
	SwitchDelayless = "delayless"
	SegmentL1       = "L1"

	TileLogic = "clb"
	TileIO    = "io"
)

// Params describes a generated device.
type Params struct {
	Width        int
	Height       int
	ChannelWidth int // even; even tracks run INC, odd tracks DEC

	// Bidirectional marks every track BI instead.
	Bidirectional bool
	// DirectRouting adds cout -> cin edges through the routing graph, so the
	// carry chain no longer bypasses it.
	DirectRouting bool
	// WithDesign places and routes a small two-block design.
	WithDesign bool
}

// DefaultParams returns a 5x5 device with four tracks per channel and a
// small placed design.
func DefaultParams() Params {
	return Params{Width: 5, Height: 5, ChannelWidth: 4, WithDesign: true}
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if p.Width < 3 || p.Height < 3 {
		return fmt.Errorf("fabricgen: grid must be at least 3x3, got %dx%d", p.Width, p.Height)
	}
	if p.ChannelWidth < 2 || p.ChannelWidth%2 != 0 {
		return fmt.Errorf("fabricgen: channel width must be even and at least 2, got %d", p.ChannelWidth)
	}
	return nil
}

type chanKey struct {
	t    rrgraph.NodeType
	x, y int
}

type builder struct {
	p   Params
	dev *devdump.Device
	g   *rrgraph.Graph

	swRouting, swIPin, swDelayless rrgraph.SwitchID
	seg                            rrgraph.SegmentID

	tracks map[chanKey][]rrgraph.NodeID // indexed by ptc
	opins  map[chanKey][]rrgraph.NodeID // routable output pins facing a channel
	ipins  []facingPin                  // routable input pins in creation order
}

type facingPin struct {
	channel chanKey
	node    rrgraph.NodeID
}

// Generate builds a device. Perimeter locations hold I/O tiles, corners
// stay empty and the interior is filled with logic tiles.
func Generate(p Params) (*devdump.Device, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b := &builder{
		p:      p,
		dev:    devdump.NewDevice(p.Width, p.Height),
		tracks: make(map[chanKey][]rrgraph.NodeID),
		opins:  make(map[chanKey][]rrgraph.NodeID),
	}
	b.g = b.dev.Graph
	b.swRouting = b.g.AddSwitch(SwitchRouting)
	b.swIPin = b.g.AddSwitch(SwitchIPin)
	b.swDelayless = b.g.AddSwitch(SwitchDelayless)
	b.seg = b.g.AddSegment(SegmentL1, 1)

	if err := b.buildGrid(); err != nil {
		return nil, err
	}
	b.buildPins()
	b.buildChannels()
	b.connectSwitchBlocks()
	b.connectInputs()
	if p.DirectRouting {
		b.connectCarry()
	}
	if p.WithDesign {
		if err := b.buildDesign(); err != nil {
			return nil, err
		}
	}
	return b.dev, nil
}

func (b *builder) buildGrid() error {
	clb := grid.NewTileType(TileLogic)
	for _, port := range []struct {
		name  string
		dir   grid.PortDirection
		width int
	}{
		{"I", grid.PortInput, 4},
		{"O", grid.PortOutput, 2},
		{"cin", grid.PortInput, 1},
		{"cout", grid.PortOutput, 1},
	} {
		if err := clb.AddPort(port.name, port.dir, port.width); err != nil {
			return err
		}
	}
	io := grid.NewTileType(TileIO)
	if err := io.AddPort("inpad", grid.PortOutput, 1); err != nil {
		return err
	}
	if err := io.AddPort("outpad", grid.PortInput, 1); err != nil {
		return err
	}

	gr := b.dev.Grid
	for _, t := range []*grid.TileType{clb, io} {
		if err := gr.AddTileType(t); err != nil {
			return err
		}
	}
	w, h := b.p.Width, b.p.Height
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			edgeX, edgeY := x == 0 || x == w-1, y == 0 || y == h-1
			var err error
			switch {
			case edgeX && edgeY:
				continue
			case edgeX || edgeY:
				err = gr.Set(grid.Coordinate{X: x, Y: y}, TileIO)
			default:
				err = gr.Set(grid.Coordinate{X: x, Y: y}, TileLogic)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// pinSide returns the tile side a pin sits on and whether it connects to
// the routing channels.
func (b *builder) pinSide(tile *grid.TileType, c grid.Coordinate, port grid.Port, bit int) (rrgraph.Side, bool) {
	if tile.Name == TileIO {
		switch {
		case c.X == 0:
			return rrgraph.SideRight, true
		case c.X == b.p.Width-1:
			return rrgraph.SideLeft, true
		case c.Y == 0:
			return rrgraph.SideTop, true
		default:
			return rrgraph.SideBottom, true
		}
	}
	switch port.Name {
	case "I":
		return rrgraph.Sides[bit%rrgraph.NumSides], true
	case "O":
		return [2]rrgraph.Side{rrgraph.SideTop, rrgraph.SideRight}[bit%2], true
	case "cin":
		return rrgraph.SideBottom, false
	default:
		return rrgraph.SideTop, false
	}
}

// facingChannel returns the channel a pin on side s of tile (x, y) faces.
func facingChannel(x, y int, s rrgraph.Side) chanKey {
	switch s {
	case rrgraph.SideTop:
		return chanKey{t: rrgraph.NodeChanX, x: x, y: y}
	case rrgraph.SideBottom:
		return chanKey{t: rrgraph.NodeChanX, x: x, y: y - 1}
	case rrgraph.SideRight:
		return chanKey{t: rrgraph.NodeChanY, x: x, y: y}
	default:
		return chanKey{t: rrgraph.NodeChanY, x: x - 1, y: y}
	}
}

func (b *builder) buildPins() {
	gr := b.dev.Grid
	for x := 0; x < b.p.Width; x++ {
		for y := 0; y < b.p.Height; y++ {
			c := grid.Coordinate{X: x, Y: y}
			tile := gr.Tile(c)
			if tile == nil {
				continue
			}
			for _, port := range tile.Ports {
				for bit := 0; bit < port.Width; bit++ {
					side, routable := b.pinSide(tile, c, port, bit)
					pin := rrgraph.Node{XLow: x, YLow: y, XHigh: x, YHigh: y, PTC: port.Pin(bit), Side: side}
					if port.Direction == grid.PortOutput {
						pin.Type = rrgraph.NodeOPin
						src := b.g.AddNode(rrgraph.Node{Type: rrgraph.NodeSource, XLow: x, YLow: y, XHigh: x, YHigh: y, PTC: pin.PTC})
						id := b.g.AddNode(pin)
						b.g.MustAddEdge(src, id, b.swDelayless)
						if routable {
							k := facingChannel(x, y, side)
							b.opins[k] = append(b.opins[k], id)
						}
						continue
					}
					pin.Type = rrgraph.NodeIPin
					id := b.g.AddNode(pin)
					sink := b.g.AddNode(rrgraph.Node{Type: rrgraph.NodeSink, XLow: x, YLow: y, XHigh: x, YHigh: y, PTC: pin.PTC})
					b.g.MustAddEdge(id, sink, b.swDelayless)
					if routable {
						b.ipins = append(b.ipins, facingPin{channel: facingChannel(x, y, side), node: id})
					}
				}
			}
		}
	}
}

func (b *builder) direction(ptc int) rrgraph.Direction {
	switch {
	case b.p.Bidirectional:
		return rrgraph.DirBi
	case ptc%2 == 0:
		return rrgraph.DirInc
	default:
		return rrgraph.DirDec
	}
}

func (b *builder) buildChannels() {
	w, h := b.p.Width, b.p.Height
	add := func(t rrgraph.NodeType, x, y int) {
		k := chanKey{t: t, x: x, y: y}
		for ptc := 0; ptc < b.p.ChannelWidth; ptc++ {
			id := b.g.AddNode(rrgraph.Node{
				Type: t, Direction: b.direction(ptc),
				XLow: x, YLow: y, XHigh: x, YHigh: y,
				PTC: ptc, Segment: b.seg,
			})
			b.tracks[k] = append(b.tracks[k], id)
		}
	}
	for y := 0; y <= h-2; y++ {
		for x := 1; x <= w-2; x++ {
			add(rrgraph.NodeChanX, x, y)
		}
	}
	for x := 0; x <= w-2; x++ {
		for y := 1; y <= h-2; y++ {
			add(rrgraph.NodeChanY, x, y)
		}
	}
}

// gsbSide returns the channel on side s of the GSB at (x, y).
func gsbSide(x, y int, s rrgraph.Side) chanKey {
	switch s {
	case rrgraph.SideTop:
		return chanKey{t: rrgraph.NodeChanY, x: x, y: y + 1}
	case rrgraph.SideRight:
		return chanKey{t: rrgraph.NodeChanX, x: x + 1, y: y}
	case rrgraph.SideBottom:
		return chanKey{t: rrgraph.NodeChanY, x: x, y: y}
	default:
		return chanKey{t: rrgraph.NodeChanX, x: x, y: y}
	}
}

// leavesOn reports whether track ptc leaves the GSB on side s.
func leavesOn(s rrgraph.Side, ptc int) bool {
	inc := ptc%2 == 0
	if s == rrgraph.SideTop || s == rrgraph.SideRight {
		return inc
	}
	return !inc
}

// connectSwitchBlocks drives every track leaving a GSB from the track of
// the same pair entering on each other side, and from every output pin
// facing the track's channel.
func (b *builder) connectSwitchBlocks() {
	for x := 0; x <= b.p.Width-2; x++ {
		for y := 0; y <= b.p.Height-2; y++ {
			for _, s := range rrgraph.Sides {
				out := gsbSide(x, y, s)
				for ptc, id := range b.tracks[out] {
					if !leavesOn(s, ptc) {
						continue
					}
					pair := ptc / 2
					for _, from := range rrgraph.Sides {
						if from == s {
							continue
						}
						in := b.tracks[gsbSide(x, y, from)]
						if len(in) == 0 {
							continue
						}
						inPTC := 2 * pair
						if leavesOn(from, inPTC) {
							inPTC++
						}
						b.g.MustAddEdge(in[inPTC], id, b.swRouting)
					}
					for _, opin := range b.opins[out] {
						b.g.MustAddEdge(opin, id, b.swRouting)
					}
				}
			}
		}
	}
}

// connectInputs drives every routable input pin from all tracks of the
// channel it faces.
func (b *builder) connectInputs() {
	for _, pin := range b.ipins {
		for _, track := range b.tracks[pin.channel] {
			b.g.MustAddEdge(track, pin.node, b.swIPin)
		}
	}
}

func (b *builder) pin(t rrgraph.NodeType, x, y int, port string, bit int) (rrgraph.NodeID, error) {
	tile := b.dev.Grid.Tile(grid.Coordinate{X: x, Y: y})
	if tile == nil {
		return 0, fmt.Errorf("fabricgen: no tile at (%d,%d)", x, y)
	}
	p, ok := tile.Port(port)
	if !ok {
		return 0, fmt.Errorf("fabricgen: tile %s has no port %s", tile.Name, port)
	}
	id, ok := b.g.FindPin(t, x, y, p.Pin(bit))
	if !ok {
		return 0, fmt.Errorf("fabricgen: no %s for %s.%s[%d] at (%d,%d)", t, tile.Name, port, bit, x, y)
	}
	return id, nil
}

func (b *builder) connectCarry() {
	for x := 1; x <= b.p.Width-2; x++ {
		for y := 1; y < b.p.Height-2; y++ {
			cout, err1 := b.pin(rrgraph.NodeOPin, x, y, "cout", 0)
			cin, err2 := b.pin(rrgraph.NodeIPin, x, y+1, "cin", 0)
			if err1 == nil && err2 == nil {
				b.g.MustAddEdge(cout, cin, b.swDelayless)
			}
		}
	}
}

// buildDesign places an input pad at (1,0) and a logic block at (1,1) and
// routes the pad to clb input I[2] through channel CHANX(1,0).
func (b *builder) buildDesign() error {
	d := b.dev
	pad := d.Clustering.AddBlock("io_in", TileIO, "in0")
	logic := d.Clustering.AddBlock("clb0", TileLogic, "lut0", "ff0")
	d.Placement.Place(pad, netlist.Location{X: 1, Y: 0})
	d.Placement.Place(logic, netlist.Location{X: 1, Y: 1})

	net := d.Clustering.AddNet("n0")
	opin, err := b.pin(rrgraph.NodeOPin, 1, 0, "inpad", 0)
	if err != nil {
		return err
	}
	ipin, err := b.pin(rrgraph.NodeIPin, 1, 1, "I", 2)
	if err != nil {
		return err
	}
	track := b.tracks[chanKey{t: rrgraph.NodeChanX, x: 1, y: 0}][0]
	d.Routing.AddRoute(net, opin, rrgraph.InvalidNode)
	d.Routing.AddRoute(net, track, opin)
	d.Routing.AddRoute(net, ipin, track)

	d.Timing = []timing.Arc{
		{From: "io_in.inpad", To: "clb0.I[2]", Delay: 1.5e-9},
		{From: "clb0.I[2]", To: "clb0.O[0]", Delay: 2.5e-9},
	}
	return nil
}
