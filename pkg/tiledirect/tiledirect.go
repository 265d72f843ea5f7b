// Package tiledirect enumerates the point-to-point links between tiles that
// architecture direct rules declare, such as carry chains.
package tiledirect

import (
	"fmt"

	"github.com/OpenTraceLab/fabriclink/pkg/arch"
	"github.com/OpenTraceLab/fabriclink/pkg/grid"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
)

// TilePin is one pin of a placed tile.
type TilePin struct {
	Coordinate grid.Coordinate
	Tile       string
	Port       string
	Bit        int
	// Pin is the tile pin number, the PTC of the matching OPIN/IPIN node.
	Pin int
}

func (p TilePin) String() string {
	return fmt.Sprintf("%s%s.%s[%d]", p.Tile, p.Coordinate, p.Port, p.Bit)
}

// Connection is one bit of a direct link.
type Connection struct {
	Rule         string
	From         TilePin
	To           TilePin
	CircuitModel *arch.CircuitModel
	// BypassRouting is set when the routing graph does not model the link,
	// so the fabric must wire it outside the routing resources.
	BypassRouting bool
}

// Index holds every direct connection of a device in rule order, then by
// source location.
type Index struct {
	conns  []Connection
	byRule map[string][]int
}

// Connections returns all connections.
func (ix *Index) Connections() []Connection {
	out := make([]Connection, len(ix.conns))
	copy(out, ix.conns)
	return out
}

// Rule returns the connections created by one rule.
func (ix *Index) Rule(name string) []Connection {
	var out []Connection
	for _, i := range ix.byRule[name] {
		out = append(out, ix.conns[i])
	}
	return out
}

// Len returns the number of connections.
func (ix *Index) Len() int { return len(ix.conns) }

// Build expands the direct rules of a against the device grid. Rules whose
// tile types are missing or never placed, whose ports do not exist or run
// the wrong way, or whose ports differ in width are skipped with a warning.
// A rule whose offset matches no location is valid.
func Build(a *arch.Architecture, g *grid.Grid, rr rrgraph.View) (*Index, []string) {
	ix := &Index{byRule: make(map[string][]int)}
	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, "tiledirect: "+fmt.Sprintf(format, args...))
	}

	for _, rule := range a.Directs {
		from, ok := g.TileType(rule.FromTile)
		if !ok {
			warn("rule %s: tile type %s is not in the device", rule.Name, rule.FromTile)
			continue
		}
		to, ok := g.TileType(rule.ToTile)
		if !ok {
			warn("rule %s: tile type %s is not in the device", rule.Name, rule.ToTile)
			continue
		}
		if unplaced := unplacedType(g, from.Name, to.Name); unplaced != "" {
			warn("rule %s: tile type %s is not placed in the device", rule.Name, unplaced)
			continue
		}
		fromPort, ok := from.Port(rule.FromPort)
		if !ok {
			warn("rule %s: tile %s has no port %s", rule.Name, from.Name, rule.FromPort)
			continue
		}
		toPort, ok := to.Port(rule.ToPort)
		if !ok {
			warn("rule %s: tile %s has no port %s", rule.Name, to.Name, rule.ToPort)
			continue
		}
		if fromPort.Direction != grid.PortOutput {
			warn("rule %s: %s.%s has direction %s, want output", rule.Name, from.Name, fromPort.Name, fromPort.Direction)
			continue
		}
		if toPort.Direction != grid.PortInput {
			warn("rule %s: %s.%s has direction %s, want input", rule.Name, to.Name, toPort.Name, toPort.Direction)
			continue
		}
		if fromPort.Width != toPort.Width {
			warn("rule %s: %s.%s has %d pins, %s.%s has %d", rule.Name,
				from.Name, fromPort.Name, fromPort.Width, to.Name, toPort.Name, toPort.Width)
			continue
		}

		model := modelFor(a, rule, warn)
		for _, src := range g.Locations(from.Name) {
			dst := src.Offset(rule.XOffset, rule.YOffset)
			if t := g.Tile(dst); t == nil || t.Name != to.Name {
				continue
			}
			for bit := 0; bit < fromPort.Width; bit++ {
				c := Connection{
					Rule:         rule.Name,
					From:         TilePin{Coordinate: src, Tile: from.Name, Port: fromPort.Name, Bit: bit, Pin: fromPort.Pin(bit)},
					To:           TilePin{Coordinate: dst, Tile: to.Name, Port: toPort.Name, Bit: bit, Pin: toPort.Pin(bit)},
					CircuitModel: model,
				}
				c.BypassRouting = !routed(rr, c)
				ix.byRule[rule.Name] = append(ix.byRule[rule.Name], len(ix.conns))
				ix.conns = append(ix.conns, c)
			}
		}
	}
	return ix, warnings
}

func unplacedType(g *grid.Grid, names ...string) string {
	for _, name := range names {
		if len(g.Locations(name)) == 0 {
			return name
		}
	}
	return ""
}

func modelFor(a *arch.Architecture, rule arch.DirectRule, warn func(string, ...interface{})) *arch.CircuitModel {
	if rule.CircuitModel != "" {
		if m, ok := a.Circuits.CircuitModel(rule.CircuitModel); ok {
			return m
		}
		warn("rule %s: unknown circuit model %q", rule.Name, rule.CircuitModel)
	}
	m, _ := a.Circuits.Default(arch.ModelWire)
	return m
}

// routed reports whether the routing graph carries an OPIN to IPIN edge
// for c.
func routed(rr rrgraph.View, c Connection) bool {
	opin, ok := rr.FindPin(rrgraph.NodeOPin, c.From.Coordinate.X, c.From.Coordinate.Y, c.From.Pin)
	if !ok {
		return false
	}
	ipin, ok := rr.FindPin(rrgraph.NodeIPin, c.To.Coordinate.X, c.To.Coordinate.Y, c.To.Pin)
	if !ok {
		return false
	}
	for _, e := range rr.OutEdges(opin) {
		if rr.Edge(e).To == ipin {
			return true
		}
	}
	return false
}
