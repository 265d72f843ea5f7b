// Package devdump reads and writes device state files: the routing graph,
// grid, clustered netlist, placement, routing and timing arcs produced by
// the place-and-route flow, stored as s-expressions.
//
// A file is a single (device ...) form:
//
//	(device
//	  (tiletype clb (port I input 4) (port O output 2))
//	  (grid 5 5 (tile 1 1 clb) ...)
//	  (switch 0 L1_mux)
//	  (segment 0 L1 1)
//	  (node 0 CHANX INC 1 0 1 0 0 TOP 0)
//	  (edge 0 1 0)
//	  (block 0 clb0 clb (atoms lut0 ff0))
//	  (net 0 n0)
//	  (place 0 1 1 0)
//	  (route 0 12 -1)
//	  (arc "a" "b" 1.5e-9))
package devdump

import (
	"github.com/OpenTraceLab/fabriclink/pkg/grid"
	"github.com/OpenTraceLab/fabriclink/pkg/netlist"
	"github.com/OpenTraceLab/fabriclink/pkg/rrgraph"
	"github.com/OpenTraceLab/fabriclink/pkg/timing"
)

// Device is the complete implemented-device state consumed by linking.
type Device struct {
	Grid       *grid.Grid
	Graph      *rrgraph.Graph
	Clustering *netlist.Clustering
	Placement  *netlist.Placement
	Routing    *netlist.Routing
	Timing     []timing.Arc
}

// NewDevice returns an empty device on a width x height grid.
func NewDevice(width, height int) *Device {
	return &Device{
		Grid:       grid.New(width, height),
		Graph:      rrgraph.New(),
		Clustering: &netlist.Clustering{},
		Placement:  netlist.NewPlacement(),
		Routing:    netlist.NewRouting(),
	}
}
