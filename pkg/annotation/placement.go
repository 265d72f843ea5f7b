package annotation

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/fabriclink/pkg/grid"
	"github.com/OpenTraceLab/fabriclink/pkg/netlist"
)

// PlacedBlock is a clustered block at its grid location.
type PlacedBlock struct {
	Location netlist.Location
	Block    netlist.ClusterBlock
}

// PlacementAnnotation maps grid locations to the blocks placed there.
type PlacementAnnotation struct {
	byLocation map[netlist.Location]netlist.ClusterBlock
}

// AnnotatePlacement builds the location-to-block map. A block placed
// outside the grid, on a tile of another type, or on an occupied location
// is malformed placement data.
func AnnotatePlacement(g *grid.Grid, clustering *netlist.Clustering, placement *netlist.Placement) (*PlacementAnnotation, error) {
	ann := &PlacementAnnotation{byLocation: make(map[netlist.Location]netlist.ClusterBlock)}
	for _, id := range placement.Blocks() {
		block, ok := clustering.Block(id)
		if !ok {
			return nil, errors.Errorf("annotation: placement references unknown block %d", id)
		}
		loc, _ := placement.Location(id)
		tile := g.Tile(grid.Coordinate{X: loc.X, Y: loc.Y})
		if tile == nil {
			return nil, errors.Errorf("annotation: block %s placed at %s outside any tile", block.Name, loc)
		}
		if tile.Name != block.TileType {
			return nil, errors.Errorf("annotation: block %s of type %s placed on %s tile at %s",
				block.Name, block.TileType, tile.Name, loc)
		}
		if other, taken := ann.byLocation[loc]; taken {
			return nil, errors.Errorf("annotation: blocks %s and %s both placed at %s", other.Name, block.Name, loc)
		}
		ann.byLocation[loc] = block
	}
	return ann, nil
}

// Block returns the block placed at a location.
func (a *PlacementAnnotation) Block(loc netlist.Location) (netlist.ClusterBlock, bool) {
	b, ok := a.byLocation[loc]
	return b, ok
}

// Placed returns every placed block ordered by x, y and subtile.
func (a *PlacementAnnotation) Placed() []PlacedBlock {
	out := make([]PlacedBlock, 0, len(a.byLocation))
	for loc, b := range a.byLocation {
		out = append(out, PlacedBlock{Location: loc, Block: b})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Subtile < b.Subtile
	})
	return out
}
