package rrgraph

import (
	"github.com/pkg/errors"
)

// ErrBidirectional reports a routing graph with bi-directional tracks,
// which the switch-block model cannot represent.
var ErrBidirectional = errors.New("rrgraph: bi-directional routing is not supported")

// CheckSupported verifies that every routing track has a single direction.
// Only CHANX and CHANY nodes are inspected; pins and sources/sinks carry no
// direction. The returned error names the first offending node.
func CheckSupported(v View) error {
	for i := 0; i < v.NumNodes(); i++ {
		n := v.Node(NodeID(i))
		if !n.Type.IsChannel() {
			continue
		}
		if n.Direction == DirBi {
			return errors.Wrapf(ErrBidirectional, "%s node %d at (%d,%d)", n.Type, n.ID, n.XLow, n.YLow)
		}
	}
	return nil
}
