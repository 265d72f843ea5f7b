// Package rrgsb extracts general switch blocks (GSBs) from a routing graph
// and groups structurally identical ones.
//
// A GSB at (x, y) owns the switch block at the top-right corner of tile
// (x, y) and the two connection blocks sharing its coordinate:
//
//	            TOP = CHANY(x, y+1)
//	                    |
//	LEFT = CHANX(x, y) -SB- RIGHT = CHANX(x+1, y)
//	                    |
//	           BOTTOM = CHANY(x, y)
//
// CBX feeds input pins from the LEFT channel, CBY from the BOTTOM channel.
// Tracks entering the switch block are IN ports, tracks leaving it are OUT
// ports; an OUT track that starts here records its drivers in a normal
// form relative to the GSB, so that two GSBs compare equal exactly when
// their fan patterns match track for track. Mirror images and rotations
// are distinct.
//
// DeviceRRGSB canonicalizes every GSB of a device by hashing the
// normalized topology and comparing exactly within a hash bucket.
package rrgsb
