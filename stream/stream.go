// Package stream defines the two flow kinds the CNC routes: hard real-time
// TSN streams and soft real-time AVB streams, plus the shared constants
// from spec.md §6.
package stream

import "math"

const (
	// MTU is the maximum payload size, in bytes, of a single TSN frame.
	// A TSN stream of Size bytes is split into ceil(Size/MTU) frames.
	MTU = 250

	// BitsPerByte converts a byte count to a bit count for bandwidth math.
	BitsPerByte = 8

	// MaxQueue is the number of priority queues available at each egress
	// port (ingress side of the next hop, in GCL terms).
	MaxQueue = 8

	// MaxK is the default cap on candidate paths precomputed per
	// (src,dst) pair by Yen's algorithm.
	MaxK = 20
)

// TSN describes a hard real-time stream requiring gated transmission
// windows on every traversed link.
//
// All time fields are in microseconds; Size is in bytes. Deadline is
// relative to Offset, and by construction Deadline <= Period (spec.md §3).
type TSN struct {
	Src, Dst int
	Size     int    // bytes
	Period   uint32 // microseconds
	Deadline uint32 // microseconds, relative to Offset
	Offset   uint32 // microseconds
}

// FrameCount returns ceil(Size/MTU), the number of frames one period of
// this stream is split into.
func (t TSN) FrameCount() int {
	return int(math.Ceil(float64(t.Size) / float64(MTU)))
}

// AVB describes a soft real-time stream with a worst-case-delay bound but
// no gated transmission window; it competes for link bandwidth under
// credit-based shaping.
type AVB struct {
	Src, Dst int
	Size     int    // bytes
	Period   uint32 // microseconds
	Deadline uint32 // microseconds
}
