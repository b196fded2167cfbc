package models

import "fmt"

// BackedgeRange is the signed range of a loop's backedge-taken count.
// Upper is exclusive.
type BackedgeRange struct {
	Lower          int64 `json:"lower" yaml:"lower" msgpack:"lower"`
	Upper          int64 `json:"upper" yaml:"upper" msgpack:"upper"`
	LowerUnbounded bool  `json:"lower_unbounded,omitempty" yaml:"lower_unbounded,omitempty" msgpack:"lower_unbounded,omitempty"`
	UpperUnbounded bool  `json:"upper_unbounded,omitempty" yaml:"upper_unbounded,omitempty" msgpack:"upper_unbounded,omitempty"`
}

// LoopRecord characterizes one loop of a function
type LoopRecord struct {
	Header    string        `json:"header" yaml:"header" msgpack:"header"`
	Depth     int           `json:"depth" yaml:"depth" msgpack:"depth"`
	BackEdges int           `json:"back_edges" yaml:"back_edges" msgpack:"back_edges"`
	TripCount *uint64       `json:"trip_count" yaml:"trip_count" msgpack:"trip_count"` // nil: non-constant
	Backedge  BackedgeRange `json:"backedge_range" yaml:"backedge_range" msgpack:"backedge_range"`
	Stride    *int64        `json:"stride" yaml:"stride" msgpack:"stride"` // nil: unavailable
}

// TripCountString renders the trip count, or "non-constant".
func (l LoopRecord) TripCountString() string {
	if l.TripCount == nil {
		return "non-constant"
	}
	return fmt.Sprintf("%d", *l.TripCount)
}

// StrideString renders the stride, or "unavailable".
func (l LoopRecord) StrideString() string {
	if l.Stride == nil {
		return "unavailable"
	}
	return fmt.Sprintf("%d", *l.Stride)
}
