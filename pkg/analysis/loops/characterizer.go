// Package loops characterizes the loops of a function: nesting depth, trip
// count, backedge-taken range and an approximate stride.
package loops

import (
	"log/slog"

	"fortio.org/safecast"

	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
)

// Result is the loop characterization of one function.
type Result struct {
	Loops               []models.LoopRecord
	TotalInstructions   uint64
	NonLoopInstructions uint64
}

// Characterizer walks the blocks of a function against the host's loop
// nest and scalar evolution views.
type Characterizer struct {
	logger *slog.Logger
}

// NewCharacterizer creates a loop characterizer.
func NewCharacterizer(logger *slog.Logger) *Characterizer {
	return &Characterizer{logger: logger}
}

// Characterize visits every block of fn in order. The first block seen for
// each innermost loop produces that loop's record; blocks outside any loop
// count toward the non-loop instructions. Missing analyses degrade to an
// empty loop list, never to an error.
func (c *Characterizer) Characterize(fn ir.Function, analyses ir.Analyses) Result {
	var res Result
	seen := make(map[ir.Loop]struct{})
	res.Loops = []models.LoopRecord{}

	for _, b := range fn.Blocks() {
		n := uint64(len(b.Instructions()))
		res.TotalInstructions += n

		var loop ir.Loop
		inLoop := false
		if analyses.Loops != nil {
			loop, inLoop = analyses.Loops.LoopFor(b)
		}
		if !inLoop || loop == nil {
			res.NonLoopInstructions += n
			continue
		}

		if _, ok := seen[loop]; ok {
			continue
		}
		seen[loop] = struct{}{}
		res.Loops = append(res.Loops, c.record(loop, b, analyses.SCEV))
	}

	return res
}

func (c *Characterizer) record(loop ir.Loop, first ir.Block, scev ir.ScalarEvolution) models.LoopRecord {
	header := first.Name()
	if h := loop.Header(); h != nil {
		header = h.Name()
	}

	rec := models.LoopRecord{
		Header:    header,
		Depth:     loop.Depth(),
		BackEdges: loop.NumBackEdges(),
		Backedge:  toBackedgeRange(ir.FullRange()),
	}
	if scev == nil {
		c.logger.Debug("No scalar evolution for loop", "header", header)
		return rec
	}

	trip, hasTrip := scev.SmallConstantTripCount(loop)
	if hasTrip {
		rec.TripCount = &trip
	}

	rng := ir.FullRange()
	if expr := scev.BackedgeTakenCount(loop); expr != nil {
		rng = scev.SignedRange(expr)
	}
	rec.Backedge = toBackedgeRange(rng)

	if stride, ok := EstimateStride(rng, trip, hasTrip); ok {
		rec.Stride = &stride
	} else {
		c.logger.Debug("Stride unavailable", "header", header, "trip_count", trip, "has_trip", hasTrip, "range", rng.String())
	}
	return rec
}

// EstimateStride divides the upper bound of the backedge-taken range by the
// trip count. It is a heuristic for the average per-iteration delta and is
// only defined for a positive constant trip count and a bounded range.
func EstimateStride(rng ir.Range, trip uint64, hasTrip bool) (int64, bool) {
	if !hasTrip || trip == 0 || rng.UpperUnbounded {
		return 0, false
	}
	divisor, err := safecast.Conv[int64](trip)
	if err != nil {
		// The trip count exceeds any representable upper bound.
		return 0, true
	}
	return rng.Upper / divisor, true
}

func toBackedgeRange(r ir.Range) models.BackedgeRange {
	return models.BackedgeRange{
		Lower:          r.Lower,
		Upper:          r.Upper,
		LowerUnbounded: r.LowerUnbounded,
		UpperUnbounded: r.UpperUnbounded,
	}
}
