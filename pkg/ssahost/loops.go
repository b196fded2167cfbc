package ssahost

import (
	"math"
	"sort"

	"golang.org/x/tools/go/ssa"

	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
)

// Loop is a natural loop of an SSA function.
type Loop struct {
	header  *Block
	latches []*ssa.BasicBlock
	body    map[*ssa.BasicBlock]bool
	parent  *Loop
	depth   int
}

func (l *Loop) Header() ir.Block  { return l.header }
func (l *Loop) Depth() int        { return l.depth }
func (l *Loop) NumBackEdges() int { return len(l.latches) }

// Contains reports whether b is in the loop body, nested loops included.
func (l *Loop) Contains(b *ssa.BasicBlock) bool {
	return l.body[b]
}

func (l *Loop) isLatch(b *ssa.BasicBlock) bool {
	for _, latch := range l.latches {
		if latch == b {
			return true
		}
	}
	return false
}

// exits returns the body blocks with a successor outside the loop.
func (l *Loop) exits() []*ssa.BasicBlock {
	var out []*ssa.BasicBlock
	for b := range l.body {
		for _, succ := range b.Succs {
			if !l.body[succ] {
				out = append(out, b)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// LoopNest is the loop forest of one function.
type LoopNest struct {
	loops     []*Loop
	innermost map[*ssa.BasicBlock]*Loop
}

// Loops returns every loop of the function ordered by header index.
func (n *LoopNest) Loops() []*Loop {
	return n.loops
}

func (n *LoopNest) LoopFor(b ir.Block) (ir.Loop, bool) {
	blk, ok := b.(*Block)
	if !ok {
		return nil, false
	}
	l, ok := n.innermost[blk.b]
	if !ok {
		return nil, false
	}
	return l, true
}

// detectLoops finds natural loops from back edges B→H where H dominates B.
// Latches sharing a header form one loop. A loop's parent is the smallest
// other loop whose body holds its header.
func detectLoops(fn *Function) *LoopNest {
	nest := &LoopNest{innermost: make(map[*ssa.BasicBlock]*Loop)}
	sfn := fn.fn
	if len(sfn.Blocks) == 0 {
		return nest
	}

	latches := make(map[*ssa.BasicBlock][]*ssa.BasicBlock)
	var headers []*ssa.BasicBlock
	for _, b := range sfn.Blocks {
		for _, succ := range b.Succs {
			if succ == sfn.Recover {
				continue
			}
			if succ.Dominates(b) {
				if _, ok := latches[succ]; !ok {
					headers = append(headers, succ)
				}
				latches[succ] = append(latches[succ], b)
			}
		}
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].Index < headers[j].Index })

	for _, h := range headers {
		l := &Loop{
			header:  fn.block(h),
			latches: latches[h],
			body:    loopBody(h, latches[h]),
		}
		nest.loops = append(nest.loops, l)
	}

	for _, child := range nest.loops {
		best := math.MaxInt
		for _, cand := range nest.loops {
			if cand == child || !cand.body[child.header.b] {
				continue
			}
			if len(cand.body) < best {
				best = len(cand.body)
				child.parent = cand
			}
		}
	}

	for _, l := range nest.loops {
		l.depth = 1
		for p := l.parent; p != nil; p = p.parent {
			l.depth++
		}
	}

	for _, b := range sfn.Blocks {
		var inner *Loop
		for _, l := range nest.loops {
			if l.body[b] && (inner == nil || len(l.body) < len(inner.body)) {
				inner = l
			}
		}
		if inner != nil {
			nest.innermost[b] = inner
		}
	}

	return nest
}

// loopBody walks predecessors back from the latches until the header.
func loopBody(header *ssa.BasicBlock, latches []*ssa.BasicBlock) map[*ssa.BasicBlock]bool {
	body := map[*ssa.BasicBlock]bool{header: true}
	var worklist []*ssa.BasicBlock
	for _, l := range latches {
		if !body[l] {
			body[l] = true
			worklist = append(worklist, l)
		}
	}

	for len(worklist) > 0 {
		curr := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, pred := range curr.Preds {
			if !body[pred] {
				body[pred] = true
				worklist = append(worklist, pred)
			}
		}
	}
	return body
}
