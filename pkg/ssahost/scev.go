package ssahost

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"math/big"

	"golang.org/x/tools/go/ssa"

	"github.com/smith-xyz/golang-accel-profiler/pkg/ir"
)

// inductionVar is a header phi that starts at a constant and moves by a
// constant step on every back edge.
type inductionVar struct {
	phi   *ssa.Phi
	start *big.Int
	step  *big.Int
}

// exitTest is the exiting block's loop-continue condition, normalized to
// "phi <op> bound".
type exitTest struct {
	op    token.Token
	bound ssa.Value
}

// countExpr is the backedge-taken count of one loop. A three-clause loop
// tests its condition in the header, so count and trip are equal. A
// range-over-int loop tests at the latch after the body has already run,
// so its trip is one more than the back edges taken.
type countExpr struct {
	loop  *Loop
	iv    *inductionVar
	count *big.Int
	trip  *big.Int
}

func (e *countExpr) String() string {
	switch {
	case e.count != nil:
		return e.count.String()
	case e.iv != nil:
		return fmt.Sprintf("{%s,+,%s}<%s>", e.iv.start, e.iv.step, e.loop.header.Name())
	default:
		return "<unknown>"
	}
}

// Evolution answers trip-count queries for the loops of one function.
type Evolution struct {
	maxSmall uint64
	counts   map[*Loop]*countExpr
}

func newEvolution(nest *LoopNest, maxSmall uint64) *Evolution {
	ev := &Evolution{maxSmall: maxSmall, counts: make(map[*Loop]*countExpr)}
	for _, l := range nest.loops {
		ev.counts[l] = analyzeLoop(l)
	}
	return ev
}

func (ev *Evolution) SmallConstantTripCount(l ir.Loop) (uint64, bool) {
	lp, ok := l.(*Loop)
	if !ok {
		return 0, false
	}
	e := ev.counts[lp]
	if e == nil || e.trip == nil || !e.trip.IsUint64() {
		return 0, false
	}
	n := e.trip.Uint64()
	if n == 0 || n > ev.maxSmall {
		return 0, false
	}
	return n, true
}

func (ev *Evolution) BackedgeTakenCount(l ir.Loop) ir.Expr {
	lp, ok := l.(*Loop)
	if !ok {
		return nil
	}
	if e := ev.counts[lp]; e != nil {
		return e
	}
	return &countExpr{loop: lp}
}

// SignedRange bounds a backedge-taken count. A constant count is a single
// value; a counted loop with an unknown bound is limited by how far its
// induction variable can move before it wraps.
func (ev *Evolution) SignedRange(e ir.Expr) ir.Range {
	ce, ok := e.(*countExpr)
	if !ok {
		return ir.FullRange()
	}
	if ce.count != nil {
		if !ce.count.IsInt64() || ce.count.Int64() == maxInt64 {
			return ir.Range{Lower: 0, UpperUnbounded: true}
		}
		return ir.ConstantRange(ce.count.Int64())
	}
	if ce.iv != nil {
		if hi, ok := typeSpan(ce.iv.phi.Type()); ok {
			return ir.Range{Lower: 0, Upper: hi}
		}
		return ir.Range{Lower: 0, UpperUnbounded: true}
	}
	return ir.FullRange()
}

const maxInt64 = 1<<63 - 1

// typeSpan is the number of values of an integer type narrower than 64 bits.
func typeSpan(t types.Type) (int64, bool) {
	b, ok := t.Underlying().(*types.Basic)
	if !ok || b.Info()&types.IsInteger == 0 {
		return 0, false
	}
	switch b.Kind() {
	case types.Int8, types.Uint8:
		return 1 << 8, true
	case types.Int16, types.Uint16:
		return 1 << 16, true
	case types.Int32, types.Uint32:
		return 1 << 32, true
	default:
		return 0, false
	}
}

// analyzeLoop recognizes loops of the form
//
//	for i := c0; i <op> bound; i += step { ... }
//
// tested in the header, and range-over-int loops tested at the latch.
// Either way the loop must have a single exiting block.
func analyzeLoop(l *Loop) *countExpr {
	res := &countExpr{loop: l}
	header := l.header.b

	exits := l.exits()
	if len(exits) != 1 {
		return res
	}
	exiting := exits[0]
	latch := l.isLatch(exiting)
	if (exiting != header && !latch) || len(exiting.Instrs) == 0 {
		return res
	}
	cond, ok := exiting.Instrs[len(exiting.Instrs)-1].(*ssa.If)
	if !ok || len(exiting.Succs) != 2 {
		return res
	}
	cmp, ok := cond.Cond.(*ssa.BinOp)
	if !ok {
		return res
	}

	var test exitTest
	phi, offset, ok := ivOperand(cmp.X, l)
	if ok {
		test = exitTest{op: cmp.Op, bound: cmp.Y}
	} else if phi, offset, ok = ivOperand(cmp.Y, l); ok {
		test = exitTest{op: swapOp(cmp.Op), bound: cmp.X}
	} else {
		return res
	}

	// The false edge staying in the loop means the loop continues while
	// the comparison fails.
	switch {
	case l.body[exiting.Succs[0]] && !l.body[exiting.Succs[1]]:
	case !l.body[exiting.Succs[0]] && l.body[exiting.Succs[1]]:
		test.op = negateOp(test.op)
	default:
		return res
	}

	iv := inductionOf(phi, l)
	if iv == nil {
		return res
	}
	res.iv = iv

	bound, ok := intConst(test.bound)
	if !ok {
		return res
	}
	first := new(big.Int).Add(iv.start, offset)
	n := iterations(first, iv.step, test.op, bound)
	if n == nil {
		return res
	}
	// The value that fails the test must still fit the variable's type,
	// otherwise the loop wraps around instead of exiting.
	last := new(big.Int).Mul(n, iv.step)
	last.Add(last, first)
	if !fitsType(last, phi.Type()) {
		return res
	}

	res.count = n
	res.trip = n
	if latch {
		// The body ran once before the first test. The entry guard of a
		// range-over-int loop checks the start value itself.
		res.trip = new(big.Int).Add(n, big.NewInt(1))
		if offset.Cmp(iv.step) == 0 {
			if pre := iterations(iv.start, iv.step, test.op, bound); pre != nil && pre.Sign() == 0 {
				res.count = new(big.Int)
				res.trip = new(big.Int)
			}
		}
	}
	return res
}

// ivOperand matches a comparison operand that is a header phi, or a header
// phi plus or minus a constant computed anywhere in the loop as
// range-over-int loops produce.
func ivOperand(v ssa.Value, l *Loop) (*ssa.Phi, *big.Int, bool) {
	header := l.header.b
	if phi, ok := v.(*ssa.Phi); ok && phi.Block() == header {
		return phi, new(big.Int), true
	}
	op, ok := v.(*ssa.BinOp)
	if !ok || !l.body[op.Block()] {
		return nil, nil, false
	}
	phi, ok := op.X.(*ssa.Phi)
	if !ok {
		phi, ok = op.Y.(*ssa.Phi)
	}
	if !ok || phi.Block() != header {
		return nil, nil, false
	}
	off, ok := stepOf(op, phi)
	if !ok {
		return nil, nil, false
	}
	return phi, off, true
}

// fitsType reports whether v is representable in the integer type t.
func fitsType(v *big.Int, t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	var bits uint
	switch b.Kind() {
	case types.Int8, types.Uint8:
		bits = 8
	case types.Int16, types.Uint16:
		bits = 16
	case types.Int32, types.Uint32:
		bits = 32
	default:
		bits = 64
	}
	var lo, hi *big.Int
	if b.Info()&types.IsUnsigned != 0 {
		lo = new(big.Int)
		hi = new(big.Int).Lsh(big.NewInt(1), bits)
	} else {
		lo = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), bits-1))
		hi = new(big.Int).Lsh(big.NewInt(1), bits-1)
	}
	return v.Cmp(lo) >= 0 && v.Cmp(hi) < 0
}

// inductionOf matches a phi whose entry edges carry one constant and whose
// back edges all carry phi ± the same constant.
func inductionOf(phi *ssa.Phi, l *Loop) *inductionVar {
	if b, ok := phi.Type().Underlying().(*types.Basic); !ok || b.Info()&types.IsInteger == 0 {
		return nil
	}

	var start, step *big.Int
	header := phi.Block()
	for i, edge := range phi.Edges {
		pred := header.Preds[i]
		if l.body[pred] {
			s, ok := stepOf(edge, phi)
			if !ok || (step != nil && s.Cmp(step) != 0) {
				return nil
			}
			step = s
			continue
		}
		c, ok := intConst(edge)
		if !ok || (start != nil && c.Cmp(start) != 0) {
			return nil
		}
		start = c
	}
	if start == nil || step == nil || step.Sign() == 0 {
		return nil
	}
	return &inductionVar{phi: phi, start: start, step: step}
}

func stepOf(v ssa.Value, phi *ssa.Phi) (*big.Int, bool) {
	op, ok := v.(*ssa.BinOp)
	if !ok {
		return nil, false
	}
	switch op.Op {
	case token.ADD:
		if op.X == phi {
			return intConst(op.Y)
		}
		if op.Y == phi {
			return intConst(op.X)
		}
	case token.SUB:
		if op.X == phi {
			c, ok := intConst(op.Y)
			if !ok {
				return nil, false
			}
			return c.Neg(c), true
		}
	}
	return nil, false
}

func intConst(v ssa.Value) (*big.Int, bool) {
	c, ok := v.(*ssa.Const)
	if !ok || c.Value == nil || c.Value.Kind() != constant.Int {
		return nil, false
	}
	n, ok := new(big.Int).SetString(c.Value.ExactString(), 10)
	return n, ok
}

// iterations counts how many times "i <op> bound" holds for i = start,
// start+step, ... before it first fails. It returns nil when the loop
// would not terminate without wrapping.
func iterations(start, step *big.Int, op token.Token, bound *big.Int) *big.Int {
	zero := new(big.Int)
	dist := new(big.Int).Sub(bound, start)
	up := step.Sign() > 0
	absStep := new(big.Int).Abs(step)

	switch op {
	case token.LSS, token.LEQ:
		if !up {
			return nil
		}
		if op == token.LEQ {
			dist.Add(dist, big.NewInt(1))
		}
		if dist.Sign() <= 0 {
			return zero
		}
		return ceilDiv(dist, absStep)

	case token.GTR, token.GEQ:
		if up {
			return nil
		}
		dist.Neg(dist)
		if op == token.GEQ {
			dist.Add(dist, big.NewInt(1))
		}
		if dist.Sign() <= 0 {
			return zero
		}
		return ceilDiv(dist, absStep)

	case token.NEQ:
		q, r := new(big.Int).QuoRem(dist, step, new(big.Int))
		if r.Sign() != 0 || q.Sign() < 0 {
			return nil
		}
		return q
	}
	return nil
}

func ceilDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func swapOp(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GTR
	case token.LEQ:
		return token.GEQ
	case token.GTR:
		return token.LSS
	case token.GEQ:
		return token.LEQ
	}
	return op
}

func negateOp(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GEQ
	case token.LEQ:
		return token.GTR
	case token.GTR:
		return token.LEQ
	case token.GEQ:
		return token.LSS
	case token.EQL:
		return token.NEQ
	case token.NEQ:
		return token.EQL
	}
	return op
}
