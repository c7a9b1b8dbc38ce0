package lob

import (
	"fmt"
	"math"
)

// Audit walks the entire book and checks the structural invariants P1-P6.
// It has no teacher equivalent: it exists purely to make the book's
// internal bookkeeping verifiable from tests. P7 (trigger causality) is a
// property of an event trace rather than of a book snapshot, and is
// exercised instead by tests asserting on callback order. It returns one
// description per violation found; a nil/empty result means the book is
// consistent.
func (b *Book) Audit() []string {
	var problems []string

	problems = append(problems, auditOrderSide(b.bids, Bid)...)
	problems = append(problems, auditOrderSide(b.asks, Ask)...)

	problems = append(problems, auditTriggerSide(b.bidTriggers, Bid)...)
	problems = append(problems, auditTriggerSide(b.askTriggers, Ask)...)

	if !crossedBookOK(b) {
		problems = append(problems, fmt.Sprintf(
			"P3 violated: best_bid=%v crosses best_ask=%v", b.BestBid(), b.BestAsk()))
	}

	if b.deferralDepth != 0 {
		problems = append(problems, fmt.Sprintf(
			"P5 violated: deferral_depth=%d at audit time", b.deferralDepth))
	}

	return problems
}

func crossedBookOK(b *Book) bool {
	if b.BidDepth() == 0 || b.AskDepth() == 0 {
		return true
	}
	return b.BestBid() < b.BestAsk()
}

func nearlyEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= floatTolerance*scale
}

// auditOrderSide checks P1 (aggregate consistency), P2 (AON-index parity),
// P4 (locator validity), and P6 (time priority is exactly the order list
// traversal order, so this mostly double-checks the back-pointers that
// uphold it) for every level on one side.
func auditOrderSide(tree *priceTree[*orderLevel], side Side) []string {
	var problems []string

	tree.ascend(func(price float64, level *orderLevel) bool {
		var normalSum, aonSum float64
		var aonInFIFOOrder []*Order

		for e := level.orders.Front(); e != nil; e = e.Next() {
			o, ok := e.Value.(*Order)
			if !ok || o == nil {
				problems = append(problems, fmt.Sprintf(
					"P4 violated: non-order element in level price=%v side=%v", price, side))
				continue
			}
			if o.level != level {
				problems = append(problems, fmt.Sprintf(
					"P4 violated: order at price=%v side=%v has stale level back-pointer", price, side))
			}
			if o.price != price {
				problems = append(problems, fmt.Sprintf(
					"P4 violated: order price=%v does not match level price=%v", o.price, price))
			}
			if o.side != side {
				problems = append(problems, fmt.Sprintf(
					"P4 violated: order side=%v does not match level side=%v", o.side, side))
			}

			if o.aon {
				aonSum += o.quantity
				aonInFIFOOrder = append(aonInFIFOOrder, o)
				if o.aonElem == nil {
					problems = append(problems, fmt.Sprintf(
						"P2 violated: AON order at price=%v side=%v has no aon_locator", price, side))
				} else if o.aonElem.Value.(*Order) != o {
					problems = append(problems, fmt.Sprintf(
						"P2 violated: aon_locator at price=%v side=%v resolves to a different order", price, side))
				}
			} else {
				normalSum += o.quantity
			}
		}

		if !nearlyEqual(normalSum, level.normalQty) {
			problems = append(problems, fmt.Sprintf(
				"P1 violated: price=%v side=%v normal_qty=%v sum=%v", price, side, level.normalQty, normalSum))
		}
		if !nearlyEqual(aonSum, level.aonQty) {
			problems = append(problems, fmt.Sprintf(
				"P1 violated: price=%v side=%v aon_qty=%v sum=%v", price, side, level.aonQty, aonSum))
		}

		problems = append(problems, auditAONIndexOrder(level, aonInFIFOOrder, price, side)...)

		return true
	})

	return problems
}

func auditAONIndexOrder(level *orderLevel, wantOrder []*Order, price float64, side Side) []string {
	var problems []string

	var gotOrder []*Order
	for e := level.aonIndex.Front(); e != nil; e = e.Next() {
		o, ok := e.Value.(*Order)
		if !ok || o == nil {
			problems = append(problems, fmt.Sprintf(
				"P2 violated: non-order element in AON index at price=%v side=%v", price, side))
			continue
		}
		gotOrder = append(gotOrder, o)
	}

	if len(gotOrder) != len(wantOrder) {
		problems = append(problems, fmt.Sprintf(
			"P2 violated: AON index length %d does not match FIFO AON count %d at price=%v side=%v",
			len(gotOrder), len(wantOrder), price, side))
		return problems
	}

	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			problems = append(problems, fmt.Sprintf(
				"P2/P6 violated: AON index order diverges from FIFO order at position %d, price=%v side=%v",
				i, price, side))
			break
		}
	}

	return problems
}

func auditTriggerSide(tree *priceTree[*triggerLevel], side Side) []string {
	var problems []string

	tree.ascend(func(price float64, level *triggerLevel) bool {
		for e := level.triggers.Front(); e != nil; e = e.Next() {
			t, ok := e.Value.(*Trigger)
			if !ok || t == nil {
				problems = append(problems, fmt.Sprintf(
					"P4 violated: non-trigger element in trigger level price=%v side=%v", price, side))
				continue
			}
			if t.level != level {
				problems = append(problems, fmt.Sprintf(
					"P4 violated: trigger at price=%v side=%v has stale level back-pointer", price, side))
			}
			if t.price != price {
				problems = append(problems, fmt.Sprintf(
					"P4 violated: trigger price=%v does not match level price=%v", t.price, price))
			}
			if t.side != side {
				problems = append(problems, fmt.Sprintf(
					"P4 violated: trigger side=%v does not match level side=%v", t.side, side))
			}
			if !t.queued {
				problems = append(problems, fmt.Sprintf(
					"P4 violated: resident trigger at price=%v side=%v has queued=false", price, side))
			}
		}
		return true
	})

	return problems
}
