package lob

import "container/list"

// orderLevel is the FIFO of resting orders at one exact price, plus the
// aggregate bookkeeping spec.md §3/§4.2 requires: normalQty covers
// non-AON members (partially fillable), aonQty covers AON members
// (fillable only in full). aonIndex is a secondary FIFO over just the AON
// members, in the same relative order as they appear in orders; each AON
// order holds its own *list.Element into aonIndex (Order.aonElem) so
// removal from the index is O(1) rather than the O(n) linear search the
// source engine performs (spec.md §9, "AON index with O(1) removal").
type orderLevel struct {
	price     float64
	orders    list.List // of *Order
	aonIndex  list.List // of *Order, subsequence of orders
	normalQty float64
	aonQty    float64
}

func newOrderLevel(price float64) *orderLevel {
	return &orderLevel{price: price}
}

func (l *orderLevel) isEmpty() bool { return l.orders.Len() == 0 }

// insert appends o to the FIFO, updating aggregates and the AON index as
// needed, and wires o's back-pointers.
func (l *orderLevel) insert(o *Order) {
	o.elem = l.orders.PushBack(o)
	o.level = l

	if o.aon {
		l.aonQty += o.quantity
		o.aonElem = l.aonIndex.PushBack(o)
	} else {
		l.normalQty += o.quantity
	}
}

// insertAONPreservingOrder inserts o (already present in the main FIFO at
// o.elem) into the AON index at the position that preserves price-time
// priority among AON members: immediately after the nearest preceding AON
// member in the main FIFO, or at the head if there is none (spec.md
// §4.4.3).
func (l *orderLevel) insertAONPreservingOrder(o *Order) *list.Element {
	for e := o.elem.Prev(); e != nil; e = e.Prev() {
		prior := e.Value.(*Order)
		if prior.aon {
			return l.aonIndex.InsertAfter(o, prior.aonElem)
		}
	}
	return l.aonIndex.PushFront(o)
}

// erase removes o from the level, updating aggregates and clearing o's
// queued flag. It does not touch o.book or the level's presence in the
// book's side map; callers handle that.
func (l *orderLevel) erase(o *Order) {
	if o.aon {
		l.aonIndex.Remove(o.aonElem)
		l.aonQty -= o.quantity
		o.aonElem = nil
	} else {
		l.normalQty -= o.quantity
	}

	l.orders.Remove(o.elem)
	o.elem = nil
	o.level = nil
	o.queued = false
}

func (l *orderLevel) adjustNormal(delta float64) { l.normalQty += delta }
func (l *orderLevel) adjustAON(delta float64)    { l.aonQty += delta }

// simulateTrade is the pure, non-mutating predicate used by AON
// fillability probing (spec.md §4.1.2): it walks the level's FIFO as if
// quantity were being consumed by an inbound order and returns the
// quantity remaining unfilled. A non-AON member whose quantity exceeds the
// remaining amount represents a partial-fill opportunity and makes the
// level fully absorb the remainder (returns 0); an AON member in the same
// situation is skipped, since it cannot be partially filled.
func (l *orderLevel) simulateTrade(quantity float64) float64 {
	total := l.normalQty + l.aonQty
	if quantity >= total {
		return quantity - total
	}

	remaining := quantity
	for e := l.orders.Front(); e != nil; e = e.Next() {
		o := e.Value.(*Order)
		if remaining >= o.quantity {
			remaining -= o.quantity
		} else if !o.aon {
			return 0
		}
		// AON member with quantity > remaining: skip, remaining unchanged.
	}

	return remaining
}

// trade executes an inbound order against this level's FIFO, mutating both
// sides, firing paired OnTraded callbacks (resting first, then incoming,
// per spec.md §4.4.4), and returns the total quantity traded at this
// level. AON members are never partially filled: if the inbound's residual
// quantity is smaller than an AON member's quantity, that member is
// skipped and the walk continues to the next (non-AON) member, which may
// still absorb the residual (spec.md §4.1.1).
func (l *orderLevel) trade(incoming *Order) float64 {
	var traded float64

	e := l.orders.Front()
	for e != nil && incoming.quantity > 0 {
		resting := e.Value.(*Order)
		next := e.Next()

		switch {
		case incoming.quantity >= resting.quantity:
			qty := resting.quantity
			l.erase(resting)
			traded += qty
			incoming.quantity -= qty
			resting.quantity = 0

			resting.fireTraded(incoming)
			incoming.fireTraded(resting)

			resting.book = nil

		case !resting.aon:
			qty := incoming.quantity
			traded += qty
			resting.quantity -= qty
			l.normalQty -= qty
			incoming.quantity = 0

			resting.fireTraded(incoming)
			incoming.fireTraded(resting)

		default:
			// AON member with more quantity than the inbound residual:
			// cannot partial-fill, try the next member.
		}

		e = next
	}

	return traded
}
