package lob

import "container/list"

// OrderCallbacks is the capability set a submitter attaches to an Order.
// Every field is optional; a nil callback is simply not invoked. This
// replaces the virtual-method-override design of the source engine with
// plain closures, which is the idiomatic Go equivalent (spec.md §9).
type OrderCallbacks struct {
	// OnAccepted fires once the order has passed validation and is about
	// to be routed into the matching algorithm.
	OnAccepted func(o *Order)
	// OnQueued fires once the order has been queued at its price level.
	OnQueued func(o *Order)
	// OnRejected fires if the order could not be accepted (non-positive
	// quantity, or the same *Order was already submitted once before,
	// whether or not it is still queued).
	OnRejected func(o *Order)
	// OnTraded fires once per trade this order takes part in, naming the
	// partner order. For a given trade, the resting order's OnTraded
	// fires before the incoming order's (spec.md §4.4.4).
	OnTraded func(o, partner *Order)
	// OnCanceled fires if the order is explicitly canceled, or if it was
	// IOC and had residual quantity after matching.
	OnCanceled func(o *Order)
}

// Order is a resting or in-flight limit order. Orders are created once and
// submitted once; the engine mutates Quantity as trades occur and manages
// Queued/location bookkeeping internally.
type Order struct {
	side      Side
	price     float64
	quantity  float64
	ioc       bool
	aon       bool
	queued    bool
	submitted bool

	cb OrderCallbacks

	// book is non-nil while the order is resident in a book's price
	// level, or during one of its own callbacks.
	book *Book

	// level, elem locate the order within its price level's main FIFO.
	// aonElem additionally locates it within the level's AON sub-index,
	// and is nil unless aon is true and the order is queued.
	level   *orderLevel
	elem    *list.Element
	aonElem *list.Element
}

// NewOrder constructs an order. price is a non-negative real; use
// MarketBuyPrice/MarketSellPrice for market semantics. quantity must be
// positive for the order to be accepted by Book.Submit.
func NewOrder(side Side, price, quantity float64, ioc, aon bool, cb OrderCallbacks) *Order {
	return &Order{
		side:     side,
		price:    price,
		quantity: quantity,
		ioc:      ioc,
		aon:      aon,
		cb:       cb,
	}
}

func (o *Order) Side() Side          { return o.side }
func (o *Order) Price() float64      { return o.price }
func (o *Order) Quantity() float64   { return o.quantity }
func (o *Order) IsIOC() bool         { return o.ioc }
func (o *Order) IsAllOrNone() bool   { return o.aon }
func (o *Order) IsQueued() bool      { return o.queued }
func (o *Order) Book() *Book         { return o.book }

// Cancel removes the order from its book, if it is currently queued.
// Returns false if the order was not queued (e.g. still in flight through
// a callback, or already fully traded/canceled).
func (o *Order) Cancel() bool {
	if !o.queued {
		return false
	}

	b := o.book
	level := o.level
	level.erase(o)

	if level.isEmpty() {
		b.removeOrderLevel(o.side, level)
	}

	o.fireCanceled()
	o.book = nil
	return true
}

// SetQuantity updates the order's resting quantity. Non-positive values are
// a silent no-op (spec.md §7). Growing a resting order may unblock an
// opposite-side AON order that was previously unfillable; shrinking a
// resting AON order may make it fillable against the current book. See
// DESIGN.md for the resolution of the source engine's ambiguous branch
// here (spec.md §9 open question).
func (o *Order) SetQuantity(newQty float64) {
	if newQty <= 0 {
		return
	}

	if !o.queued {
		o.quantity = newQty
		return
	}

	old := o.quantity
	grew := newQty > old

	if o.aon {
		o.level.adjustAON(newQty - old)
		o.quantity = newQty

		if !grew {
			if o.tryExecuteSelfAON() {
				return
			}
			return
		}

		b := o.book
		price := o.price
		side := o.side
		b.beginDeferral()
		b.recheckOppositeAONs(side, price)
		b.endDeferral()
		return
	}

	o.level.adjustNormal(newQty - old)
	o.quantity = newQty

	if !grew {
		return
	}

	b := o.book
	price := o.price
	side := o.side
	b.beginDeferral()
	b.recheckOppositeAONs(side, price)
	b.endDeferral()
}

// tryExecuteSelfAON attempts to execute a queued AON order in place against
// the opposite side, following a quantity decrease that may have made it
// fillable. Returns true if it executed (and released).
func (o *Order) tryExecuteSelfAON() bool {
	b := o.book
	var fillable bool
	if o.side == Bid {
		fillable = b.bidIsFillable(o)
	} else {
		fillable = b.askIsFillable(o)
	}

	if !fillable {
		return false
	}

	level := o.level

	b.beginDeferral()
	level.erase(o)
	if o.side == Bid {
		b.executeBid(o)
	} else {
		b.executeAsk(o)
	}
	if level.isEmpty() {
		b.removeOrderLevel(o.side, level)
	}
	b.endDeferral()

	o.book = nil
	return true
}

// SetAllOrNone flips the order's AON flag. No-op if unchanged; if the order
// isn't queued, only the flag changes. Flipping a queued order rebalances
// the level's aggregates and preserves price-time priority among AON
// members (spec.md §4.4.3).
func (o *Order) SetAllOrNone(aon bool) {
	if aon == o.aon {
		return
	}

	if !o.queued {
		o.aon = aon
		return
	}

	level := o.level

	if aon {
		level.normalQty -= o.quantity
		level.aonQty += o.quantity
		o.aon = true
		o.aonElem = level.insertAONPreservingOrder(o)
	} else {
		level.aonQty -= o.quantity
		level.normalQty += o.quantity
		level.aonIndex.Remove(o.aonElem)
		o.aonElem = nil
		o.aon = false
	}
}

func (o *Order) fireAccepted() {
	if o.cb.OnAccepted != nil {
		o.cb.OnAccepted(o)
	}
}

func (o *Order) fireQueued() {
	if o.cb.OnQueued != nil {
		o.cb.OnQueued(o)
	}
}

func (o *Order) fireRejected() {
	if o.cb.OnRejected != nil {
		o.cb.OnRejected(o)
	}
}

func (o *Order) fireTraded(partner *Order) {
	if o.cb.OnTraded != nil {
		o.cb.OnTraded(o, partner)
	}
}

func (o *Order) fireCanceled() {
	if o.cb.OnCanceled != nil {
		o.cb.OnCanceled(o)
	}
}
