package lob

import "math"

// Stop wraps a Trigger together with the Order it holds: once the trigger
// fires, the held order is submitted to the book. A plain stop order holds
// a market-priced order (see NewStopOrder); a stop-limit order holds a
// limit-priced one (see NewStopLimitOrder). Both share this one mechanism,
// grounded on original_source/stop.hpp, where stop<order_t> is nothing
// more than a trigger whose on_triggered inserts the held order.
type Stop struct {
	*Trigger
	order *Order
}

// PendingOrder returns the order that will be submitted when the stop
// fires.
func (s *Stop) PendingOrder() *Order { return s.order }

// NewStop builds a stop around an already-constructed order. Most callers
// want NewStopOrder or NewStopLimitOrder instead, which build the order
// too.
func NewStop(side Side, stopPrice float64, order *Order, cb TriggerCallbacks) *Stop {
	s := &Stop{order: order}

	userTriggered := cb.OnTriggered
	cb.OnTriggered = func(t *Trigger) {
		t.Book().Submit(order)
		if userTriggered != nil {
			userTriggered(t)
		}
	}

	s.Trigger = NewTrigger(side, stopPrice, cb)
	return s
}

// NewStopOrder builds a stop order: once the market trades through
// stopPrice, a market order (see MarketBuyPrice/MarketSellPrice) for
// quantity is submitted on side.
func NewStopOrder(side Side, stopPrice, quantity float64, ioc bool, orderCb OrderCallbacks, triggerCb TriggerCallbacks) *Stop {
	marketPrice := MarketBuyPrice
	if side == Ask {
		marketPrice = MarketSellPrice
	}
	order := NewOrder(side, marketPrice, quantity, ioc, false, orderCb)
	return NewStop(side, stopPrice, order, triggerCb)
}

// NewStopLimitOrder builds a stop-limit order: once the market trades
// through stopPrice, a limit order at limitPrice for quantity is submitted
// on side.
func NewStopLimitOrder(side Side, stopPrice, limitPrice, quantity float64, ioc, aon bool, orderCb OrderCallbacks, triggerCb TriggerCallbacks) *Stop {
	order := NewOrder(side, limitPrice, quantity, ioc, aon, orderCb)
	return NewStop(side, stopPrice, order, triggerCb)
}

// TrailingStop is a stop whose trigger price tracks the market price by a
// fixed offset, tightening as the market moves in the held order's favor
// and never loosening. It is built from two cooperating triggers: the
// trailing stop itself, and an internal controller resting on the
// opposite side that re-prices both whenever the market advances past it.
// Grounded on original_source/trailing_stop.hpp.
type TrailingStop struct {
	*Trigger
	order       *Order
	offsetType  OffsetType
	offset      float64
	controller  *Trigger
	initialized bool
}

// NewTrailingStop builds a trailing stop on side, holding order, that
// maintains a distance of offset (absolute units or a fraction of price,
// per offsetType) from the market price.
func NewTrailingStop(side Side, stopPrice float64, offsetType OffsetType, offset float64, order *Order, cb TriggerCallbacks) *TrailingStop {
	ts := &TrailingStop{order: order, offsetType: offsetType, offset: offset}

	userQueued := cb.OnQueued
	userCanceled := cb.OnCanceled
	userTriggered := cb.OnTriggered

	cb.OnQueued = func(t *Trigger) {
		ts.onQueued()
		if userQueued != nil {
			userQueued(t)
		}
	}
	cb.OnCanceled = func(t *Trigger) {
		ts.onCanceled()
		if userCanceled != nil {
			userCanceled(t)
		}
	}
	cb.OnTriggered = func(t *Trigger) {
		ts.onTriggered()
		if userTriggered != nil {
			userTriggered(t)
		}
	}

	ts.Trigger = NewTrigger(side, stopPrice, cb)
	return ts
}

// PendingOrder returns the order that will be submitted when the trailing
// stop fires.
func (ts *TrailingStop) PendingOrder() *Order { return ts.order }

func (ts *TrailingStop) onTriggered() {
	ts.Book().Submit(ts.order)
	if ts.controller != nil {
		ts.controller.Cancel()
	}
}

// referenceMarketPrice returns the book's last trade price, or, if the
// book has never traded, the trigger's own price as a best-effort anchor
// for the initial controller placement.
func referenceMarketPrice(t *Trigger) float64 {
	if price, ok := t.Book().LastTradePrice(); ok {
		return price
	}
	return t.Price()
}

func (ts *TrailingStop) onQueued() {
	if ts.initialized {
		return
	}
	ts.initialized = true

	marketPrice := referenceMarketPrice(ts.Trigger)

	// The controller sits on the side opposite the trailing stop: it
	// watches for the market to advance in the held order's favor, which
	// is the direction that should tighten (never loosen) the stop.
	controllerSide := Ask
	var controllerPrice float64
	if ts.Side() == Bid {
		controllerSide = Ask
		controllerPrice = math.Nextafter(marketPrice, math.Inf(1))
	} else {
		controllerSide = Bid
		controllerPrice = math.Nextafter(marketPrice, math.Inf(-1))
	}

	ts.controller = newTrailingStopController(controllerSide, controllerPrice, ts.offsetType, ts.offset, ts.Trigger)
	ts.Book().SubmitTrigger(ts.controller)
}

func (ts *TrailingStop) onCanceled() {
	ts.initialized = false
	if ts.controller != nil {
		ts.controller.Cancel()
	}
}

// newTrailingStopController builds the internal trigger that re-prices a
// trailing stop each time the market advances past it. On firing, it
// computes a new controller price one float64 step past the current
// market price, and a tightened stop price, then re-arms both itself and
// the trailing stop it serves via SetPrice.
func newTrailingStopController(side Side, price float64, offsetType OffsetType, offset float64, trailing *Trigger) *Trigger {
	var cb TriggerCallbacks
	cb.OnTriggered = func(t *Trigger) {
		marketPrice := referenceMarketPrice(t)

		var newPrice, newStop float64
		if t.Side() == Ask {
			newPrice = math.Nextafter(marketPrice, math.Inf(1))
			if offsetType == Absolute {
				newStop = marketPrice - offset
			} else {
				newStop = marketPrice * (1 - offset)
			}
			newStop = math.Max(newStop, trailing.Price())
		} else {
			newPrice = math.Nextafter(marketPrice, math.Inf(-1))
			if offsetType == Absolute {
				newStop = marketPrice + offset
			} else {
				newStop = marketPrice * (1 + offset)
			}
			newStop = math.Min(newStop, trailing.Price())
		}

		t.SetPrice(newPrice)
		trailing.SetPrice(newStop)
	}
	return NewTrigger(side, price, cb)
}
