package lob

import (
	"github.com/gammazero/deque"

	"github.com/ngohuyquang/lob-engine/pkg/logging"
)

// Book is a single-instrument limit order book. It holds resting orders on
// both sides, resting triggers on both sides, and the last traded price.
// Zero value is not usable; construct with NewBook. A Book is not
// goroutine-safe and is meant to be driven from a single goroutine, the
// same way the source engine assumes a single-threaded matching loop.
type Book struct {
	bids *priceTree[*orderLevel]
	asks *priceTree[*orderLevel]

	bidTriggers *priceTree[*triggerLevel]
	askTriggers *priceTree[*triggerLevel]

	lastTradePrice float64
	lastTradeSet   bool

	// deferralDepth and deferred implement the re-entrant submission queue
	// of spec.md §5: a callback run inside a Submit (or inside the AON
	// re-check of Order.SetQuantity) that itself calls Submit does not
	// recurse into the matching algorithm. Instead the new order is parked
	// here and drained once the outermost deferral scope closes.
	// SubmitTrigger opens no deferral scope of its own. Triggers are never
	// deferred; only orders are.
	deferralDepth int
	deferred      deque.Deque[*Order]

	logger *logging.Logger
}

// NewBook constructs an empty order book.
func NewBook() *Book {
	return &Book{
		bids:        newPriceTree[*orderLevel](descendingLess),
		asks:        newPriceTree[*orderLevel](ascendingLess),
		bidTriggers: newPriceTree[*triggerLevel](descendingLess),
		askTriggers: newPriceTree[*triggerLevel](ascendingLess),
	}
}

// WithLogger installs a structured logger that receives one entry per price
// level traded by a matching walk (with the quantity traded at that level)
// and one per trigger price level fired. Passing nil disables logging; a
// Book with no logger installed issues no log output at all.
func (b *Book) WithLogger(logger *logging.Logger) *Book {
	b.logger = logger
	return b
}

func (b *Book) logTrade(price, quantity float64, restingSide string) {
	if b.logger != nil {
		b.logger.Debug("trade", logging.TradeFields(price, quantity, restingSide)...)
	}
}

func (b *Book) logTrigger(price float64, side string) {
	if b.logger != nil {
		b.logger.Info("trigger fired", logging.TriggerFields(price, side)...)
	}
}

// BestBid returns the highest resting bid price, or MarketSellPrice (0) if
// the bid side is empty — a disciplined sentinel chosen so comparisons
// against it behave (spec.md §4.1).
func (b *Book) BestBid() float64 {
	price, _, ok := b.bids.best()
	if !ok {
		return MarketSellPrice
	}
	return price
}

// BestAsk returns the lowest resting ask price, or MarketBuyPrice (+Inf)
// if the ask side is empty.
func (b *Book) BestAsk() float64 {
	price, _, ok := b.asks.best()
	if !ok {
		return MarketBuyPrice
	}
	return price
}

// LevelInfo is a read-only snapshot of one resting price level, returned
// by the book's iteration and lookup methods.
type LevelInfo struct {
	Price     float64
	NormalQty float64
	AonQty    float64
}

func levelInfo(price float64, l *orderLevel) LevelInfo {
	return LevelInfo{Price: price, NormalQty: l.normalQty, AonQty: l.aonQty}
}

// BidLevels iterates resting bid price levels best-first, stopping early
// if fn returns false.
func (b *Book) BidLevels(fn func(LevelInfo) bool) {
	b.bids.ascend(func(price float64, l *orderLevel) bool { return fn(levelInfo(price, l)) })
}

// AskLevels iterates resting ask price levels best-first, stopping early
// if fn returns false.
func (b *Book) AskLevels(fn func(LevelInfo) bool) {
	b.asks.ascend(func(price float64, l *orderLevel) bool { return fn(levelInfo(price, l)) })
}

// BidLevel and AskLevel look up a single resting price level by price in
// O(log n).
func (b *Book) BidLevel(price float64) (LevelInfo, bool) {
	l, ok := b.bids.get(price)
	if !ok {
		return LevelInfo{}, false
	}
	return levelInfo(price, l), true
}

func (b *Book) AskLevel(price float64) (LevelInfo, bool) {
	l, ok := b.asks.get(price)
	if !ok {
		return LevelInfo{}, false
	}
	return levelInfo(price, l), true
}

// LastTradePrice returns the most recent trade price and whether any
// trade has occurred yet. Before the first trade there is no sentinel
// price that means "none" — the boolean is the only source of truth.
func (b *Book) LastTradePrice() (float64, bool) {
	return b.lastTradePrice, b.lastTradeSet
}

// BidDepth and AskDepth report the number of distinct price levels resting
// on each side, mainly useful for tests and Audit.
func (b *Book) BidDepth() int { return b.bids.len() }
func (b *Book) AskDepth() int { return b.asks.len() }

// Submit accepts a new order. If called re-entrantly from within a
// callback triggered by an earlier Submit (or Order.SetQuantity) that is
// still on the call stack, the order is queued for processing once the
// outermost call returns, in submission order (spec.md §5). A Submit made
// from a trigger callback fired directly by a top-level SubmitTrigger is
// not deferred.
func (b *Book) Submit(o *Order) {
	// A nested submission made from within a callback is parked verbatim
	// and fully reprocessed later, once the outermost submission's deferral
	// scope unwinds back to zero — it does not fire on_accepted/on_rejected
	// here, only when actually drained.
	if b.deferralDepth > 0 {
		o.book = b
		b.deferred.PushBack(o)
		return
	}

	b.beginDeferral()

	if o.submitted || o.quantity <= 0 {
		o.fireRejected()
	} else {
		o.submitted = true
		o.book = b
		o.fireAccepted()
		b.dispatchOrder(o)
	}

	b.endDeferral()
}

// SubmitTrigger accepts a new trigger and evaluates it immediately against
// the current last-trade price. Triggers are never deferred: a trigger
// fired from within another trigger's callback, or from within a trade's
// callback, evaluates inline (spec.md §6).
func (b *Book) SubmitTrigger(t *Trigger) {
	// Unlike submit(order), a re-submitted trigger that's already queued is
	// silently ignored rather than rejected with a callback.
	if t.queued {
		return
	}

	t.book = b
	t.fireAccepted()

	if !b.lastTradeSet {
		b.queueTrigger(t)
		return
	}

	if b.triggerCrosses(t, b.lastTradePrice) {
		t.fireTriggered()
		if !t.queued {
			t.book = nil
		}
		return
	}

	b.queueTrigger(t)
}

func (b *Book) triggerCrosses(t *Trigger, price float64) bool {
	if t.side == Bid {
		return price <= t.price
	}
	return price >= t.price
}

func (b *Book) queueTrigger(t *Trigger) {
	tree := b.askTriggers
	if t.side == Bid {
		tree = b.bidTriggers
	}

	level, ok := tree.get(t.price)
	if !ok {
		level = newTriggerLevel(t.price)
		tree.set(t.price, level)
	}
	level.insert(t)
	t.queued = true
	t.fireQueued()
}

// beginDeferral and endDeferral bracket a submission that may re-enter the
// book through callbacks. endDeferral drains the deferred queue once
// depth returns to zero, processing each parked order through the same
// beginDeferral/endDeferral bracket so further re-entrant submissions
// during drainage are themselves deferred in turn.
func (b *Book) beginDeferral() { b.deferralDepth++ }

func (b *Book) endDeferral() {
	b.deferralDepth--
	if b.deferralDepth > 0 {
		return
	}

	for b.deferred.Len() > 0 {
		o := b.deferred.PopFront()
		b.Submit(o)
	}
}

func (b *Book) dispatchOrder(o *Order) {
	switch {
	case o.side == Bid && o.aon:
		b.insertAONBid(o)
	case o.side == Bid:
		b.insertBid(o)
	case o.aon:
		b.insertAONAsk(o)
	default:
		b.insertAsk(o)
	}
}

// insertBid runs an incoming bid against the ask side, then either cancels
// an IOC residual, queues a GTC residual, or releases the order's book
// reference once it is fully consumed — an order's book is valid only
// while it is resident or mid-callback, never after (spec.md §3).
func (b *Book) insertBid(o *Order) {
	b.executeBid(o)

	if o.ioc {
		if o.quantity > floatTolerance {
			o.fireCanceled()
		}
		o.book = nil
		return
	}

	if o.quantity > floatTolerance {
		b.queueBidOrder(o)
	} else {
		o.book = nil
	}
}

func (b *Book) insertAsk(o *Order) {
	b.executeAsk(o)

	if o.ioc {
		if o.quantity > floatTolerance {
			o.fireCanceled()
		}
		o.book = nil
		return
	}

	if o.quantity > floatTolerance {
		b.queueAskOrder(o)
	} else {
		o.book = nil
	}
}

// insertAONBid either executes an all-or-nothing bid in full, right now,
// or rests it unexecuted. It never partially fills it (spec.md §4.1.1).
func (b *Book) insertAONBid(o *Order) {
	if b.bidIsFillable(o) {
		b.executeBid(o)
		o.book = nil
		return
	}

	if o.ioc {
		o.fireCanceled()
		o.book = nil
		return
	}

	b.queueBidOrder(o)
}

func (b *Book) insertAONAsk(o *Order) {
	if b.askIsFillable(o) {
		b.executeAsk(o)
		o.book = nil
		return
	}

	if o.ioc {
		o.fireCanceled()
		o.book = nil
		return
	}

	b.queueAskOrder(o)
}

func (b *Book) queueBidOrder(o *Order) {
	level, ok := b.bids.get(o.price)
	if !ok {
		level = newOrderLevel(o.price)
		b.bids.set(o.price, level)
	}
	level.insert(o)
	o.book = b
	o.queued = true

	b.checkAskAons(o.price)
	o.fireQueued()
}

func (b *Book) queueAskOrder(o *Order) {
	level, ok := b.asks.get(o.price)
	if !ok {
		level = newOrderLevel(o.price)
		b.asks.set(o.price, level)
	}
	level.insert(o)
	o.book = b
	o.queued = true

	b.checkBidAons(o.price)
	o.fireQueued()
}

func (b *Book) removeOrderLevel(side Side, level *orderLevel) {
	if side == Bid {
		b.bids.delete(level.price)
	} else {
		b.asks.delete(level.price)
	}
}

func (b *Book) removeTriggerLevel(side Side, level *triggerLevel) {
	if side == Bid {
		b.bidTriggers.delete(level.price)
	} else {
		b.askTriggers.delete(level.price)
	}
}

// bidIsFillable reports whether order (a bid) could be filled in full,
// right now, against the resting ask side, without mutating anything
// (spec.md §4.1.2). It is the predicate AON orders use to decide whether
// to execute immediately or rest.
func (b *Book) bidIsFillable(order *Order) bool {
	remaining := order.quantity
	b.asks.ascend(func(price float64, level *orderLevel) bool {
		if price > order.price {
			return false
		}
		remaining = level.simulateTrade(remaining)
		return remaining > floatTolerance
	})
	return remaining <= floatTolerance
}

func (b *Book) askIsFillable(order *Order) bool {
	remaining := order.quantity
	b.bids.ascend(func(price float64, level *orderLevel) bool {
		if price < order.price {
			return false
		}
		remaining = level.simulateTrade(remaining)
		return remaining > floatTolerance
	})
	return remaining <= floatTolerance
}

// crossingPrices collects, in priority order, every price on tree that
// crosses limit (the incoming order's price) — a stable snapshot taken
// before the walk starts, since trading on one level never creates or
// removes a level at another price. A level that trades nothing because
// its only remaining members are a blocking AON does not stop the walk:
// the cursor advances to the next price, mirroring the original engine's
// ++limit_it (original_source/include/book.hpp's execute_bid/execute_ask).
// Stopping at such a level instead would abandon crossable liquidity
// behind it and can leave the incoming order resting at a price that
// still crosses the book (violating P3).
func crossingPrices[T any](tree *priceTree[T], crosses func(price float64) bool) []float64 {
	var prices []float64
	tree.ascend(func(price float64, _ T) bool {
		if !crosses(price) {
			return false
		}
		prices = append(prices, price)
		return true
	})
	return prices
}

// executeBid walks the ask side from best price while it crosses order's
// price, trading against resting orders. It stops when order is fully
// filled or the book no longer crosses; a level blocked by a resting AON
// larger than order's residual quantity is skipped rather than halting
// the walk. Once the whole walk is done, if at least one trade occurred,
// last_trade_price is updated to the final trade's price and the trigger
// pass runs exactly once, per the price move as a whole rather than per
// individual trade (spec.md §4.1.1, §5 ordering guarantees).
func (b *Book) executeBid(order *Order) {
	traded := false
	var finalPrice float64

	for _, price := range crossingPrices(b.asks, func(p float64) bool { return p <= order.price }) {
		if order.quantity <= floatTolerance {
			break
		}
		level, ok := b.asks.get(price)
		if !ok {
			continue
		}

		amount := level.trade(order)
		if level.isEmpty() {
			b.asks.delete(price)
		}
		if amount <= 0 {
			continue
		}

		traded = true
		finalPrice = price
		b.logTrade(price, amount, "ask")
	}

	if traded {
		b.lastTradePrice = finalPrice
		b.lastTradeSet = true
		b.fireCrossedTriggers(finalPrice)
	}
}

func (b *Book) executeAsk(order *Order) {
	traded := false
	var finalPrice float64

	for _, price := range crossingPrices(b.bids, func(p float64) bool { return p >= order.price }) {
		if order.quantity <= floatTolerance {
			break
		}
		level, ok := b.bids.get(price)
		if !ok {
			continue
		}

		amount := level.trade(order)
		if level.isEmpty() {
			b.bids.delete(price)
		}
		if amount <= 0 {
			continue
		}

		traded = true
		finalPrice = price
		b.logTrade(price, amount, "bid")
	}

	if traded {
		b.lastTradePrice = finalPrice
		b.lastTradeSet = true
		b.fireCrossedTriggers(finalPrice)
	}
}

// fireCrossedTriggers fires every resting trigger whose threshold the new
// last-trade price has reached or passed: bid-side triggers as price
// falls to or through them, ask-side triggers as price rises to or
// through them (spec.md §6).
func (b *Book) fireCrossedTriggers(price float64) {
	for {
		p, level, ok := b.bidTriggers.best()
		if !ok || p < price {
			break
		}
		b.bidTriggers.delete(p)
		b.logTrigger(p, "bid")
		level.triggerAll()
	}

	for {
		p, level, ok := b.askTriggers.best()
		if !ok || p > price {
			break
		}
		b.askTriggers.delete(p)
		b.logTrigger(p, "ask")
		level.triggerAll()
	}
}

// recheckOppositeAONs is invoked after a resting order's quantity grows on
// side, at price: growth on one side can unblock AON orders resting on
// the opposite side that were previously unfillable. Per the crossing
// relationship, growth on the bid side at price P can only unblock ask
// AONs priced at or below P; growth on the ask side at price P can only
// unblock bid AONs priced at or above P.
func (b *Book) recheckOppositeAONs(side Side, price float64) {
	if side == Bid {
		b.checkAskAons(price)
	} else {
		b.checkBidAons(price)
	}
}

func (b *Book) checkAskAons(priceBoundary float64) {
	var levels []*orderLevel
	b.asks.ascend(func(price float64, level *orderLevel) bool {
		if price > priceBoundary {
			return false
		}
		levels = append(levels, level)
		return true
	})
	for _, level := range levels {
		b.executeQueuedAONAsk(level)
	}
}

func (b *Book) checkBidAons(priceBoundary float64) {
	var levels []*orderLevel
	b.bids.ascend(func(price float64, level *orderLevel) bool {
		if price < priceBoundary {
			return false
		}
		levels = append(levels, level)
		return true
	})
	for _, level := range levels {
		b.executeQueuedAONBid(level)
	}
}

// executeQueuedAONBid walks level's AON sub-index oldest-first and
// executes any member now fillable against the ask side in full, pulling
// it out of the level as it goes. A member that is still unfillable is
// left in place; the walk continues past it, since a smaller AON member
// further back may still be fillable (spec.md §4.1.5).
func (b *Book) executeQueuedAONBid(level *orderLevel) {
	e := level.aonIndex.Front()
	for e != nil {
		next := e.Next()
		o := e.Value.(*Order)

		if b.bidIsFillable(o) {
			level.erase(o)
			b.executeBid(o)
			o.book = nil
		}

		e = next
	}

	if level.isEmpty() {
		b.removeOrderLevel(Bid, level)
	}
}

func (b *Book) executeQueuedAONAsk(level *orderLevel) {
	e := level.aonIndex.Front()
	for e != nil {
		next := e.Next()
		o := e.Value.(*Order)

		if b.askIsFillable(o) {
			level.erase(o)
			b.executeAsk(o)
			o.book = nil
		}

		e = next
	}

	if level.isEmpty() {
		b.removeOrderLevel(Ask, level)
	}
}
