package lob

import "testing"

func TestSimpleCross(t *testing.T) {
	b := NewBook()

	var trades []float64
	askCb := OrderCallbacks{
		OnTraded: func(o, partner *Order) { trades = append(trades, o.Quantity()) },
	}
	ask := NewOrder(Ask, 10, 100, false, false, askCb)
	b.Submit(ask)

	bid := NewOrder(Bid, 10, 100, false, false, OrderCallbacks{})
	b.Submit(bid)

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade callback on resting ask, got %d", len(trades))
	}
	if price, ok := b.LastTradePrice(); !ok || price != 10 {
		t.Errorf("last_trade_price = %v, %v; want 10, true", price, ok)
	}
	if b.BidDepth() != 0 || b.AskDepth() != 0 {
		t.Errorf("expected both sides empty after full cross, bids=%d asks=%d", b.BidDepth(), b.AskDepth())
	}
}

// TestMultiLevelSweep reproduces the scenario 1 walk: resting asks at two
// price levels, an incoming bid that crosses both and leaves a residual.
func TestMultiLevelSweep(t *testing.T) {
	b := NewBook()

	var restingTrades []float64
	restingCb := OrderCallbacks{OnTraded: func(o, partner *Order) { restingTrades = append(restingTrades, o.Quantity()) }}

	b.Submit(NewOrder(Ask, 10, 100, false, false, restingCb))
	b.Submit(NewOrder(Ask, 11, 100, false, false, restingCb))

	var incomingTrades int
	incomingCb := OrderCallbacks{OnTraded: func(o, partner *Order) { incomingTrades++ }}
	bid := NewOrder(Bid, 11, 150, false, false, incomingCb)
	b.Submit(bid)

	if incomingTrades != 2 {
		t.Fatalf("expected incoming bid to trade twice, got %d", incomingTrades)
	}
	if level, ok := b.AskLevel(11); !ok || !nearlyEqual(level.NormalQty, 50) {
		t.Errorf("ask level at 11 = %+v, ok=%v; want 50 remaining", level, ok)
	}
	if _, ok := b.AskLevel(10); ok {
		t.Errorf("ask level at 10 should be fully consumed and removed")
	}
	price, ok := b.LastTradePrice()
	if !ok || price != 11 {
		t.Errorf("last_trade_price = %v, %v; want 11, true", price, ok)
	}
}

func TestIOCCancelsResidual(t *testing.T) {
	b := NewBook()
	b.Submit(NewOrder(Ask, 10, 100, false, false, OrderCallbacks{}))

	canceled := false
	cb := OrderCallbacks{OnCanceled: func(o *Order) { canceled = true }}
	bid := NewOrder(Bid, 10, 150, true, false, cb)
	b.Submit(bid)

	if !canceled {
		t.Fatalf("expected IOC residual to fire OnCanceled")
	}
	if bid.IsQueued() {
		t.Errorf("IOC order should never be queued")
	}
	if b.AskDepth() != 0 {
		t.Errorf("expected ask side fully consumed, depth=%d", b.AskDepth())
	}
}

func TestGTCResidualQueues(t *testing.T) {
	b := NewBook()
	b.Submit(NewOrder(Ask, 10, 50, false, false, OrderCallbacks{}))

	queued := false
	cb := OrderCallbacks{OnQueued: func(o *Order) { queued = true }}
	bid := NewOrder(Bid, 10, 100, false, false, cb)
	b.Submit(bid)

	if !queued {
		t.Fatalf("expected GTC residual to queue")
	}
	if !bid.IsQueued() {
		t.Errorf("bid.IsQueued() = false after queuing")
	}
	if level, ok := b.BidLevel(10); !ok || !nearlyEqual(level.NormalQty, 50) {
		t.Errorf("bid level at 10 = %+v, ok=%v; want 50 resting", level, ok)
	}
}

func TestFIFOPriority(t *testing.T) {
	b := NewBook()

	var fillOrder []string
	mk := func(name string) OrderCallbacks {
		return OrderCallbacks{OnTraded: func(o, partner *Order) { fillOrder = append(fillOrder, name) }}
	}

	first := NewOrder(Ask, 10, 5, false, false, mk("first"))
	second := NewOrder(Ask, 10, 5, false, false, mk("second"))
	b.Submit(first)
	b.Submit(second)

	b.Submit(NewOrder(Bid, 10, 10, false, false, OrderCallbacks{}))

	if len(fillOrder) != 2 || fillOrder[0] != "first" || fillOrder[1] != "second" {
		t.Errorf("expected FIFO fill order [first second], got %v", fillOrder)
	}
}

// TestAONBlockedThenUnblocked reproduces spec scenario 3: a resting AON bid
// that cannot fill against a thin ask book unblocks once enough ask
// quantity rests at the same price.
func TestAONBlockedThenUnblocked(t *testing.T) {
	b := NewBook()
	b.Submit(NewOrder(Ask, 10, 50, false, false, OrderCallbacks{}))

	var queued, traded bool
	aonCb := OrderCallbacks{
		OnQueued: func(o *Order) { queued = true },
		OnTraded: func(o, partner *Order) { traded = true },
	}
	bidAON := NewOrder(Bid, 10, 100, false, true, aonCb)
	b.Submit(bidAON)

	if !queued {
		t.Fatalf("expected AON bid to queue (not yet fillable)")
	}
	if traded {
		t.Fatalf("AON bid should not have traded yet")
	}

	b.Submit(NewOrder(Ask, 10, 60, false, false, OrderCallbacks{}))

	if !traded {
		t.Fatalf("expected AON bid to execute once the ask side had enough quantity")
	}
	if bidAON.IsQueued() {
		t.Errorf("AON bid should have been fully executed and released")
	}
	if level, ok := b.AskLevel(10); !ok || !nearlyEqual(level.NormalQty, 10) {
		t.Errorf("ask level at 10 = %+v, ok=%v; want 10 remaining", level, ok)
	}
	if b.BidDepth() != 0 {
		t.Errorf("expected bid side empty, depth=%d", b.BidDepth())
	}
}

func TestAONNeverPartiallyFilled(t *testing.T) {
	b := NewBook()
	b.Submit(NewOrder(Ask, 10, 40, false, false, OrderCallbacks{}))

	traded := false
	cb := OrderCallbacks{OnTraded: func(o, partner *Order) { traded = true }}
	bidAON := NewOrder(Bid, 10, 100, true, true, cb)
	b.Submit(bidAON)

	if traded {
		t.Fatalf("AON IOC should not trade when it cannot be fully filled")
	}
	if bidAON.IsQueued() {
		t.Errorf("IOC AON must never queue")
	}
	if level, ok := b.AskLevel(10); !ok || !nearlyEqual(level.NormalQty, 40) {
		t.Errorf("resting ask should be untouched by a blocked AON IOC, got %+v ok=%v", level, ok)
	}
}

// TestReentrantDeferral reproduces spec scenario 5: a resting order's
// OnTraded callback submits a new order; that submission must not be
// dispatched until the outer match completes, and it must see book state
// as of right after the outer match, not mid-walk.
func TestReentrantDeferral(t *testing.T) {
	b := NewBook()

	var sequence []string

	var follow *Order
	restingCb := OrderCallbacks{
		OnTraded: func(o, partner *Order) {
			sequence = append(sequence, "resting.on_traded")
			follow = NewOrder(Bid, 10, 20, false, false, OrderCallbacks{
				OnAccepted: func(o *Order) { sequence = append(sequence, "follow.on_accepted") },
				OnQueued:   func(o *Order) { sequence = append(sequence, "follow.on_queued") },
			})
			b.Submit(follow)
			sequence = append(sequence, "resting.on_traded.return")
		},
	}
	b.Submit(NewOrder(Bid, 10, 30, false, false, restingCb))

	incomingCb := OrderCallbacks{
		OnTraded:   func(o, partner *Order) { sequence = append(sequence, "incoming.on_traded") },
		OnCanceled: func(o *Order) { sequence = append(sequence, "incoming.on_canceled") },
	}
	b.Submit(NewOrder(Ask, 10, 30, true, false, incomingCb))

	want := []string{
		"resting.on_traded",
		"resting.on_traded.return",
		"incoming.on_traded",
		"follow.on_accepted",
		"follow.on_queued",
	}
	if len(sequence) != len(want) {
		t.Fatalf("sequence = %v, want %v", sequence, want)
	}
	for i := range want {
		if sequence[i] != want[i] {
			t.Errorf("sequence[%d] = %q, want %q (full: %v)", i, sequence[i], want[i], sequence)
			break
		}
	}

	if b.deferralDepth != 0 {
		t.Errorf("deferral_depth = %d after all submissions settle, want 0", b.deferralDepth)
	}
	if follow == nil || !follow.IsQueued() {
		t.Errorf("deferred follow-up order should have queued once drained")
	}
}

func TestBestBidAskSentinelsWhenEmpty(t *testing.T) {
	b := NewBook()
	if got := b.BestBid(); got != MarketSellPrice {
		t.Errorf("BestBid() on empty book = %v, want %v", got, MarketSellPrice)
	}
	if got := b.BestAsk(); got != MarketBuyPrice {
		t.Errorf("BestAsk() on empty book = %v, want %v", got, MarketBuyPrice)
	}
	if _, ok := b.LastTradePrice(); ok {
		t.Errorf("LastTradePrice() ok = true on a book that never traded")
	}
}

func TestCancelRemovesOrderAndFiresCallback(t *testing.T) {
	b := NewBook()
	canceled := false
	o := NewOrder(Bid, 10, 5, false, false, OrderCallbacks{OnCanceled: func(o *Order) { canceled = true }})
	b.Submit(o)

	if !o.Cancel() {
		t.Fatalf("Cancel() on a queued order = false")
	}
	if !canceled {
		t.Errorf("expected OnCanceled to fire on explicit cancel")
	}
	if o.Cancel() {
		t.Errorf("Cancel() on an already-canceled order should be a no-op returning false")
	}
	if b.BidDepth() != 0 {
		t.Errorf("expected empty level to be removed, depth=%d", b.BidDepth())
	}
}

func TestSubmitRejectsReuse(t *testing.T) {
	b := NewBook()
	rejected := 0
	cb := OrderCallbacks{OnRejected: func(o *Order) { rejected++ }}

	o := NewOrder(Bid, 10, 5, false, false, cb)
	b.Submit(o)
	b.Submit(o)

	if rejected != 1 {
		t.Errorf("expected resubmitting an already-submitted order to be rejected once, got %d rejections", rejected)
	}
}

func TestSubmitRejectsNonPositiveQuantity(t *testing.T) {
	b := NewBook()
	rejected := false
	cb := OrderCallbacks{OnRejected: func(o *Order) { rejected = true }}
	b.Submit(NewOrder(Bid, 10, 0, false, false, cb))

	if !rejected {
		t.Errorf("expected non-positive quantity to be rejected")
	}
}
