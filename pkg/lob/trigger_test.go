package lob

import "testing"

func TestTriggerQueuesBeforeFirstTrade(t *testing.T) {
	b := NewBook()
	fired := false
	trig := NewTrigger(Bid, 20, TriggerCallbacks{OnTriggered: func(t *Trigger) { fired = true }})
	b.SubmitTrigger(trig)

	if fired {
		t.Fatalf("trigger should not fire before the book has ever traded")
	}
	if !trig.IsQueued() {
		t.Errorf("trigger should be queued awaiting the first trade")
	}
}

func TestTriggerFiresWhenPriceCrosses(t *testing.T) {
	b := NewBook()
	fired := false
	trig := NewTrigger(Bid, 20, TriggerCallbacks{OnTriggered: func(t *Trigger) { fired = true }})
	b.SubmitTrigger(trig)

	b.Submit(NewOrder(Ask, 15, 10, false, false, OrderCallbacks{}))
	b.Submit(NewOrder(Bid, 15, 10, false, false, OrderCallbacks{}))

	if !fired {
		t.Fatalf("expected bid-side trigger at 20 to fire once last_trade_price fell to 15")
	}
	if trig.IsQueued() {
		t.Errorf("trigger should have been released after firing")
	}
}

func TestTriggerFiresImmediatelyIfAlreadyCrossed(t *testing.T) {
	b := NewBook()
	b.Submit(NewOrder(Ask, 25, 10, false, false, OrderCallbacks{}))
	b.Submit(NewOrder(Bid, 25, 10, false, false, OrderCallbacks{}))

	fired := false
	trig := NewTrigger(Ask, 20, TriggerCallbacks{OnTriggered: func(t *Trigger) { fired = true }})
	b.SubmitTrigger(trig)

	if !fired {
		t.Fatalf("expected ask-side trigger at 20 to fire immediately: last_trade_price=25 already crosses it")
	}
	if trig.IsQueued() {
		t.Errorf("trigger fired inline should not be queued")
	}
}

func TestTriggerCancel(t *testing.T) {
	b := NewBook()
	canceled := false
	trig := NewTrigger(Bid, 20, TriggerCallbacks{OnCanceled: func(t *Trigger) { canceled = true }})
	b.SubmitTrigger(trig)

	if !trig.Cancel() {
		t.Fatalf("Cancel() on a queued trigger = false")
	}
	if !canceled {
		t.Errorf("expected OnCanceled to fire")
	}
	if trig.Cancel() {
		t.Errorf("Cancel() on an already-canceled trigger should be a no-op")
	}
}

func TestTriggerSetPriceReArms(t *testing.T) {
	b := NewBook()
	b.Submit(NewOrder(Ask, 30, 10, false, false, OrderCallbacks{}))
	b.Submit(NewOrder(Bid, 30, 10, false, false, OrderCallbacks{}))

	fired := false
	trig := NewTrigger(Ask, 40, TriggerCallbacks{OnTriggered: func(t *Trigger) { fired = true }})
	b.SubmitTrigger(trig)
	if fired || !trig.IsQueued() {
		t.Fatalf("expected trigger at 40 to queue: last_trade_price=30 does not cross it")
	}

	trig.SetPrice(25)
	if !fired {
		t.Fatalf("re-pricing the trigger to 25 should fire it immediately: last_trade_price=30 now crosses it")
	}
}

func TestRepeatSubmitTriggerIsIgnoredNotRejected(t *testing.T) {
	b := NewBook()
	rejected := false
	trig := NewTrigger(Bid, 20, TriggerCallbacks{OnRejected: func(t *Trigger) { rejected = true }})
	b.SubmitTrigger(trig)
	b.SubmitTrigger(trig)

	if rejected {
		t.Errorf("re-submitting an already-queued trigger should be silently ignored, not rejected")
	}
}
