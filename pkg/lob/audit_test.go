package lob

import "testing"

func TestAuditCleanOnEmptyBook(t *testing.T) {
	b := NewBook()
	if problems := b.Audit(); len(problems) != 0 {
		t.Fatalf("Audit() on an empty book = %v, want none", problems)
	}
}

func TestAuditCleanAfterMixedActivity(t *testing.T) {
	b := NewBook()

	b.Submit(NewOrder(Ask, 10, 50, false, false, OrderCallbacks{}))
	b.Submit(NewOrder(Ask, 10, 20, false, true, OrderCallbacks{}))
	b.Submit(NewOrder(Ask, 11, 30, false, false, OrderCallbacks{}))
	b.Submit(NewOrder(Bid, 9, 40, false, false, OrderCallbacks{}))
	aonBid := NewOrder(Bid, 9, 15, false, true, OrderCallbacks{})
	b.Submit(aonBid)

	trig := NewTrigger(Ask, 12, TriggerCallbacks{})
	b.SubmitTrigger(trig)

	bid := NewOrder(Bid, 11, 40, false, false, OrderCallbacks{})
	b.Submit(bid)

	aonBid.SetQuantity(10)
	bid.Cancel()

	if problems := b.Audit(); len(problems) != 0 {
		t.Fatalf("Audit() after mixed activity = %v, want none", problems)
	}
}

func TestAuditDetectsStaleAggregate(t *testing.T) {
	b := NewBook()
	o := NewOrder(Ask, 10, 50, false, false, OrderCallbacks{})
	b.Submit(o)

	level, _ := b.asks.get(10)
	level.normalQty = 999 // corrupt the aggregate directly, bypassing the API

	problems := b.Audit()
	if len(problems) == 0 {
		t.Fatalf("expected Audit() to catch a corrupted normal_qty aggregate")
	}
}

func TestAuditDetectsDeferralImbalance(t *testing.T) {
	b := NewBook()
	b.deferralDepth = 1

	problems := b.Audit()
	if len(problems) == 0 {
		t.Fatalf("expected Audit() to catch deferral_depth != 0")
	}
}
