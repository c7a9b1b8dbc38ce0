package lob

import "container/list"

// TriggerCallbacks is the capability set a submitter attaches to a Trigger.
// Analogous to OrderCallbacks (spec.md §9).
type TriggerCallbacks struct {
	OnAccepted func(t *Trigger)
	OnQueued   func(t *Trigger)
	OnRejected func(t *Trigger)
	// OnTriggered fires when the book's last-trade price crosses the
	// trigger's threshold. The callback may call t.SetPrice to re-arm the
	// trigger at a new price (trailing-stop behavior); if it does not,
	// the trigger's book reference is released once the callback returns.
	OnTriggered func(t *Trigger)
	OnCanceled  func(t *Trigger)
}

// Trigger is a reactive primitive that fires when the book's last-trade
// price crosses its threshold: a bid-side trigger fires as the price falls
// to or through its price, an ask-side trigger fires as the price rises to
// or through its price. Stop orders and trailing stops are built entirely
// on top of this capability (see stop.go).
type Trigger struct {
	side   Side
	price  float64
	queued bool

	cb TriggerCallbacks

	book    *Book
	level   *triggerLevel
	elem    *list.Element
}

// NewTrigger constructs a trigger on the given side at the given price.
func NewTrigger(side Side, price float64, cb TriggerCallbacks) *Trigger {
	return &Trigger{side: side, price: price, cb: cb}
}

func (t *Trigger) Side() Side     { return t.side }
func (t *Trigger) Price() float64 { return t.price }
func (t *Trigger) IsQueued() bool { return t.queued }
func (t *Trigger) Book() *Book    { return t.book }

// Cancel removes the trigger from its book, if queued. OnCanceled fires
// after removal and may re-submit the trigger, in which case the book
// reference survives the call.
func (t *Trigger) Cancel() bool {
	if !t.queued {
		return false
	}

	b := t.book
	level := t.level
	level.erase(t)

	if level.isEmpty() {
		b.removeTriggerLevel(t.side, level)
	}

	t.fireCanceled()

	if !t.queued {
		t.book = nil
	}

	return true
}

// SetPrice moves the trigger to a new price, re-evaluating it immediately
// against the book's current last-trade price (it may fire right away, or
// re-queue at the new price). A no-op if the price is unchanged.
func (t *Trigger) SetPrice(price float64) {
	if price == t.price {
		return
	}

	b := t.book

	if t.queued {
		level := t.level
		level.erase(t)
		if level.isEmpty() {
			b.removeTriggerLevel(t.side, level)
		}
	}

	t.price = price
	b.SubmitTrigger(t)
}

func (t *Trigger) fireAccepted() {
	if t.cb.OnAccepted != nil {
		t.cb.OnAccepted(t)
	}
}

func (t *Trigger) fireQueued() {
	if t.cb.OnQueued != nil {
		t.cb.OnQueued(t)
	}
}

func (t *Trigger) fireRejected() {
	if t.cb.OnRejected != nil {
		t.cb.OnRejected(t)
	}
}

func (t *Trigger) fireTriggered() {
	if t.cb.OnTriggered != nil {
		t.cb.OnTriggered(t)
	}
}

func (t *Trigger) fireCanceled() {
	if t.cb.OnCanceled != nil {
		t.cb.OnCanceled(t)
	}
}
