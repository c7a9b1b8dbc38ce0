package lob

import "github.com/google/btree"

// priceItem adapts a (price, value) pair to the btree.Item interface. less
// carries the side's ordering: ascending for asks (best = lowest price
// first), reversed for bids (best = highest price first) so that a plain
// Ascend over the tree always visits levels in priority order regardless
// of side — the same trick other_examples/jutinyang-golang_match_order
// uses for its bid/ask price trees.
type priceItem[T any] struct {
	price float64
	value T
	less  func(a, b float64) bool
}

func (i *priceItem[T]) Less(than btree.Item) bool {
	o := than.(*priceItem[T])
	return i.less(i.price, o.price)
}

// priceTree is an ordered price -> T map with O(log n) lookup and
// priority-ordered iteration, backed by github.com/google/btree. It
// implements the m_bids/m_asks/m_bid_triggers/m_ask_triggers containers of
// spec.md §3.
type priceTree[T any] struct {
	bt   *btree.BTree
	less func(a, b float64) bool
}

const treeDegree = 32

func newPriceTree[T any](less func(a, b float64) bool) *priceTree[T] {
	return &priceTree[T]{bt: btree.New(treeDegree), less: less}
}

func (t *priceTree[T]) pivot(price float64) *priceItem[T] {
	return &priceItem[T]{price: price, less: t.less}
}

func (t *priceTree[T]) get(price float64) (T, bool) {
	item := t.bt.Get(t.pivot(price))
	if item == nil {
		var zero T
		return zero, false
	}
	return item.(*priceItem[T]).value, true
}

func (t *priceTree[T]) set(price float64, value T) {
	t.bt.ReplaceOrInsert(&priceItem[T]{price: price, value: value, less: t.less})
}

func (t *priceTree[T]) delete(price float64) {
	t.bt.Delete(t.pivot(price))
}

func (t *priceTree[T]) len() int { return t.bt.Len() }

// best returns the first level in priority order, if any.
func (t *priceTree[T]) best() (float64, T, bool) {
	var price float64
	var value T
	found := false
	t.bt.Ascend(func(i btree.Item) bool {
		it := i.(*priceItem[T])
		price, value, found = it.price, it.value, true
		return false
	})
	return price, value, found
}

// ascend walks levels in priority order (best first), calling fn until it
// returns false or levels are exhausted.
func (t *priceTree[T]) ascend(fn func(price float64, value T) bool) {
	t.bt.Ascend(func(i btree.Item) bool {
		it := i.(*priceItem[T])
		return fn(it.price, it.value)
	})
}

func ascendingLess(a, b float64) bool  { return a < b }
func descendingLess(a, b float64) bool { return a > b }
