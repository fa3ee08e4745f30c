package heap

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	node Node
	val  uint64
	seq  uint64
}

func newItem(val, seq uint64) *item {
	it := &item{val: val, seq: seq}
	it.node.Value = it
	return it
}

func itemLess(a, b *Node) bool {
	x := a.Value.(*item)
	y := b.Value.(*item)
	if x.val != y.val {
		return x.val < y.val
	}
	return x.seq < y.seq
}

// verify 检查父子指针互指、堆序和可达节点数
func verify(t *testing.T, h *Heap) {
	count := 0
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		count++
		if n.left != nil {
			assert.Equal(t, n, n.left.parent)
			assert.False(t, itemLess(n.left, n))
			walk(n.left)
		}
		if n.right != nil {
			assert.Equal(t, n, n.right.parent)
			assert.False(t, itemLess(n.right, n))
			walk(n.right)
		}
	}
	if h.min != nil {
		assert.Nil(t, h.min.parent)
	}
	walk(h.min)
	assert.Equal(t, h.nelts, count)
}

func TestHeapEmpty(t *testing.T) {
	h := &Heap{}

	assert.Nil(t, h.Min())
	assert.Equal(t, 0, h.Len())
	assert.Nil(t, h.Dequeue(itemLess))
}

func TestHeapInsertRemoveIdentity(t *testing.T) {
	h := &Heap{}
	it := newItem(42, 1)

	h.Insert(&it.node, itemLess)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, &it.node, h.Min())

	h.Remove(&it.node, itemLess)
	assert.Equal(t, 0, h.Len())
	assert.Nil(t, h.Min())
}

func TestHeapDequeueOrder(t *testing.T) {
	h := &Heap{}
	vals := []uint64{5, 1, 9, 3, 7, 3, 0}

	for i, v := range vals {
		h.Insert(&newItem(v, uint64(i)).node, itemLess)
		verify(t, h)
	}

	var got []uint64
	for h.Len() > 0 {
		n := h.Dequeue(itemLess)
		got = append(got, n.Value.(*item).val)
		verify(t, h)
	}

	want := append([]uint64(nil), vals...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Equal(t, want, got)
}

func TestHeapTieBreakBySeq(t *testing.T) {
	h := &Heap{}

	for i := 0; i < 100; i++ {
		h.Insert(&newItem(7, uint64(i)).node, itemLess)
	}

	for i := 0; i < 100; i++ {
		n := h.Dequeue(itemLess)
		assert.Equal(t, uint64(i), n.Value.(*item).seq)
	}
}

func TestHeapRemoveArbitrary(t *testing.T) {
	h := &Heap{}
	items := make([]*item, 0, 1000)

	for i := 0; i < 1000; i++ {
		it := newItem(uint64(rand.Intn(100)), uint64(i))
		items = append(items, it)
		h.Insert(&it.node, itemLess)
	}

	// 随机摘掉至多一半节点（重复抽中的跳过）
	removed := make(map[*item]bool)
	for i := 0; i < 500; i++ {
		it := items[rand.Intn(len(items))]
		if removed[it] {
			continue
		}
		removed[it] = true
		h.Remove(&it.node, itemLess)
		verify(t, h)
	}

	var rest []*item
	for _, it := range items {
		if !removed[it] {
			rest = append(rest, it)
		}
	}
	assert.Equal(t, len(rest), h.Len())

	var prev *item
	for h.Len() > 0 {
		it := h.Dequeue(itemLess).Value.(*item)
		if prev != nil {
			assert.False(t, itemLess(&it.node, &prev.node))
		}
		prev = it
	}
}

func TestHeapStress(t *testing.T) {
	h := &Heap{}
	const n = 10000

	for i := 0; i < n; i++ {
		h.Insert(&newItem(uint64(rand.Int63n(1000)), uint64(i)).node, itemLess)
	}
	assert.Equal(t, n, h.Len())
	verify(t, h)

	// 出堆序列按 (val, seq) 单调不减
	var prev *item
	for i := 0; i < n; i++ {
		it := h.Dequeue(itemLess).Value.(*item)
		if prev != nil {
			assert.False(t, itemLess(&it.node, &prev.node))
		}
		prev = it
	}
	assert.Equal(t, 0, h.Len())
}
