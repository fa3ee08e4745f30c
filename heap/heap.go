package heap

// Node 堆节点，内嵌到持有它的对象中，无需额外分配
type Node struct {
	left   *Node
	right  *Node
	parent *Node

	// Value 指回持有该节点的对象
	Value interface{}
}

// Less 返回 a < b
type Less func(a, b *Node) bool

// Heap 二叉最小堆。完全二叉树，树高最多 log2(n)，
// 根节点是比较器意义下的最小元素。
// 零值可直接使用。
type Heap struct {
	min   *Node
	nelts int
}

// Min 返回最小节点，堆为空时返回 nil
func (h *Heap) Min() *Node {
	return h.min
}

// Len 返回堆内节点数量
func (h *Heap) Len() int {
	return h.nelts
}

// Insert 插入节点
func (h *Heap) Insert(n *Node, less Less) {
	n.left = nil
	n.right = nil
	n.parent = nil

	// 插入位置是最底层最左的空位：读取 nelts+1 的二进制展开，
	// 去掉最高位的 1，从高到低依次决定走左还是走右。
	path := 0
	k := 0
	for i := 1 + h.nelts; i >= 2; i /= 2 {
		path = (path << 1) | (i & 1)
		k++
	}

	parent := &h.min
	child := &h.min
	for i := 0; i < k; i++ {
		parent = child
		if path&(1<<uint(i)) != 0 {
			child = &(*child).right
		} else {
			child = &(*child).left
		}
	}

	n.parent = *parent
	*child = n
	h.nelts++

	for n.parent != nil && less(n, n.parent) {
		h.swap(n.parent, n)
	}
}

// Remove 删除节点。节点不在堆内时行为未定义。
func (h *Heap) Remove(n *Node, less Less) {
	if h.nelts == 0 {
		return
	}

	// 定位最底层最右的节点（编号 nelts），路径算法与 Insert 相同
	path := 0
	k := 0
	for i := h.nelts; i >= 2; i /= 2 {
		path = (path << 1) | (i & 1)
		k++
	}

	max := &h.min
	for i := 0; i < k; i++ {
		if path&(1<<uint(i)) != 0 {
			max = &(*max).right
		} else {
			max = &(*max).left
		}
	}

	h.nelts--

	// 摘下最后一个节点
	child := *max
	*max = nil

	if child == n {
		// 删除的就是最后一个节点
		if child == h.min {
			h.min = nil
		}
		return
	}

	// 用最后一个节点顶替被删除节点的位置
	child.left = n.left
	child.right = n.right
	child.parent = n.parent

	if child.left != nil {
		child.left.parent = child
	}
	if child.right != nil {
		child.right.parent = child
	}

	if n.parent == nil {
		h.min = child
	} else if n.parent.left == n {
		n.parent.left = child
	} else {
		n.parent.right = child
	}

	// 顶替节点可能破坏堆序，先向下调整再向上调整
	for {
		smallest := child
		if child.left != nil && less(child.left, smallest) {
			smallest = child.left
		}
		if child.right != nil && less(child.right, smallest) {
			smallest = child.right
		}
		if smallest == child {
			break
		}
		h.swap(child, smallest)
	}

	for child.parent != nil && less(child, child.parent) {
		h.swap(child.parent, child)
	}
}

// Dequeue 弹出并返回最小节点，堆为空时返回 nil
func (h *Heap) Dequeue(less Less) *Node {
	min := h.min
	if min != nil {
		h.Remove(min, less)
	}
	return min
}

// swap 交换父子节点。只做指针手术不搬运数据，
// 回调中持有的节点引用在调整期间保持有效。
func (h *Heap) swap(parent, child *Node) {
	sibling := child.left
	siblingRight := child.right

	child.parent = parent.parent
	child.left = parent.left
	child.right = parent.right

	if parent.parent == nil {
		h.min = child
	} else if parent.parent.left == parent {
		parent.parent.left = child
	} else {
		parent.parent.right = child
	}

	if child.left == child {
		child.left = parent
		if child.right != nil {
			child.right.parent = child
		}
	} else {
		child.right = parent
		if child.left != nil {
			child.left.parent = child
		}
	}

	parent.parent = child
	parent.left = sibling
	parent.right = siblingRight

	if parent.left != nil {
		parent.left.parent = parent
	}
	if parent.right != nil {
		parent.right.parent = parent
	}
}
