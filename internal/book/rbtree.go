package book

import "github.com/kestrel-trading/xvenue-arb/pkg/types"

// Red-black tree keyed by decimal price, aggregating size per level:
// O(log n) insert/delete and O(1) best-price access via cached min/max
// pointers. Nodes hold a single aggregate Size rather than a FIFO queue
// of individual orders; PriceBook tracks depth, not order identity.
type color bool

const (
	red   color = true
	black color = false
)

type rbNode struct {
	price  types.Price
	size   types.Size
	color  color
	left   *rbNode
	right  *rbNode
	parent *rbNode
}

// rbTree is a red-black tree ordered ascending by price on both sides.
// The descending flag only changes which end counts as best: Best returns
// the lowest level for asks and the highest for bids (descending), and
// Walk visits levels best-first.
type rbTree struct {
	root       *rbNode
	count      int
	minNode    *rbNode
	maxNode    *rbNode
	descending bool
}

func newRBTree(descending bool) *rbTree {
	return &rbTree{descending: descending}
}

func (t *rbTree) Len() int { return t.count }

// Best returns the level considered "best" for this side (O(1)).
func (t *rbTree) Best() (types.Price, types.Size, bool) {
	n := t.minNode
	if t.descending {
		n = t.maxNode
	}
	if n == nil {
		return types.Price{}, types.Size{}, false
	}
	return n.price, n.size, true
}

func (t *rbTree) Get(price types.Price) (types.Size, bool) {
	n := t.search(price)
	if n == nil {
		return types.Size{}, false
	}
	return n.size, true
}

// Set inserts or updates the size at price. A zero or negative size
// deletes the level entirely.
func (t *rbTree) Set(price types.Price, size types.Size) {
	if size.Sign() <= 0 {
		LevelsAppliedTotal.WithLabelValues("remove").Inc()
		t.delete(price)
		return
	}
	LevelsAppliedTotal.WithLabelValues("set").Inc()
	if n := t.search(price); n != nil {
		n.size = size
		return
	}
	t.insert(&rbNode{price: price, size: size, color: red})
}

func (t *rbTree) Clear() {
	t.root = nil
	t.minNode = nil
	t.maxNode = nil
	t.count = 0
}

// Walk visits levels in "best first" order, stopping when fn returns false.
func (t *rbTree) Walk(fn func(price types.Price, size types.Size) bool) {
	if t.descending {
		t.walkDesc(t.root, fn)
		return
	}
	t.walkAsc(t.root, fn)
}

func (t *rbTree) walkAsc(n *rbNode, fn func(types.Price, types.Size) bool) bool {
	if n == nil {
		return true
	}
	if !t.walkAsc(n.left, fn) {
		return false
	}
	if !fn(n.price, n.size) {
		return false
	}
	return t.walkAsc(n.right, fn)
}

func (t *rbTree) walkDesc(n *rbNode, fn func(types.Price, types.Size) bool) bool {
	if n == nil {
		return true
	}
	if !t.walkDesc(n.right, fn) {
		return false
	}
	if !fn(n.price, n.size) {
		return false
	}
	return t.walkDesc(n.left, fn)
}

func (t *rbTree) search(price types.Price) *rbNode {
	cur := t.root
	for cur != nil {
		cmp := price.Cmp(cur.price)
		switch {
		case cmp == 0:
			return cur
		case cmp < 0:
			cur = cur.left
		default:
			cur = cur.right
		}
	}
	return nil
}

func (t *rbTree) insert(n *rbNode) {
	if t.root == nil {
		n.color = black
		t.root = n
		t.minNode = n
		t.maxNode = n
		t.count = 1
		return
	}

	var parent *rbNode
	cur := t.root
	for cur != nil {
		parent = cur
		if n.price.Cmp(cur.price) < 0 {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	n.parent = parent
	if n.price.Cmp(parent.price) < 0 {
		parent.left = n
	} else {
		parent.right = n
	}
	t.count++

	if t.minNode == nil || n.price.Cmp(t.minNode.price) < 0 {
		t.minNode = n
	}
	if t.maxNode == nil || n.price.Cmp(t.maxNode.price) > 0 {
		t.maxNode = n
	}

	t.fixInsert(n)
}

func (t *rbTree) fixInsert(n *rbNode) {
	for n.parent != nil && n.parent.color == red {
		grandparent := n.parent.parent
		if grandparent == nil {
			break
		}
		if n.parent == grandparent.left {
			uncle := grandparent.right
			if uncle != nil && uncle.color == red {
				n.parent.color = black
				uncle.color = black
				grandparent.color = red
				n = grandparent
				continue
			}
			if n == n.parent.right {
				n = n.parent
				t.rotateLeft(n)
			}
			n.parent.color = black
			grandparent.color = red
			t.rotateRight(grandparent)
		} else {
			uncle := grandparent.left
			if uncle != nil && uncle.color == red {
				n.parent.color = black
				uncle.color = black
				grandparent.color = red
				n = grandparent
				continue
			}
			if n == n.parent.left {
				n = n.parent
				t.rotateRight(n)
			}
			n.parent.color = black
			grandparent.color = red
			t.rotateLeft(grandparent)
		}
	}
	t.root.color = black
}

func (t *rbTree) rotateLeft(n *rbNode) {
	r := n.right
	n.right = r.left
	if r.left != nil {
		r.left.parent = n
	}
	r.parent = n.parent
	if n.parent == nil {
		t.root = r
	} else if n == n.parent.left {
		n.parent.left = r
	} else {
		n.parent.right = r
	}
	r.left = n
	n.parent = r
}

func (t *rbTree) rotateRight(n *rbNode) {
	l := n.left
	n.left = l.right
	if l.right != nil {
		l.right.parent = n
	}
	l.parent = n.parent
	if n.parent == nil {
		t.root = l
	} else if n == n.parent.left {
		n.parent.left = l
	} else {
		n.parent.right = l
	}
	l.right = n
	n.parent = l
}

// delete removes the level at price, if present, updating the cached
// min/max pointers before unlinking and rebalancing so Best stays O(1).
func (t *rbTree) delete(price types.Price) {
	n := t.search(price)
	if n == nil {
		return
	}
	t.count--

	if n == t.minNode {
		t.minNode = t.successor(n)
	}
	if n == t.maxNode {
		t.maxNode = t.predecessor(n)
	}

	t.deleteNode(n)
}

// successor returns the next node in price order.
func (t *rbTree) successor(n *rbNode) *rbNode {
	if n.right != nil {
		cur := n.right
		for cur.left != nil {
			cur = cur.left
		}
		return cur
	}
	parent := n.parent
	for parent != nil && n == parent.right {
		n = parent
		parent = parent.parent
	}
	return parent
}

// predecessor returns the previous node in price order.
func (t *rbTree) predecessor(n *rbNode) *rbNode {
	if n.left != nil {
		cur := n.left
		for cur.right != nil {
			cur = cur.right
		}
		return cur
	}
	parent := n.parent
	for parent != nil && n == parent.left {
		n = parent
		parent = parent.parent
	}
	return parent
}

// transplant replaces the subtree rooted at u with the subtree rooted at v.
func (t *rbTree) transplant(u, v *rbNode) {
	if u.parent == nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	if v != nil {
		v.parent = u.parent
	}
}

func (t *rbTree) deleteNode(z *rbNode) {
	var x, xParent *rbNode
	y := z
	yOriginalColor := y.color

	if z.left == nil {
		x = z.right
		xParent = z.parent
		t.transplant(z, z.right)
	} else if z.right == nil {
		x = z.left
		xParent = z.parent
		t.transplant(z, z.left)
	} else {
		y = z.right
		for y.left != nil {
			y = y.left
		}
		yOriginalColor = y.color
		x = y.right
		if y.parent == z {
			xParent = y
		} else {
			xParent = y.parent
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOriginalColor == black {
		t.deleteFixup(x, xParent)
	}
}

// deleteFixup restores red-black properties after deletion; without it a
// delete-heavy book degrades towards a plain BST and loses the O(log n)
// worst case.
func (t *rbTree) deleteFixup(x, xParent *rbNode) {
	for x != t.root && (x == nil || x.color == black) {
		if xParent == nil {
			break
		}
		if x == xParent.left {
			w := xParent.right
			if w != nil && w.color == red {
				w.color = black
				xParent.color = red
				t.rotateLeft(xParent)
				w = xParent.right
			}
			if w == nil || ((w.left == nil || w.left.color == black) && (w.right == nil || w.right.color == black)) {
				if w != nil {
					w.color = red
				}
				x = xParent
				xParent = x.parent
			} else {
				if w.right == nil || w.right.color == black {
					if w.left != nil {
						w.left.color = black
					}
					w.color = red
					t.rotateRight(w)
					w = xParent.right
				}
				w.color = xParent.color
				xParent.color = black
				if w.right != nil {
					w.right.color = black
				}
				t.rotateLeft(xParent)
				x = t.root
			}
		} else {
			w := xParent.left
			if w != nil && w.color == red {
				w.color = black
				xParent.color = red
				t.rotateRight(xParent)
				w = xParent.left
			}
			if w == nil || ((w.right == nil || w.right.color == black) && (w.left == nil || w.left.color == black)) {
				if w != nil {
					w.color = red
				}
				x = xParent
				xParent = x.parent
			} else {
				if w.left == nil || w.left.color == black {
					if w.right != nil {
						w.right.color = black
					}
					w.color = red
					t.rotateLeft(w)
					w = xParent.left
				}
				w.color = xParent.color
				xParent.color = black
				if w.left != nil {
					w.left.color = black
				}
				t.rotateRight(xParent)
				x = t.root
			}
		}
	}
	if x != nil {
		x.color = black
	}
}
