package piecetree

// color is a red-black tree node color tag.
type color uint8

const (
	red color = iota
	black
)

// node is an augmented red-black tree node. Besides the usual pointers
// and color, each node caches leftBytes and leftLines: the sums of
// byteLength and lineCount over its entire left subtree. Those caches are
// what make offset/line descent logarithmic instead of linear.
type node struct {
	piece piece
	color color

	parent *node
	left   *node
	right  *node

	leftBytes int64
	leftLines int32
}

// sentinel is the single shared black "null" node. Every null child or
// parent link in the tree points here instead of to nil so that rotation
// and fix-up code can dereference children unconditionally. Its sums stay
// zero forever; it is never freed.
var sentinel = &node{color: black}

func newRedNode(p piece) *node {
	return &node{
		piece:  p,
		color:  red,
		parent: sentinel,
		left:   sentinel,
		right:  sentinel,
	}
}

// subtreeBytes returns the total byteLength held by n's entire subtree
// (n included). It recurses only along n's right-child chain, since every
// node already caches the sum over its own left subtree.
func subtreeBytes(n *node) int64 {
	if n == sentinel {
		return 0
	}
	return n.leftBytes + n.piece.byteLength + subtreeBytes(n.right)
}

// subtreeLines mirrors subtreeBytes for line counts.
func subtreeLines(n *node) int32 {
	if n == sentinel {
		return 0
	}
	return n.leftLines + n.piece.lineCount + subtreeLines(n.right)
}

func treeMinimum(n *node) *node {
	for n.left != sentinel {
		n = n.left
	}
	return n
}

func treeMaximum(n *node) *node {
	for n.right != sentinel {
		n = n.right
	}
	return n
}

// leftmost and rightmost give the first/last node of the in-order
// sequence rooted at n (n may be the tree root).
func leftmost(n *node) *node {
	if n == sentinel {
		return sentinel
	}
	return treeMinimum(n)
}

func rightmost(n *node) *node {
	if n == sentinel {
		return sentinel
	}
	return treeMaximum(n)
}

// next returns the in-order successor of n, or sentinel if n is last.
func next(n *node) *node {
	if n.right != sentinel {
		return treeMinimum(n.right)
	}
	for n.parent != sentinel && n == n.parent.right {
		n = n.parent
	}
	return n.parent
}

// prev returns the in-order predecessor of n, or sentinel if n is first.
func prev(n *node) *node {
	if n.left != sentinel {
		return treeMaximum(n.left)
	}
	for n.parent != sentinel && n == n.parent.left {
		n = n.parent
	}
	return n.parent
}

// offsetFromStart yields the document byte offset of n's first byte: the
// sum of leftBytes plus, for each ancestor reached by ascending through a
// right-child link, that ancestor's leftBytes and piece byteLength.
func offsetFromStart(root, n *node) int64 {
	if n == sentinel {
		return 0
	}
	offset := n.leftBytes
	for n != root {
		if n.parent.right == n {
			offset += n.parent.leftBytes + n.parent.piece.byteLength
		}
		n = n.parent
	}
	return offset
}

// lineOffsetFromStart mirrors offsetFromStart for line counts.
func lineOffsetFromStart(root, n *node) int32 {
	if n == sentinel {
		return 0
	}
	lines := n.leftLines
	for n != root {
		if n.parent.right == n {
			lines += n.parent.leftLines + n.parent.piece.lineCount
		}
		n = n.parent
	}
	return lines
}

// updateMetadata walks upward from x, adding the deltas to every ancestor
// whose path to x proceeds through that ancestor's left child.
func updateMetadata(root **node, x *node, deltaBytes int64, deltaLines int32) {
	for x != *root && x != sentinel {
		if x.parent.left == x {
			x.parent.leftBytes += deltaBytes
			x.parent.leftLines += deltaLines
		}
		x = x.parent
	}
}

// recomputeUpward walks from n to the root, resetting leftBytes/leftLines
// at every node along the way from its (already-correct) left child's
// totals. Used after structural changes where tracking a minimal delta
// would be error-prone; each step only touches nodes on the path to root.
func recomputeUpward(root **node, n *node) {
	for n != sentinel {
		n.leftBytes = subtreeBytes(n.left)
		n.leftLines = subtreeLines(n.left)
		n = n.parent
	}
}

// rotateLeft performs the standard left rotation around x, additionally
// shifting x's contribution into y's left-subtree caches so they stay
// exact.
func rotateLeft(root **node, x *node) {
	y := x.right
	y.leftBytes += x.leftBytes + x.piece.byteLength
	y.leftLines += x.leftLines + x.piece.lineCount

	x.right = y.left
	if y.left != sentinel {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == sentinel {
		*root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

// rotateRight mirrors rotateLeft.
func rotateRight(root **node, y *node) {
	x := y.left
	y.leftBytes -= x.leftBytes + x.piece.byteLength
	y.leftLines -= x.leftLines + x.piece.lineCount

	y.left = x.right
	if x.right != sentinel {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == sentinel {
		*root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

// insertFixup restores red-black invariants after a plain BST insertion of
// a red leaf x.
func insertFixup(root **node, x *node) {
	for x.parent.color == red {
		if x.parent == x.parent.parent.left {
			y := x.parent.parent.right
			if y.color == red {
				x.parent.color = black
				y.color = black
				x.parent.parent.color = red
				x = x.parent.parent
			} else {
				if x == x.parent.right {
					x = x.parent
					rotateLeft(root, x)
				}
				x.parent.color = black
				x.parent.parent.color = red
				rotateRight(root, x.parent.parent)
			}
		} else {
			y := x.parent.parent.left
			if y.color == red {
				x.parent.color = black
				y.color = black
				x.parent.parent.color = red
				x = x.parent.parent
			} else {
				if x == x.parent.left {
					x = x.parent
					rotateRight(root, x)
				}
				x.parent.color = black
				x.parent.parent.color = red
				rotateLeft(root, x.parent.parent)
			}
		}
	}
	(*root).color = black
}

// insertLeaf performs standard BST-by-in-order-position insertion of a new
// piece relative to an existing node, then rebalances. When insertAsLeft is
// true the new node becomes (or is spliced to become) the predecessor of
// where; otherwise the successor. On an empty tree (where == sentinel) the
// new node becomes the root.
func insertLeaf(root **node, where *node, p piece, insertAsLeft bool) *node {
	n := newRedNode(p)

	if *root == sentinel {
		*root = n
		n.color = black
		n.parent = sentinel
		return n
	}

	if insertAsLeft {
		if where.left == sentinel {
			where.left = n
			n.parent = where
		} else {
			prevNode := treeMaximum(where.left)
			prevNode.right = n
			n.parent = prevNode
		}
	} else {
		if where.right == sentinel {
			where.right = n
			n.parent = where
		} else {
			nextNode := treeMinimum(where.right)
			nextNode.left = n
			n.parent = nextNode
		}
	}

	updateMetadata(root, n, p.byteLength, p.lineCount)
	insertFixup(root, n)
	return n
}

// transplant replaces the subtree rooted at u with the one rooted at v,
// fixing up u's parent's child pointer and v's parent pointer (even when v
// is the sentinel, per the standard trick).
func transplant(root **node, u, v *node) {
	if u.parent == sentinel {
		*root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

// deleteFixup restores red-black invariants after removing a black node,
// starting from its replacement x (which may be the sentinel).
func deleteFixup(root **node, x *node) {
	for x != *root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				rotateLeft(root, x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					rotateRight(root, w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				rotateLeft(root, x.parent)
				x = *root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				rotateRight(root, x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					rotateLeft(root, w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				rotateRight(root, x.parent)
				x = *root
			}
		}
	}
	x.color = black
}

// deleteNode removes z from the tree, the classical RB delete, and fixes
// up the augmented sums along every path that changed.
func deleteNode(root **node, z *node) {
	y := z
	yOriginalColor := y.color
	var x *node

	switch {
	case z.left == sentinel:
		x = z.right
		transplant(root, z, z.right)
		recomputeUpward(root, x.parent)
	case z.right == sentinel:
		x = z.left
		transplant(root, z, z.left)
		recomputeUpward(root, x.parent)
	default:
		y = treeMinimum(z.right)
		yOriginalColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			transplant(root, y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		transplant(root, z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
		y.leftBytes = z.leftBytes
		y.leftLines = z.leftLines

		recomputeUpward(root, x.parent)
		recomputeUpward(root, y.parent)
	}

	if yOriginalColor == black {
		deleteFixup(root, x)
	}

	z.left = nil
	z.right = nil
	z.parent = nil
}
