package riskboard

import (
	"math/rand/v2"
	"time"
)

// Ordering: risk DESC, then athlete id ASC. "less" means ranks earlier, so
// an in-order walk yields the board from riskiest to safest.

type node struct {
	id         string
	risk       float64
	assessedAt time.Time
	prio       uint64
	left       *node
	right      *node
	size       int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aRisk float64, aID string, bRisk float64, bID string) bool {
	if aRisk != bRisk {
		return aRisk > bRisk
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, risk float64, at time.Time, rng *rand.Rand) *node {
	if n == nil {
		return &node{id: id, risk: risk, assessedAt: at, prio: rng.Uint64(), size: 1}
	}
	if less(risk, id, n.risk, n.id) {
		n.left = insert(n.left, id, risk, at, rng)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, risk, at, rng)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, risk float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id && n.risk == risk:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, risk)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, risk)
		}
	case less(risk, id, n.risk, n.id):
		n.left = remove(n.left, id, risk)
	default:
		n.right = remove(n.right, id, risk)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes carry a risk strictly greater than risk.
func countAbove(n *node, risk float64) int {
	count := 0
	for n != nil {
		if n.risk > risk {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collect appends up to limit nodes in rank order.
func collect(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	collect(n.right, limit, out)
}
