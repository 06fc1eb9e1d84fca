// Package list implements the intrusive doubly-linked list substrate
// every eviction policy shares: a List does not own its nodes, it only
// threads prev/next pointers that live inside them.
package list

// Linked is implemented by the node types policies keep in a List. N is
// normally a pointer type (e.g. *node[K,V]) so its zero value acts as the
// "unlinked" sentinel.
type Linked[N any] interface {
	comparable
	Next() N
	SetNext(N)
	Prev() N
	SetPrev(N)
}

// List is a doubly-linked list with no sentinel node, operating directly
// on the links embedded in N. All operations below are O(1) except Clear.
type List[N Linked[N]] struct {
	head, tail N
	length     int
}

// Len reports the number of nodes currently linked.
func (l *List[N]) Len() int { return l.length }

// Head returns the first node (zero value if empty).
func (l *List[N]) Head() N { return l.head }

// Tail returns the last node (zero value if empty).
func (l *List[N]) Tail() N { return l.tail }

// Append links n at the tail.
func (l *List[N]) Append(n N) {
	var zero N
	n.SetPrev(l.tail)
	n.SetNext(zero)
	if l.tail != zero {
		l.tail.SetNext(n)
	}
	l.tail = n
	if l.head == zero {
		l.head = n
	}
	l.length++
}

// Prepend links n at the head.
func (l *List[N]) Prepend(n N) {
	var zero N
	n.SetNext(l.head)
	n.SetPrev(zero)
	if l.head != zero {
		l.head.SetPrev(n)
	}
	l.head = n
	if l.tail == zero {
		l.tail = n
	}
	l.length++
}

// Remove detaches n from the list. n must currently be linked into this
// list; behavior is undefined otherwise.
func (l *List[N]) Remove(n N) {
	var zero N
	if n.Prev() != zero {
		n.Prev().SetNext(n.Next())
	} else {
		l.head = n.Next()
	}
	if n.Next() != zero {
		n.Next().SetPrev(n.Prev())
	} else {
		l.tail = n.Prev()
	}
	n.SetPrev(zero)
	n.SetNext(zero)
	l.length--
}

// MoveToBack moves n to the tail. No-op if n is already the tail.
func (l *List[N]) MoveToBack(n N) {
	if n == l.tail {
		return
	}
	l.Remove(n)
	l.Append(n)
}

// PopFirst removes and returns the head, or the zero value if empty.
func (l *List[N]) PopFirst() N {
	var zero N
	n := l.head
	if n == zero {
		return zero
	}
	l.Remove(n)
	return n
}

// Clear unlinks every node (without releasing them: that is the
// pool's/Map's job) and resets the list to empty.
func (l *List[N]) Clear() {
	var zero N
	for n := l.head; n != zero; {
		next := n.Next()
		n.SetPrev(zero)
		n.SetNext(zero)
		n = next
	}
	l.head, l.tail = zero, zero
	l.length = 0
}
