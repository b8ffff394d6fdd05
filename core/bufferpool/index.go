package bufferpool

import "container/list"

// residency is the Index+Recency pair from spec: a map from PageID to its
// resident Frame, paired with a doubly-linked recency list ordered
// most-recently-used-at-front. Both structures are updated together and are
// never locked on their own; Pool holds one mutex across both, per the
// Pool-wide-mutex lock ordering.
type residency struct {
	frames map[PageID]*Frame
	order  *list.List
	nodes  map[PageID]*list.Element
}

func newResidency() *residency {
	return &residency{
		frames: make(map[PageID]*Frame),
		order:  list.New(),
		nodes:  make(map[PageID]*list.Element),
	}
}

func (r *residency) get(id PageID) (*Frame, bool) {
	f, ok := r.frames[id]
	return f, ok
}

func (r *residency) insert(f *Frame) {
	r.frames[f.ID()] = f
	r.nodes[f.ID()] = r.order.PushFront(f.ID())
}

func (r *residency) touch(id PageID) {
	if e, ok := r.nodes[id]; ok {
		r.order.MoveToFront(e)
	}
}

func (r *residency) remove(id PageID) {
	delete(r.frames, id)
	if e, ok := r.nodes[id]; ok {
		r.order.Remove(e)
		delete(r.nodes, id)
	}
}

func (r *residency) size() int { return len(r.frames) }

// evictionCandidate walks the recency list from the least-recently-used end
// and returns the first frame for which skip returns false. It does not
// remove anything; the caller removes the returned frame from residency
// only after successfully handling it (e.g. flushing if dirty).
func (r *residency) evictionCandidate(skip func(*Frame) bool) (*Frame, bool) {
	for e := r.order.Back(); e != nil; e = e.Prev() {
		id := e.Value.(PageID)
		f := r.frames[id]
		if skip(f) {
			continue
		}
		return f, true
	}
	return nil, false
}
