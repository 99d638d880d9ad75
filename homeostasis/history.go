package homeostasis

import "container/list"

// record is what the controller remembers about one input pattern.
type record struct {
	key          [32]byte
	output       []int // active columns of the last sighting
	counts       []int // active-column counts, newest first
	stableCycles int
}

// history is an LRU of records keyed by input hash. When full, the least
// recently seen pattern is forgotten.
type history struct {
	lru       *list.List
	index     map[[32]byte]*list.Element
	capacity  int
	evictions uint64
}

func newHistory(capacity int) *history {
	return &history{
		lru:      list.New(),
		index:    make(map[[32]byte]*list.Element),
		capacity: capacity,
	}
}

// get returns the record stored under key and promotes it to most recently used.
func (h *history) get(key [32]byte) (*record, bool) {
	elem, ok := h.index[key]
	if !ok {
		return nil, false
	}
	h.lru.MoveToFront(elem)
	return elem.Value.(*record), true
}

// add stores r, evicting the least recently used record at capacity.
func (h *history) add(r *record) {
	if h.lru.Len() >= h.capacity {
		if back := h.lru.Back(); back != nil {
			delete(h.index, back.Value.(*record).key)
			h.lru.Remove(back)
			h.evictions++
		}
	}
	h.index[r.key] = h.lru.PushFront(r)
}

func (h *history) len() int { return h.lru.Len() }

// every reports whether fn holds for all records.
func (h *history) every(fn func(*record) bool) bool {
	for elem := h.lru.Front(); elem != nil; elem = elem.Next() {
		if !fn(elem.Value.(*record)) {
			return false
		}
	}
	return true
}

// push shifts v into counts at the front, dropping the oldest value.
func push(counts []int, v int) {
	copy(counts[1:], counts[:len(counts)-1])
	counts[0] = v
}

// avgDelta is the mean absolute difference between neighbouring counts,
// divided by the number of counts.
func avgDelta(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	sum := 0
	for i := 0; i < len(counts)-1; i++ {
		d := counts[i] - counts[i+1]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / float64(len(counts))
}
