package incident

// liveHeap orders history slots by priority, highest first, then by
// incident id so equal priorities are served in report order.
type liveHeap struct {
	q     *Queue
	slots []int
}

func (h *liveHeap) Len() int { return len(h.slots) }

func (h *liveHeap) Less(i, j int) bool {
	a, b := h.q.history[h.slots[i]], h.q.history[h.slots[j]]
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.ID < b.ID
}

func (h *liveHeap) Swap(i, j int) {
	h.slots[i], h.slots[j] = h.slots[j], h.slots[i]
	h.q.pos[h.slots[i]] = i
	h.q.pos[h.slots[j]] = j
}

func (h *liveHeap) Push(x any) {
	slot := x.(int)
	h.q.pos[slot] = len(h.slots)
	h.slots = append(h.slots, slot)
}

func (h *liveHeap) Pop() any {
	old := h.slots
	slot := old[len(old)-1]
	h.slots = old[:len(old)-1]
	h.q.pos[slot] = notQueued
	return slot
}
