package detector

// Slot holds either one FaceResult or nothing. The zero Slot is empty.
type Slot struct {
	face FaceResult
	ok   bool
}

// Some returns a populated slot.
func Some(face FaceResult) Slot {
	return Slot{face: face, ok: true}
}

// Empty returns an empty slot.
func Empty() Slot {
	return Slot{}
}

// Get returns the face and whether the slot is populated.
func (s Slot) Get() (FaceResult, bool) {
	return s.face, s.ok
}

// IsEmpty reports whether the slot holds no face.
func (s Slot) IsEmpty() bool {
	return !s.ok
}

// Results is a fixed-capacity, ordered set of face slots.
type Results struct {
	slots []Slot
}

// NewResults creates a result set with capacity empty slots.
func NewResults(capacity int) Results {
	if capacity < 0 {
		capacity = 0
	}
	return Results{slots: make([]Slot, capacity)}
}

// Len returns the number of slots, which is the capacity.
func (r Results) Len() int {
	return len(r.slots)
}

// At returns slot i, or an empty slot when i is out of range.
func (r Results) At(i int) Slot {
	if i < 0 || i >= len(r.slots) {
		return Slot{}
	}
	return r.slots[i]
}

// Count returns the number of populated slots.
func (r Results) Count() int {
	n := 0
	for _, s := range r.slots {
		if s.ok {
			n++
		}
	}
	return n
}

// Faces returns the populated slots in index order.
func (r Results) Faces() []FaceResult {
	faces := make([]FaceResult, 0, len(r.slots))
	for _, s := range r.slots {
		if s.ok {
			faces = append(faces, s.face)
		}
	}
	return faces
}

// Clone returns a copy that does not share storage with r.
func (r Results) Clone() Results {
	return Results{slots: append([]Slot(nil), r.slots...)}
}

// set stores s at index i. Out of range writes are dropped.
func (r Results) set(i int, s Slot) {
	if i < 0 || i >= len(r.slots) {
		return
	}
	r.slots[i] = s
}

// clear empties every slot.
func (r Results) clear() {
	for i := range r.slots {
		r.slots[i] = Slot{}
	}
}
