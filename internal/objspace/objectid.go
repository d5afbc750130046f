package objspace

// ObjectID returns the monotonic id for r, allocating one on first call
// (spec.md §4.7/§6 object_id). IDs are strided by objIDIncrement so
// they never collide with the host's tagged immediates (spec.md §3).
func (os *ObjectSpace) ObjectID(r Ref) int64 {
	if !r.Valid() {
		return 0
	}
	if id, ok := os.objToID[r]; ok {
		return id
	}
	id := os.nextID
	os.nextID += objIDIncrement
	os.objToID[r] = id
	// The reverse map is built lazily on first reverse lookup, not
	// here — see ObjectIDToRef. This mirrors the original's observed
	// laziness rather than the unsettled "eager at set_finalizer time"
	// alternative spec.md §9 flags as an open question.
	if os.idToObj != nil {
		os.idToObj[id] = r
	}
	return id
}

// ObjectIDToRef resolves id back to its Ref, building the reverse map
// with one linear pass over objToID on first call if it doesn't exist
// yet (spec.md §4.7 "the reverse table id→obj is built lazily on first
// reverse lookup (one linear pass over obj→id)"). Returns a RangeError
// if id is unknown or was recycled after its object was collected
// (spec.md §6 object_id_to_ref).
func (os *ObjectSpace) ObjectIDToRef(id int64) (Ref, error) {
	if os.idToObj == nil {
		os.idToObj = make(map[int64]Ref, len(os.objToID))
		for r, rid := range os.objToID {
			os.idToObj[rid] = r
		}
	}
	r, ok := os.idToObj[id]
	if !ok {
		return Ref{}, RangeError{Msg: "objspace: object id not found or recycled"}
	}
	return r, nil
}

// forgetObjectID drops bookkeeping for a collected slot's id, called
// from sweep so a freed id is never reissued (spec.md §8 property 7:
// "thereafter the id is never reissued").
func (os *ObjectSpace) forgetObjectID(r Ref) {
	id, ok := os.objToID[r]
	if !ok {
		return
	}
	delete(os.objToID, r)
	if os.idToObj != nil {
		delete(os.idToObj, id)
	}
}
