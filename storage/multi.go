package storage

import (
	"github.com/ipfs/go-cid"
)

// Layered reads through several stores in slice order and writes to the
// first. It lets a verifier combine a writable user store with read-only
// bundle directories shipped alongside it.
type Layered []CAS

func (l Layered) Put(data []byte) (cid.Cid, error) {
	if len(l) == 0 {
		return cid.Undef, ErrNoStores
	}
	return l[0].Put(data)
}

// Get returns the first copy found. Errors other than ErrNotFound stop the
// search, so a corrupted object is reported rather than masked.
func (l Layered) Get(id cid.Cid) ([]byte, error) {
	for _, s := range l {
		b, err := s.Get(id)
		if err == nil {
			return b, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (l Layered) Has(id cid.Cid) bool {
	for _, s := range l {
		if s.Has(id) {
			return true
		}
	}
	return false
}

// List merges the listings of every store that supports it.
func (l Layered) List() ([]cid.Cid, error) {
	seen := make(map[cid.Cid]bool)
	var out []cid.Cid
	for _, s := range l {
		lister, ok := s.(Lister)
		if !ok {
			continue
		}
		ids, err := lister.List()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}
