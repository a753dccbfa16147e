// Package storage holds pinned key bundles by content identifier.
//
// Every object is addressed by the CIDv1 (raw + sha2-256) of its bytes, so a
// verifier that was handed a bundle CID out of band can check it received
// exactly the keys it was told to trust.
package storage

import (
	"sort"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/cred/cidutil"
)

// CAS is a content-addressed object store.
//
// Put is idempotent and objects never change once stored. Get returns
// ErrNotFound for absent objects and ErrCIDMismatch if stored bytes no longer
// hash to their CID.
type CAS interface {
	Put(data []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// Lister is implemented by stores that can enumerate their contents.
type Lister interface {
	List() ([]cid.Cid, error)
}

// Memory is an in-process CAS. The zero value is ready to use.
type Memory struct {
	mu      sync.RWMutex
	objects map[cid.Cid][]byte
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[cid.Cid][]byte)
	}
	if _, ok := m.objects[id]; !ok {
		m.objects[id] = append([]byte(nil), data...)
	}
	return id, nil
}

func (m *Memory) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[id]
	return ok
}

// List returns stored CIDs in string order.
func (m *Memory) List() ([]cid.Cid, error) {
	m.mu.RLock()
	out := make([]cid.Cid, 0, len(m.objects))
	for id := range m.objects {
		out = append(out, id)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
