// Package keybundle pins resolved keys into a deterministic CBOR document
// stored by CID. Loading a bundle seeds a resolver cache, so envelopes
// signed by pinned keys verify without network access.
package keybundle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"

	"xdao.co/cred/keys"
	"xdao.co/cred/resolver"
	"xdao.co/cred/storage"
)

// FormatVersion is the bundle layout version.
const FormatVersion = 1

var ErrUnsupportedVersion = errors.New("keybundle: unsupported format version")

// Bundle is a set of pinned keys ordered by KeyID.
type Bundle struct {
	Version int     `cbor:"1,keyasint"`
	Keys    []Entry `cbor:"2,keyasint"`
}

// Entry is one pinned key and where it was originally found.
type Entry struct {
	KeyID  string `cbor:"1,keyasint"`
	Source string `cbor:"2,keyasint"`
	PEM    string `cbor:"3,keyasint"`
	Origin string `cbor:"4,keyasint,omitempty"`
}

var encMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

var decMode = func() cbor.DecMode {
	opts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	mode, err := opts.DecMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// FromRecords builds a bundle. A KeyID seen twice keeps its first record.
func FromRecords(records []resolver.KeyRecord) Bundle {
	seen := make(map[string]bool, len(records))
	b := Bundle{Version: FormatVersion}
	for _, r := range records {
		if seen[r.KeyID] {
			continue
		}
		seen[r.KeyID] = true
		b.Keys = append(b.Keys, Entry{KeyID: r.KeyID, Source: string(r.Source), PEM: r.PEM, Origin: r.Origin})
	}
	sort.Slice(b.Keys, func(i, j int) bool { return b.Keys[i].KeyID < b.Keys[j].KeyID })
	return b
}

// Records converts entries back into key records.
func (b Bundle) Records() []resolver.KeyRecord {
	out := make([]resolver.KeyRecord, 0, len(b.Keys))
	for _, e := range b.Keys {
		out = append(out, resolver.NewRecord(e.KeyID, resolver.SourceKind(e.Source), e.PEM, e.Origin))
	}
	return out
}

// Validate checks the version, ordering and that every PEM parses.
func (b Bundle) Validate() error {
	if b.Version != FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, b.Version)
	}
	for i, e := range b.Keys {
		if e.KeyID == "" {
			return fmt.Errorf("keybundle: entry %d has no key id", i)
		}
		if i > 0 && b.Keys[i-1].KeyID >= e.KeyID {
			return fmt.Errorf("keybundle: entries not strictly ordered at %q", e.KeyID)
		}
		if _, err := keys.ParsePublicKeyPEM(e.PEM); err != nil {
			return fmt.Errorf("keybundle: key %q: %w", e.KeyID, err)
		}
	}
	return nil
}

// Encode returns the deterministic CBOR encoding of b.
func Encode(b Bundle) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return encMode.Marshal(b)
}

// Decode parses and validates a bundle.
func Decode(data []byte) (Bundle, error) {
	var b Bundle
	if err := decMode.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("keybundle: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// Store encodes the records and puts them into cas.
func Store(cas storage.CAS, records []resolver.KeyRecord) (cid.Cid, error) {
	data, err := Encode(FromRecords(records))
	if err != nil {
		return cid.Undef, err
	}
	return cas.Put(data)
}

// Load reads and decodes the bundle stored under id.
func Load(cas storage.CAS, id cid.Cid) (Bundle, error) {
	data, err := cas.Get(id)
	if err != nil {
		return Bundle{}, err
	}
	return Decode(data)
}

// Seed puts every bundle key into cache and returns how many were new.
// Keys already cached are left alone.
func Seed(cache *resolver.Cache, b Bundle) int {
	n := 0
	for _, rec := range b.Records() {
		if _, ok := cache.Get(rec.KeyID); ok {
			continue
		}
		cache.Put(rec)
		n++
	}
	return n
}
