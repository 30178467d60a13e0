package ups

import (
	"context"

	"github.com/sweeney/upslist/internal/normalize"
)

// FakeSource is a test double for Fetcher.
//
// Vars maps an address to the variables returned for it; Errs maps an
// address to an error returned instead. Sequence, when set for an address,
// is stepped through one element per Fetch and its last element repeats,
// simulating a steady post-event state. Unknown addresses return empty Vars.
type FakeSource struct {
	Vars     map[string]normalize.Vars
	Sequence map[string][]normalize.Vars
	Errs     map[string]error
	Calls    []string
	Closed   bool
}

var _ Fetcher = (*FakeSource)(nil)

// Fetch returns a copy of the pre-seeded variables for address.
func (f *FakeSource) Fetch(_ context.Context, address string) (normalize.Vars, error) {
	f.Calls = append(f.Calls, address)
	if err := f.Errs[address]; err != nil {
		return nil, err
	}

	src := f.Vars[address]
	if seq := f.Sequence[address]; len(seq) > 0 {
		idx := f.CallCount(address) - 1
		if idx >= len(seq) {
			idx = len(seq) - 1 // repeat last element
		}
		src = seq[idx]
	}

	out := make(normalize.Vars, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}

// CallCount returns how many times address has been fetched.
func (f *FakeSource) CallCount(address string) int {
	n := 0
	for _, a := range f.Calls {
		if a == address {
			n++
		}
	}
	return n
}

// Close records that the source was closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// Reset clears all state so the fake can be reused between sub-tests.
func (f *FakeSource) Reset() {
	f.Vars = nil
	f.Sequence = nil
	f.Errs = nil
	f.Calls = nil
	f.Closed = false
}
