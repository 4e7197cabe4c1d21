package signer

import (
	"runtime"
	"sync"
)

// secureBytes holds key material in memory that is locked against swapping
// where the platform allows it, and zeroed on Destroy.
type secureBytes struct {
	mu     sync.Mutex
	data   []byte
	locked bool
}

// newSecureBytes copies src into locked memory. src is not modified.
func newSecureBytes(src []byte) *secureBytes {
	sb := &secureBytes{data: make([]byte, len(src))}
	copy(sb.data, src)
	sb.locked = mlock(sb.data)

	runtime.SetFinalizer(sb, func(s *secureBytes) {
		s.Destroy()
	})
	return sb
}

// Bytes returns the held slice, or nil after Destroy.
func (s *secureBytes) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// IsLocked reports whether the memory is mlocked.
func (s *secureBytes) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Destroy zeros and unlocks the memory. Safe to call multiple times.
func (s *secureBytes) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return
	}
	wipe(s.data)
	if s.locked {
		munlock(s.data)
		s.locked = false
	}
	s.data = nil
	runtime.SetFinalizer(s, nil)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
