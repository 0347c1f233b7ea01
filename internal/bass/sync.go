package bass

import (
	"github.com/srg/bass/internal/iso"
)

// bisIndices flattens the requested masks into 1-based BIS indices.
// No-preference masks yield nothing; the list is capped at MaxBISPerSource.
func (s *Source) bisIndices() []uint8 {
	var out []uint8
	for _, mask := range s.pending {
		if mask == BISSyncNoPreference {
			continue
		}
		for bit := 0; bit < maxBISBitmaskIndex; bit++ {
			if mask&(1<<bit) == 0 {
				continue
			}
			if len(out) == MaxBISPerSource {
				return out
			}
			out = append(out, uint8(bit+1))
		}
	}
	return out
}

func (s *Source) hasPending() bool {
	for _, mask := range s.pending {
		if mask != 0 {
			return true
		}
	}
	return false
}

// grantNext moves the lowest pending bit of the first subgroup that has one
// into that subgroup's granted mask. It reports whether a bit moved.
func (s *Source) grantNext() bool {
	for i, mask := range s.pending {
		for bit := 0; bit < maxBISBitmaskIndex; bit++ {
			if mask&(1<<bit) == 0 {
				continue
			}
			s.Subgroups[i].BISSync |= 1 << bit
			s.pending[i] &^= 1 << bit
			return true
		}
	}
	return false
}

// grantAll copies every requested mask into the granted field.
func (s *Source) grantAll() {
	for i := range s.Subgroups {
		s.Subgroups[i].BISSync = s.pending[i]
		s.pending[i] = 0
	}
}

// accept records one established BIS. It reports true once nothing is pending,
// which is the only point where the peer hears about the outcome.
func (s *Source) accept(conn iso.Conn) bool {
	if s.PASync == PANotSynchronized {
		s.PASync = PASynchronized
	}
	s.bises = append(s.bises, conn)
	s.grantNext()
	return !s.hasPending()
}

// finalize probes the last accepted BIS. On error every stream and the listener
// are released and every granted mask is replaced by BIGSyncFailed.
func (s *Source) finalize(last iso.Conn) error {
	err := last.Err()
	if err == nil {
		return nil
	}
	s.release()
	for i := range s.Subgroups {
		s.Subgroups[i].BISSync = BIGSyncFailed
	}
	return err
}

// release closes every accepted BIS and the listener.
func (s *Source) release() {
	for _, c := range s.bises {
		_ = c.Close()
	}
	s.bises = nil
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// blocksRemoval reports whether the delegator is synchronized to the PA or to
// any BIS of the source.
func (s *Source) blocksRemoval() bool {
	if s.PASync == PASynchronized {
		return true
	}
	for _, sg := range s.Subgroups {
		if sg.BISSync != 0 {
			return true
		}
	}
	return false
}
