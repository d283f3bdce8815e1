package typesystem

import "github.com/funvibe/typelattice/internal/config"

// unionState records which branch was taken at each union decomposition
// site of one pass, one bit per site in order of encounter. A clear bit
// selects Union.A and a set bit selects Union.B.
//
// Only the first size bits are meaningful. When a pass reaches a site at
// depth >= size it sets more and the driver extends the stack.
type unionState struct {
	depth int
	size  int
	more  bool
	fast  [config.UnionStackFastWords]uint32
	spill []uint32
}

func (s *unionState) word(i int) *uint32 {
	w := i / 32
	if w < len(s.fast) {
		return &s.fast[w]
	}
	w -= len(s.fast)
	for len(s.spill) <= w {
		s.spill = append(s.spill, 0)
	}
	return &s.spill[w]
}

func (s *unionState) get(i int) bool {
	return *s.word(i)&(1<<uint(i%32)) != 0
}

func (s *unionState) set(i int, b bool) {
	w := s.word(i)
	if b {
		*w |= 1 << uint(i%32)
	} else {
		*w &^= 1 << uint(i%32)
	}
}

// push appends a slot selecting A.
func (s *unionState) push() {
	s.set(s.size, false)
	s.size++
}

func (s *unionState) pop() {
	s.size--
}

// setLast sets the most recently pushed slot.
func (s *unionState) setLast(b bool) {
	if s.size > 0 {
		s.set(s.size-1, b)
	}
}

func (s *unionState) reset() {
	s.depth = 0
	s.more = false
}

// next returns the choice for the current site and advances. ok is false when
// the site lies beyond the recorded stack.
func (s *unionState) next() (choice bool, ok bool) {
	if s.depth >= s.size {
		s.more = true
		return false, false
	}
	choice = s.get(s.depth)
	s.depth++
	return choice, true
}
