package dataset

// InstructionSet tracks instructions already emitted in a run. It keeps
// insertion order so samples are stable.
type InstructionSet struct {
	seen  map[string]struct{}
	order []string
}

// NewInstructionSet seeds a set from existing pairs
func NewInstructionSet(pairs []TrainingPair) *InstructionSet {
	s := &InstructionSet{seen: make(map[string]struct{}, len(pairs))}
	for _, p := range pairs {
		s.Add(p.Instruction)
	}
	return s
}

// Add inserts an instruction and reports whether it was new
func (s *InstructionSet) Add(instruction string) bool {
	if _, ok := s.seen[instruction]; ok {
		return false
	}
	s.seen[instruction] = struct{}{}
	s.order = append(s.order, instruction)
	return true
}

// Contains reports whether the instruction has been seen
func (s *InstructionSet) Contains(instruction string) bool {
	_, ok := s.seen[instruction]
	return ok
}

// Len returns the number of distinct instructions
func (s *InstructionSet) Len() int {
	return len(s.order)
}

// First returns up to n instructions in insertion order
func (s *InstructionSet) First(n int) []string {
	if n > len(s.order) {
		n = len(s.order)
	}
	out := make([]string, n)
	copy(out, s.order[:n])
	return out
}
