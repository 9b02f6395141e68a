package arbiter

// resumeStack is a LIFO, duplicate-free list of auto-paused endpoint ids,
// most recent first. It holds only identifiers; liveness is re-checked
// against the registry on pop.
type resumeStack struct {
	ids []string
}

// push inserts the id at the front, removing any pre-existing occurrence
// first so the stack never holds duplicates.
func (s *resumeStack) push(id string) {
	s.remove(id)
	s.ids = append([]string{id}, s.ids...)
}

// remove deletes the id from the stack if present. Idempotent.
func (s *resumeStack) remove(id string) {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
}

// pop removes and returns the most recently pushed id.
func (s *resumeStack) pop() (string, bool) {
	if len(s.ids) == 0 {
		return "", false
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id, true
}

func (s *resumeStack) contains(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *resumeStack) len() int {
	return len(s.ids)
}

// snapshot returns a copy of the stack contents, front first.
func (s *resumeStack) snapshot() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
