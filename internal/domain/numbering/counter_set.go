package numbering

// Ticket orders mutating requests issued for the same series
type Ticket uint64

// CounterSet is the locally cached list of counters.
//
// Writes for a series are ordered by the ticket taken when the request was
// issued: a response whose ticket is older than the last merged ticket for the
// same series is stale and is dropped. CounterSet is not safe for concurrent
// use; owners serialize access.
type CounterSet struct {
	counters []SeriesCounter
	index    map[string]int
	issued   Ticket
	applied  map[string]Ticket
	version  uint64
}

// NewCounterSet creates an empty counter set
func NewCounterSet() *CounterSet {
	return &CounterSet{
		index:   make(map[string]int),
		applied: make(map[string]Ticket),
	}
}

// Issue hands out the ticket for a request about to be sent
func (s *CounterSet) Issue() Ticket {
	s.issued++
	return s.issued
}

// Merge applies a counter returned by the authority: it replaces the entry with
// the same series code, or appends it. It returns false when the write is stale.
func (s *CounterSet) Merge(counter SeriesCounter, ticket Ticket) bool {
	code := NormalizeSeriesCode(counter.SeriesCode)
	if last, ok := s.applied[code]; ok && ticket < last {
		return false
	}
	s.applied[code] = ticket
	s.version++
	counter.SeriesCode = code
	counter.Version = s.version

	if i, ok := s.index[code]; ok {
		s.counters[i] = counter
		return true
	}
	s.index[code] = len(s.counters)
	s.counters = append(s.counters, counter)
	return true
}

// MergeAll merges a batch of counters issued under one ticket and returns how
// many were applied.
func (s *CounterSet) MergeAll(counters []SeriesCounter, ticket Ticket) int {
	applied := 0
	for _, c := range counters {
		if s.Merge(c, ticket) {
			applied++
		}
	}
	return applied
}

// Replace swaps the whole set for a fresh listing. Series with a mutation
// merged after the listing was issued keep their newer local value.
func (s *CounterSet) Replace(counters []SeriesCounter, ticket Ticket) {
	kept := make(map[string]SeriesCounter)
	for code, last := range s.applied {
		if last > ticket {
			if c, ok := s.Get(code); ok {
				kept[code] = c
			}
		}
	}

	s.counters = s.counters[:0]
	s.index = make(map[string]int, len(counters))
	for _, c := range counters {
		code := NormalizeSeriesCode(c.SeriesCode)
		if newer, ok := kept[code]; ok {
			s.index[code] = len(s.counters)
			s.counters = append(s.counters, newer)
			delete(kept, code)
			continue
		}
		s.applied[code] = ticket
		s.version++
		c.SeriesCode = code
		c.Version = s.version
		s.index[code] = len(s.counters)
		s.counters = append(s.counters, c)
	}
	for code, c := range kept {
		s.index[code] = len(s.counters)
		s.counters = append(s.counters, c)
	}
}

// Get returns the cached counter of a series
func (s *CounterSet) Get(series string) (SeriesCounter, bool) {
	i, ok := s.index[NormalizeSeriesCode(series)]
	if !ok {
		return SeriesCounter{}, false
	}
	return s.counters[i], true
}

// List returns a copy of the cached counters in insertion order
func (s *CounterSet) List() []SeriesCounter {
	out := make([]SeriesCounter, len(s.counters))
	copy(out, s.counters)
	return out
}

// Len returns the number of cached counters
func (s *CounterSet) Len() int {
	return len(s.counters)
}

// Version returns the version of the most recent merge
func (s *CounterSet) Version() uint64 {
	return s.version
}
