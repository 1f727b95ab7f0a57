package enginenode

import (
	"sync"

	contractx "github.com/planscout/planscout/agent/contract"
)

// BatchStash parks a research batch while the engine waits for the user to
// pick a target section. Entries are transient and never persisted.
type BatchStash struct {
	mu sync.Mutex
	m  map[string]contractx.ResearchBatch
}

func NewBatchStash() *BatchStash {
	return &BatchStash{m: make(map[string]contractx.ResearchBatch)}
}

func (s *BatchStash) Put(sessionID string, batch contractx.ResearchBatch) {
	s.mu.Lock()
	s.m[sessionID] = batch
	s.mu.Unlock()
}

// Take removes and returns the parked batch for a session.
func (s *BatchStash) Take(sessionID string) (contractx.ResearchBatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.m[sessionID]
	if ok {
		delete(s.m, sessionID)
	}
	return batch, ok
}

func (s *BatchStash) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.m, sessionID)
	s.mu.Unlock()
}
