package server

import "gptscope/tokenizer"

// Session is the per-connection generation state: the growing token
// transcript plus a step counter. One session per connection, never shared;
// no locking is needed because requests on a connection are handled one at
// a time, in arrival order.
type Session struct {
	TokenIDs []int
	Step     int
}

// Reset discards the transcript and restarts it as [BOS] + prompt IDs.
func (s *Session) Reset(promptIDs []int) {
	ids := make([]int, 0, len(promptIDs)+1)
	ids = append(ids, tokenizer.BOS)
	ids = append(ids, promptIDs...)
	s.TokenIDs = ids
	s.Step = 0
}

// Active reports whether a prompt has been set on this session.
func (s *Session) Active() bool { return len(s.TokenIDs) > 0 }

// commit appends one sampled token and advances the step counter. Called
// only after the whole step pipeline succeeded, so a failed request leaves
// the transcript exactly as it was.
func (s *Session) commit(id int) {
	s.TokenIDs = append(s.TokenIDs, id)
	s.Step++
}
