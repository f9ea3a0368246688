package companion

import (
	"math/rand/v2"
	"sync"
)

// ReactionController decides when a parsed reaction emoji is actually
// surfaced. The model attaches one to nearly every turn; reacting every
// time reads as mechanical, so each user gets a countdown reseeded
// uniformly from [minTurns, maxTurns]. State is in-memory only; a restart
// resets the cadence, which is fine for a cosmetic behavior.
type ReactionController struct {
	mu        sync.Mutex
	countdown map[int32]int
	minTurns  int
	maxTurns  int
}

func NewReactionController(minTurns, maxTurns int) *ReactionController {
	if minTurns < 1 {
		minTurns = 1
	}
	if maxTurns < minTurns {
		maxTurns = minTurns
	}
	return &ReactionController{
		countdown: make(map[int32]int),
		minTurns:  minTurns,
		maxTurns:  maxTurns,
	}
}

// ShouldReact decrements the user's countdown and reports whether this turn
// reacts. Reaching zero reacts and reseeds.
func (c *ReactionController) ShouldReact(userID int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining, ok := c.countdown[userID]
	if !ok {
		remaining = c.seed()
	}
	remaining--
	if remaining <= 0 {
		c.countdown[userID] = c.seed()
		return true
	}
	c.countdown[userID] = remaining
	return false
}

func (c *ReactionController) seed() int {
	return c.minTurns + rand.IntN(c.maxTurns-c.minTurns+1)
}
