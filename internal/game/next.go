package game

import (
	"math/rand"

	"mirror-match-backend/internal/model"
)

const (
	ModeSequential = "sequential"
	ModeRandom     = "random"
)

// Next picks the emotion that follows current. Sequential mode wraps around
// the catalog; random mode never returns current when the catalog has more
// than one entry. An unknown current starts from the first emotion.
func (c *Catalog) Next(current, mode string, rng *rand.Rand) model.TargetEmotion {
	i := c.index(current)
	if mode != ModeRandom || len(c.emotions) < 2 {
		return c.emotions[(i+1)%len(c.emotions)]
	}

	if i < 0 {
		return c.emotions[rng.Intn(len(c.emotions))]
	}
	// 跳过当前表情
	j := rng.Intn(len(c.emotions) - 1)
	if j >= i {
		j++
	}
	return c.emotions[j]
}
