package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"mirror-match-backend/internal/game"
)

// MockClient is the offline back end. It ignores the image and picks a
// random emotion from the catalog with a confidence drawn from that
// emotion's range, then answers in the same fenced-JSON shape a real model
// tends to use.
type MockClient struct {
	catalog *game.Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockClient(catalog *game.Catalog, rng *rand.Rand) *MockClient {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockClient{catalog: catalog, rng: rng}
}

func (c *MockClient) Name() string {
	return ProviderMock
}

func (c *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	emotions := c.catalog.Emotions()

	c.mu.Lock()
	picked := emotions[c.rng.Intn(len(emotions))]
	lo, hi := picked.MinConfidence, picked.MaxConfidence
	if hi <= lo {
		lo, hi = 0.6, 0.9
	}
	confidence := math.Min(0.99, lo+c.rng.Float64()*(hi-lo))
	feedback := picked.Feedback.Success
	if len(picked.Cheers) > 0 {
		feedback = picked.Cheers[c.rng.Intn(len(picked.Cheers))]
	}
	c.mu.Unlock()

	payload, err := json.Marshal(map[string]interface{}{
		"emotion":    picked.Name,
		"confidence": math.Round(confidence*100) / 100,
		"feedback":   feedback,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Here is my analysis:\n```json\n%s\n```", payload), nil
}
