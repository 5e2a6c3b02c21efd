package idgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator yields ids for newly created entities. Injected so tests can
// supply deterministic ids.
type Generator interface {
	NewId() (string, error)
}

type uuidGenerator struct{}

func NewUUIDGenerator() Generator {
	return &uuidGenerator{}
}

func (g *uuidGenerator) NewId() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Sequential produces prefix-1, prefix-2, ... and never fails.
type Sequential struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

func (g *Sequential) NewId() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next), nil
}
