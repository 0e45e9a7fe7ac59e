package provider

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// KeyProvider hands out an API token for the next upstream call.
type KeyProvider interface {
	Get() string
}

// APIKeys rotates through the configured tokens round-robin so quota
// burn spreads evenly across all of them. Blank entries are dropped.
type APIKeys struct {
	tokens []string
	next   uint64
}

func NewKeyProvider(tokens []string) (*APIKeys, error) {
	clean := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token != "" {
			clean = append(clean, token)
		}
	}

	if len(clean) == 0 {
		return nil, errors.New("at least one non-empty API token required")
	}

	return &APIKeys{tokens: clean}, nil
}

func (k *APIKeys) Get() string {
	n := atomic.AddUint64(&k.next, 1) - 1
	return k.tokens[n%uint64(len(k.tokens))]
}
