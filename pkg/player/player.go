// Package player abstracts the host video player. Switching items can
// be done the fast way when the host exposes its internal same-page
// switch, or by loading the full watch page, which always works.
package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/playmix/playmix/pkg/model"
)

// Controller switches the host player to another item and remembers
// what it is playing.
type Controller interface {
	Play(ctx context.Context, itemID string) error

	// Current returns the last item played through this controller,
	// or model.ErrNotFound when nothing has been played yet.
	Current() (string, error)
}

// Capability is a controller that may or may not work in the current
// host and has to be probed first.
type Capability interface {
	Controller

	// Available reports whether the capability can be used.
	Available(ctx context.Context) bool
}

// Select probes candidates in order and returns the first available
// one, falling back to the always-correct controller otherwise.
func Select(ctx context.Context, fallback Controller, candidates ...Capability) Controller {
	for _, candidate := range candidates {
		if candidate.Available(ctx) {
			return candidate
		}
	}

	log.Debug("no rich player capability available, using page navigation")
	return fallback
}

// WatchURL builds the full watch page URL for an item.
func WatchURL(itemID string) string {
	return fmt.Sprintf("https://youtube.com/watch?v=%s", itemID)
}

// PageController plays items by loading the full watch page. Slow but
// never wrong.
type PageController struct {
	open func(url string) error

	mu      sync.Mutex
	current string
}

func NewPageController(open func(url string) error) *PageController {
	return &PageController{open: open}
}

func (c *PageController) Play(_ context.Context, itemID string) error {
	if err := c.open(WatchURL(itemID)); err != nil {
		return errors.Wrapf(err, "failed to open watch page for %q", itemID)
	}

	c.mu.Lock()
	c.current = itemID
	c.mu.Unlock()
	return nil
}

func (c *PageController) Current() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == "" {
		return "", model.ErrNotFound
	}

	return c.current, nil
}

// InternalController uses a same-page switch hook discovered on the
// host at runtime.
type InternalController struct {
	apply func(itemID string) error

	mu      sync.Mutex
	current string
}

func NewInternalController(apply func(itemID string) error) *InternalController {
	return &InternalController{apply: apply}
}

func (c *InternalController) Available(_ context.Context) bool {
	return c.apply != nil
}

func (c *InternalController) Play(_ context.Context, itemID string) error {
	if c.apply == nil {
		return errors.New("internal player switch not discovered")
	}

	if err := c.apply(itemID); err != nil {
		return errors.Wrapf(err, "failed to switch player to %q", itemID)
	}

	c.mu.Lock()
	c.current = itemID
	c.mu.Unlock()
	return nil
}

func (c *InternalController) Current() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == "" {
		return "", model.ErrNotFound
	}

	return c.current, nil
}
