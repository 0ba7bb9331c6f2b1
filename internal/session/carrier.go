// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"sync"
)

// Carrier holds the caller's session token for the duration of a request.
// The transport reads the token from the request into a Carrier, and writes
// it back to the response after the handler runs.
type Carrier struct {
	mu      sync.Mutex
	token   string
	changed bool
}

// NewCarrier returns a Carrier holding token. An empty token is an anonymous caller.
func NewCarrier(token string) *Carrier {
	return &Carrier{token: token}
}

// Token returns the current token.
func (c *Carrier) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Changed reports whether the token was replaced during the request.
func (c *Carrier) Changed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

func (c *Carrier) replace(token string) (previous string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous = c.token
	c.token = token
	c.changed = true
	return previous
}

type carrierKey struct{}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c *Carrier) context.Context {
	return context.WithValue(ctx, carrierKey{}, c)
}

// FromContext returns the Carrier in ctx, if any.
func FromContext(ctx context.Context) (*Carrier, bool) {
	c, ok := ctx.Value(carrierKey{}).(*Carrier)
	return c, ok && c != nil
}
