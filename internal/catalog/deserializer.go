// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrCommandNotFound is returned when the top-level token of a request
// vector does not name a registered command.
var ErrCommandNotFound = errors.New("command not found")

// CommandNotFoundError names the token that failed catalog lookup. Per
// SPEC_FULL.md §4.6, this can only ever be the top-level command token:
// an unmatched second token falls through to a Data node, never to a
// catalog miss.
type CommandNotFoundError struct {
	Token string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("command '%s' not found", e.Token)
}

func (e *CommandNotFoundError) Unwrap() error { return ErrCommandNotFound }

// Deserializer converts a string vector into a Node tree against a
// Catalog, memoizing identical inputs.
type Deserializer struct {
	catalog *Catalog
	cache   *lru.Cache[string, Node]
}

// NewDeserializer builds a Deserializer backed by an LRU cache of the given
// capacity (the caching.size config key).
func NewDeserializer(cat *Catalog, cacheSize int) (*Deserializer, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, Node](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("deserializer: new cache: %w", err)
	}
	return &Deserializer{catalog: cat, cache: cache}, nil
}

// memoKey encodes the argument tuple plus the recursive flag, matching the
// memoization contract in SPEC_FULL.md §4.2: identical (tokens, recursive)
// pairs must return a structurally equal, referentially-stable result.
func memoKey(tokens []string, recursive bool) string {
	var b strings.Builder
	if recursive {
		b.WriteString("r:")
	} else {
		b.WriteString("t:")
	}
	for _, t := range tokens {
		b.WriteString(t)
		b.WriteByte(0)
	}
	return b.String()
}

// Convert deserializes a top-level request vector.
func (d *Deserializer) Convert(request []string) (Node, error) {
	return d.convert(request, false)
}

func (d *Deserializer) convert(request []string, recursive bool) (Node, error) {
	key := memoKey(request, recursive)
	if cached, ok := d.cache.Get(key); ok {
		return cached, nil
	}

	node, err := d.convertUncached(request, recursive)
	if err != nil {
		return nil, err
	}

	d.cache.Add(key, node)
	return node, nil
}

func (d *Deserializer) convertUncached(request []string, recursive bool) (Node, error) {
	if len(request) == 0 {
		return End{}, nil
	}

	if !recursive {
		cmd := strings.ToLower(request[0])
		if !d.catalog.HasCommand(cmd) {
			return nil, &CommandNotFoundError{Token: cmd}
		}

		if len(request) == 1 {
			return Command{This: cmd, Next: End{}}, nil
		}

		sub := request[1]
		rest := request[2:]
		if d.catalog.HasSubCommand(cmd, sub) {
			next, err := d.convert(rest, true)
			if err != nil {
				return nil, err
			}
			return Command{This: cmd, Next: SubCommand{This: sub, Next: next}}, nil
		}

		next, err := d.convert(rest, true)
		if err != nil {
			return nil, err
		}
		return Command{This: cmd, Next: Data{This: sub, Next: next}}, nil
	}

	head := request[0]
	next, err := d.convert(request[1:], true)
	if err != nil {
		return nil, err
	}
	return Data{This: head, Next: next}, nil
}
