// Package pkmncache provides pkmn.Cache backends.
package pkmncache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is an in-process LRU with a per-entry TTL.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory keeps at most size entries; ttl <= 0 disables expiry.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 256
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *Memory) Set(_ context.Context, key string, value []byte) {
	m.lru.Add(key, value)
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}
