package service

import (
	"sync"
	"time"
)

// PersonaRateLimiter limita la frecuencia de generacion de personas por clave
// (un id de usuario o IP). Perder una cuenta nunca es incorrecto, solo mas
// permisivo, asi que las implementaciones fallan abiertas.
type PersonaRateLimiter interface {
	Allow(key string) bool
}

type personaRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

// NewPersonaRateLimiter crea un rate limiter en memoria.
func NewPersonaRateLimiter(window time.Duration, max int) PersonaRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &personaRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

func (l *personaRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return true
}
