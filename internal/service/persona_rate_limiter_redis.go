package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPersonaAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisPersonaRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisPersonaRateLimiter crea un rate limiter compartido entre instancias,
// respaldado por Redis. Con client nil devuelve nil para que el caller caiga
// al limiter en memoria.
func NewRedisPersonaRateLimiter(client *redis.Client, window time.Duration, max int) PersonaRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisPersonaRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "persona:rl:",
	}
}

func (l *redisPersonaRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	redisKey := l.prefix + normalizedKey
	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisPersonaAllowScript, []string{redisKey}, seconds).Int()
	if err != nil {
		// Redis caido no debe tumbar la generacion de personas.
		return true
	}
	return count <= l.max
}
