package engine

import (
	"time"

	"chatd/internal/llm"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxSessions      = 4
	defaultTickInterval     = 5 * time.Millisecond
	defaultNumPredict       = 256
	defaultCompletionBuffer = 256
	defaultInboundBuffer    = 64
	defaultMaxStallTicks    = 2000
)

// Config encapsulates all tunables for Engine construction.
type Config struct {
	// MaxSessions caps simultaneously active generation sessions.
	MaxSessions int
	// TickInterval is the scheduler sleep between ticks.
	TickInterval time.Duration
	// NumPredict is the chunk limit applied when a request omits its own.
	NumPredict int
	// CompletionBuffer bounds the persistence hand-off channel. Records
	// arriving while it is full are dropped with an error log.
	CompletionBuffer int
	// MaxStallTicks bounds how many consecutive ticks a session may hold an
	// undeliverable chunk before its receiver is treated as gone.
	MaxStallTicks int
	// Params are the sampling defaults merged under per-request overrides.
	Params llm.InferParams
}

func (c Config) withDefaults() Config {
	if c.MaxSessions <= 0 {
		c.MaxSessions = defaultMaxSessions
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.NumPredict <= 0 {
		c.NumPredict = defaultNumPredict
	}
	if c.CompletionBuffer <= 0 {
		c.CompletionBuffer = defaultCompletionBuffer
	}
	if c.MaxStallTicks <= 0 {
		c.MaxStallTicks = defaultMaxStallTicks
	}
	return c
}
