package scmcore

import "time"

// Option configures a Config field, following the teacher's functional-
// options convention (internal/lexer.LexerOption / WithPreserveComments).
type Option func(*Config)

func WithMaxWorkerThreads(n int) Option {
	return func(c *Config) { c.MaxWorkerThreads = n }
}

func WithHeapBytes(young, old uint64) Option {
	return func(c *Config) { c.YoungHeapBytes = young; c.OldHeapBytes = old }
}

func WithHotspotThreshold(executions uint64, elapsed time.Duration) Option {
	return func(c *Config) { c.HotspotExecutions = executions; c.HotspotTime = elapsed }
}

func WithCodeCacheCapacity(n int) Option {
	return func(c *Config) { c.CodeCacheCapacity = n }
}

func WithJIT(enable bool) Option {
	return func(c *Config) { c.EnableJIT = enable }
}

func WithPGO(enable bool) Option {
	return func(c *Config) { c.EnablePGO = enable }
}

func WithSpeculativeCompile(enable bool) Option {
	return func(c *Config) { c.EnableSpeculativeCompile = enable }
}

func WithGCMode(mode GCMode) Option {
	return func(c *Config) { c.GCMode = mode }
}
