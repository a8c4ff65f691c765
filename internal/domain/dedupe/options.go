package dedupe

// Option applies a configuration option to the coalescer.
type Option func(*inMemoryCoalescer)

// WithFoldCase treats usernames differing only in case as the same account.
func WithFoldCase(fold bool) Option {
	return func(c *inMemoryCoalescer) {
		c.foldCase = fold
	}
}
