package blecore

// An Option is a configuration function, which configures the stack.
type Option func(*Config) error

// OptBufLog enables per-allocation buffer traces.
func OptBufLog(on bool) Option {
	return func(c *Config) error {
		c.BufLog = on
		return nil
	}
}

// OptHeapDataPool enables the heap data strategy with the given byte budget.
func OptHeapDataPool(bytes int) Option {
	return func(c *Config) error {
		if bytes < 0 {
			return Wrapf(EINVAL, "OptHeapDataPool", "negative size %d", bytes)
		}
		c.HeapDataPool = bytes
		return nil
	}
}

// OptWorkQueueNoYield disables yielding between work items.
func OptWorkQueueNoYield(on bool) Option {
	return func(c *Config) error {
		c.WorkQueueNoYield = on
		return nil
	}
}

// OptPollNumTypes sets the upper bound on poll event kinds.
func OptPollNumTypes(n int) Option {
	return func(c *Config) error {
		if n < 1 || n > MaxPollTypes {
			return Wrapf(EINVAL, "OptPollNumTypes", "%d out of range", n)
		}
		c.PollNumTypes = n
		return nil
	}
}

// OptOSBackend selects the OS abstraction backend by name.
func OptOSBackend(name string) Option {
	return func(c *Config) error {
		c.OSBackend = name
		return nil
	}
}

// OptLogLevel sets the default logger level.
func OptLogLevel(level string) Option {
	return func(c *Config) error {
		c.LogLevel = level
		return nil
	}
}

// OptMainQueue overrides the stack size and priority of main_work.
func OptMainQueue(stackSize, prio int) Option {
	return func(c *Config) error {
		c.MainStackSize = stackSize
		c.MainPriority = prio
		return nil
	}
}
