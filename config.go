package blecore

import (
	"io/ioutil"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Config holds the build-time options of the stack. It is process wide; set
// it before the stack is brought up.
type Config struct {
	// BufLog traces every buffer alloc, ref and unref with the caller location.
	BufLog bool `json:"buf_log"`
	// HeapDataPool enables the heap data strategy with a budget of that many bytes.
	HeapDataPool int `json:"heap_data_pool"`
	// WorkQueueNoYield stops work queue threads from yielding between items.
	WorkQueueNoYield bool `json:"work_queue_no_yield"`
	// PollNumTypes bounds the kinds of poll events accepted by poll.EventInit.
	PollNumTypes int `json:"poll_num_types"`

	OSBackend     string `json:"os_backend"`
	LogLevel      string `json:"log_level"`
	MainStackSize int    `json:"main_stack_size"`
	MainPriority  int    `json:"main_priority"`
}

const (
	BackendPOSIX = "posix"
	BackendRTOS  = "rtos"

	// MaxPollTypes covers IGNORE, SIGNAL, DATA_AVAILABLE and the reserved
	// MSGQ, PIPE and SEM kinds.
	MaxPollTypes = 6
)

func DefaultConfig() Config {
	return Config{
		PollNumTypes:  3,
		OSBackend:     BackendPOSIX,
		LogLevel:      "inf",
		MainStackSize: 2048,
	}
}

func (c *Config) Validate() error {
	if c.HeapDataPool < 0 {
		return Wrapf(EINVAL, "config", "heap_data_pool must be >= 0, got %d", c.HeapDataPool)
	}
	if c.PollNumTypes < 1 || c.PollNumTypes > MaxPollTypes {
		return Wrapf(EINVAL, "config", "poll_num_types must be in [1,%d], got %d", MaxPollTypes, c.PollNumTypes)
	}
	switch c.OSBackend {
	case BackendPOSIX, BackendRTOS:
	default:
		return Wrapf(EINVAL, "config", "unknown os backend %q", c.OSBackend)
	}
	if c.MainStackSize < 0 {
		return Wrapf(EINVAL, "config", "main_stack_size must be >= 0, got %d", c.MainStackSize)
	}
	return nil
}

var config = DefaultConfig()
var configMu sync.RWMutex

// SetConfig replaces the process wide config after validating it.
func SetConfig(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	configMu.Lock()
	defer configMu.Unlock()
	config = c
	return nil
}

// CurrentConfig returns a copy of the process wide config.
func CurrentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

// LoadConfig reads a JSON config file on top of the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return c, nil
	}

	in, err := ioutil.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "can't read config")
	}

	if err = jsoniter.Unmarshal(in, &c); err != nil {
		return c, errors.Wrap(err, "can't parse config")
	}

	return c, c.Validate()
}

// Apply runs opts against c in order.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}
