package resilience

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Category names a downstream dependency class. Every call into a category
// shares that category's admission budget and breaker.
type Category string

const (
	CategoryClearingSystem Category = "clearing-system"
	CategoryAuthService    Category = "auth-service"
	CategoryConfigService  Category = "config-service"
	CategoryWebhook        Category = "webhook"
	CategoryKafka          Category = "kafka"
)

// Categories lists the known categories in a stable order.
var Categories = []Category{
	CategoryClearingSystem,
	CategoryAuthService,
	CategoryConfigService,
	CategoryWebhook,
	CategoryKafka,
}

// BreakerPolicy configures a Breaker. FailureRateThreshold is a percentage.
type BreakerPolicy struct {
	FailureRateThreshold float64       `yaml:"failureRateThreshold"`
	SlidingWindowSize    int           `yaml:"slidingWindowSize"`
	MinimumCalls         int           `yaml:"minimumCalls"`
	WaitInOpen           time.Duration `yaml:"waitInOpen"`
	HalfOpenCalls        int           `yaml:"halfOpenCalls"`
	AutomaticTransition  bool          `yaml:"automaticTransition"`
}

// RetryPolicy configures exponential backoff between physical attempts.
// MaxAttempts counts the first try.
type RetryPolicy struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	Multiplier     float64       `yaml:"multiplier"`
	MaxBackoff     time.Duration `yaml:"maxBackoff"`
	Jitter         float64       `yaml:"jitter"`
}

type TimeLimiterPolicy struct {
	Timeout time.Duration `yaml:"timeout"`
}

type BulkheadPolicy struct {
	MaxConcurrent int           `yaml:"maxConcurrent"`
	MaxWait       time.Duration `yaml:"maxWait"`
}

// RateLimiterPolicy admits LimitForPeriod calls per Period, waiting at most
// Timeout for the next period before rejecting.
type RateLimiterPolicy struct {
	LimitForPeriod int           `yaml:"limitForPeriod"`
	Period         time.Duration `yaml:"period"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Policy is the full configuration of one category's pipeline.
type Policy struct {
	CircuitBreaker BreakerPolicy     `yaml:"circuitBreaker"`
	Retry          RetryPolicy       `yaml:"retry"`
	TimeLimiter    TimeLimiterPolicy `yaml:"timeLimiter"`
	Bulkhead       BulkheadPolicy    `yaml:"bulkhead"`
	RateLimiter    RateLimiterPolicy `yaml:"rateLimiter"`
}

// Validate reports the first out-of-range field.
func (p Policy) Validate() error {
	switch {
	case p.CircuitBreaker.FailureRateThreshold <= 0 || p.CircuitBreaker.FailureRateThreshold > 100:
		return errors.New("circuitBreaker.failureRateThreshold must be in (0, 100]")
	case p.CircuitBreaker.SlidingWindowSize < 1:
		return errors.New("circuitBreaker.slidingWindowSize must be positive")
	case p.CircuitBreaker.MinimumCalls < 1 || p.CircuitBreaker.MinimumCalls > p.CircuitBreaker.SlidingWindowSize:
		return errors.New("circuitBreaker.minimumCalls must be between 1 and slidingWindowSize")
	case p.CircuitBreaker.WaitInOpen <= 0:
		return errors.New("circuitBreaker.waitInOpen must be positive")
	case p.CircuitBreaker.HalfOpenCalls < 1:
		return errors.New("circuitBreaker.halfOpenCalls must be positive")
	case p.Retry.MaxAttempts < 1:
		return errors.New("retry.maxAttempts must be at least 1")
	case p.Retry.InitialBackoff < 0 || p.Retry.Multiplier < 1:
		return errors.New("retry backoff must be non-negative with multiplier >= 1")
	case p.TimeLimiter.Timeout <= 0:
		return errors.New("timeLimiter.timeout must be positive")
	case p.Bulkhead.MaxConcurrent < 1 || p.Bulkhead.MaxWait < 0:
		return errors.New("bulkhead needs maxConcurrent >= 1 and a non-negative maxWait")
	case p.RateLimiter.LimitForPeriod < 1 || p.RateLimiter.Period <= 0 || p.RateLimiter.Timeout < 0:
		return errors.New("rateLimiter needs limitForPeriod >= 1, a positive period and a non-negative timeout")
	}
	return nil
}

// DefaultPolicies returns the compiled-in policy for every category.
func DefaultPolicies() map[Category]Policy {
	return map[Category]Policy{
		CategoryClearingSystem: {
			CircuitBreaker: BreakerPolicy{FailureRateThreshold: 50, SlidingWindowSize: 10, MinimumCalls: 5, WaitInOpen: 30 * time.Second, HalfOpenCalls: 3, AutomaticTransition: true},
			Retry:          RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, Multiplier: 2, MaxBackoff: 8 * time.Second, Jitter: 0.2},
			TimeLimiter:    TimeLimiterPolicy{Timeout: 30 * time.Second},
			Bulkhead:       BulkheadPolicy{MaxConcurrent: 20, MaxWait: 500 * time.Millisecond},
			RateLimiter:    RateLimiterPolicy{LimitForPeriod: 50, Period: time.Second, Timeout: 250 * time.Millisecond},
		},
		CategoryAuthService: {
			CircuitBreaker: BreakerPolicy{FailureRateThreshold: 50, SlidingWindowSize: 10, MinimumCalls: 5, WaitInOpen: 20 * time.Second, HalfOpenCalls: 2, AutomaticTransition: true},
			Retry:          RetryPolicy{MaxAttempts: 3, InitialBackoff: 500 * time.Millisecond, Multiplier: 2, MaxBackoff: 4 * time.Second, Jitter: 0.2},
			TimeLimiter:    TimeLimiterPolicy{Timeout: 15 * time.Second},
			Bulkhead:       BulkheadPolicy{MaxConcurrent: 25, MaxWait: 500 * time.Millisecond},
			RateLimiter:    RateLimiterPolicy{LimitForPeriod: 100, Period: time.Second, Timeout: 250 * time.Millisecond},
		},
		CategoryConfigService: {
			CircuitBreaker: BreakerPolicy{FailureRateThreshold: 50, SlidingWindowSize: 10, MinimumCalls: 5, WaitInOpen: 30 * time.Second, HalfOpenCalls: 3, AutomaticTransition: true},
			Retry:          RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, Multiplier: 1.5, MaxBackoff: 5 * time.Second, Jitter: 0.2},
			TimeLimiter:    TimeLimiterPolicy{Timeout: 20 * time.Second},
			Bulkhead:       BulkheadPolicy{MaxConcurrent: 10, MaxWait: time.Second},
			RateLimiter:    RateLimiterPolicy{LimitForPeriod: 20, Period: time.Second, Timeout: 500 * time.Millisecond},
		},
		CategoryWebhook: {
			CircuitBreaker: BreakerPolicy{FailureRateThreshold: 60, SlidingWindowSize: 12, MinimumCalls: 5, WaitInOpen: 45 * time.Second, HalfOpenCalls: 3, AutomaticTransition: true},
			Retry:          RetryPolicy{MaxAttempts: 4, InitialBackoff: 2 * time.Second, Multiplier: 2, MaxBackoff: 16 * time.Second, Jitter: 0.2},
			TimeLimiter:    TimeLimiterPolicy{Timeout: 45 * time.Second},
			Bulkhead:       BulkheadPolicy{MaxConcurrent: 15, MaxWait: time.Second},
			RateLimiter:    RateLimiterPolicy{LimitForPeriod: 30, Period: time.Second, Timeout: 500 * time.Millisecond},
		},
		CategoryKafka: {
			CircuitBreaker: BreakerPolicy{FailureRateThreshold: 40, SlidingWindowSize: 8, MinimumCalls: 3, WaitInOpen: 20 * time.Second, HalfOpenCalls: 2, AutomaticTransition: true},
			Retry:          RetryPolicy{MaxAttempts: 2, InitialBackoff: 500 * time.Millisecond, Multiplier: 1.5, MaxBackoff: 2 * time.Second, Jitter: 0.2},
			TimeLimiter:    TimeLimiterPolicy{Timeout: 15 * time.Second},
			Bulkhead:       BulkheadPolicy{MaxConcurrent: 25, MaxWait: 250 * time.Millisecond},
			RateLimiter:    RateLimiterPolicy{LimitForPeriod: 200, Period: time.Second, Timeout: 100 * time.Millisecond},
		},
	}
}

// policyFile is the on-disk override format:
//
//	categories:
//	  clearing-system:
//	    timeLimiter:
//	      timeout: 20s
type policyFile struct {
	Categories map[Category]yaml.Node `yaml:"categories"`
}

// ParsePolicies overlays the YAML document on the defaults. Fields absent
// from the document keep their default values.
func ParsePolicies(data []byte) (map[Category]Policy, error) {
	policies := DefaultPolicies()
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse resilience policies: %w", err)
	}
	for category, node := range file.Categories {
		p, ok := policies[category]
		if !ok {
			return nil, fmt.Errorf("unknown resilience category %q", category)
		}
		if err := node.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode %s policy: %w", category, err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s policy: %w", category, err)
		}
		policies[category] = p
	}
	return policies, nil
}

// LoadPolicies reads overrides from path. An empty path yields the defaults.
func LoadPolicies(path string) (map[Category]Policy, error) {
	if path == "" {
		return DefaultPolicies(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resilience policies: %w", err)
	}
	return ParsePolicies(data)
}
