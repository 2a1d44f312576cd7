package common

import "time"

// CacheInterface is the lookup cache used for referral codes
type CacheInterface interface {
	// Set stores a value with the given key and duration
	Set(key string, value interface{}, duration time.Duration)

	// Get returns the value and true if found, nil and false otherwise
	Get(key string) (interface{}, bool)

	Delete(key string)

	// GetOrSet returns the cached value, or loads and stores it if missing
	GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error)
}
