package cache

import "time"

// Entry is the envelope persisted for every cached value.
type Entry[V any] struct {
	Key      string        `json:"key" msgpack:"key" cbor:"key"`
	Value    V             `json:"value" msgpack:"value" cbor:"value"`
	StoredAt time.Time     `json:"stored_at" msgpack:"stored_at" cbor:"stored_at"`
	TTL      time.Duration `json:"ttl" msgpack:"ttl" cbor:"ttl"`
}

// Expired reports whether the entry's age has reached its TTL. A TTL <= 0
// never expires.
func (e Entry[V]) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.StoredAt) >= e.TTL
}
