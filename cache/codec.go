package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Msgpack is the default codec. The zero value is ready to use.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) { return msgpack.Marshal(v) }

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}

// CBOR serializes values with fxamacker/cbor. Nested maps decode as
// map[string]any so records read back the same shape JSON produces.
// Construct with NewCBOR.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCBOR[V any]() (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}

type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}

// CodecByName returns the entry codec registered under name
// ("msgpack", "cbor" or "json"). An empty name selects msgpack.
func CodecByName[V any](name string) (Codec[Entry[V]], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "msgpack":
		return Msgpack[Entry[V]]{}, nil
	case "cbor":
		return NewCBOR[Entry[V]]()
	case "json":
		return JSON[Entry[V]]{}, nil
	default:
		return nil, fmt.Errorf("cache: unknown codec %q", name)
	}
}
