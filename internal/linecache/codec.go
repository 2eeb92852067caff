package linecache

import (
	"encoding/binary"
	"fmt"
)

// Cached arrays travel between tiers as little-endian int32 payloads.

// EncodeInt32 serializes vals for storage in a cache tier.
func EncodeInt32(vals []int32) []byte {
	raw := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
	}
	return raw
}

// DecodeInt32 deserializes a tier payload back into an int32 array.
func DecodeInt32(raw []byte) ([]int32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("int32 payload has odd length %d", len(raw))
	}
	vals := make([]int32, len(raw)/4)
	for i := range vals {
		vals[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vals, nil
}
