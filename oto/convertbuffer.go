package oto

import (
	"encoding/binary"
	"math"
)

// InterleaveToFloat32LE interleaves the channels and appends them to dst as
// 32-bit float little endian samples. All channels must have the same
// length.
func InterleaveToFloat32LE(channels [][]float32, dst []byte) []byte {
	if len(channels) == 0 {
		return dst
	}
	for i := range channels[0] {
		for _, ch := range channels {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(ch[i]))
		}
	}
	return dst
}
