package legendre

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cache file layout (all integers little-endian):
//
//	magic    [4]byte  "LGTB"
//	version  uint16
//	reserved uint16
//	maxL     uint32
//	height   uint32
//	present  [maxL+1]byte   1 if degree l has rows, else 0
//	samples  float64 bits, for each present l, for m in 0..l, height values
const (
	cacheMagic      = "LGTB"
	CacheVersion    = 1
	cacheHeaderSize = 16

	// maxCacheHeight keeps a hostile header from requesting an absurd allocation.
	maxCacheHeight = 1 << 20
)

// cacheSizeLimit is the size of a cache holding every degree 0..maxL; no
// valid cache for those dimensions is larger.
func cacheSizeLimit(maxL, height int) int64 {
	samples := int64(maxL+1) * int64(maxL+2) / 2 * int64(height)
	return int64(cacheHeaderSize+maxL+1) + samples*8
}

// EncodeCache serialises t into the versioned binary cache format.
func EncodeCache(t *Table) []byte {
	size := cacheHeaderSize + t.maxL + 1
	for l := range t.rows {
		if t.rows[l] != nil {
			size += (l + 1) * t.height * 8
		}
	}

	buf := make([]byte, size)
	copy(buf[0:4], cacheMagic)
	binary.LittleEndian.PutUint16(buf[4:], CacheVersion)
	binary.LittleEndian.PutUint32(buf[8:], uint32(t.maxL))
	binary.LittleEndian.PutUint32(buf[12:], uint32(t.height))

	off := cacheHeaderSize
	for l := range t.rows {
		if t.rows[l] != nil {
			buf[off+l] = 1
		}
	}
	off += t.maxL + 1

	for _, level := range t.rows {
		for _, row := range level {
			for _, v := range row {
				binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
				off += 8
			}
		}
	}
	return buf
}

// DecodeCache parses a blob produced by EncodeCache. Any structural problem
// (bad magic, unknown version, truncation, trailing bytes) yields ErrDataCorrupt.
func DecodeCache(data []byte) (*Table, error) {
	if len(data) < cacheHeaderSize {
		return nil, fmt.Errorf("%w: cache header truncated (%d bytes)", ErrDataCorrupt, len(data))
	}
	if string(data[0:4]) != cacheMagic {
		return nil, fmt.Errorf("%w: bad cache magic %q", ErrDataCorrupt, data[0:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != CacheVersion {
		return nil, fmt.Errorf("%w: unsupported cache version %d", ErrDataCorrupt, v)
	}
	maxL := binary.LittleEndian.Uint32(data[8:])
	height := binary.LittleEndian.Uint32(data[12:])
	if maxL > MaxDegree || height == 0 || height > maxCacheHeight {
		return nil, fmt.Errorf("%w: implausible cache dimensions max_l=%d height=%d", ErrDataCorrupt, maxL, height)
	}

	nl, h := int(maxL), int(height)
	off := cacheHeaderSize
	if len(data) < off+nl+1 {
		return nil, fmt.Errorf("%w: cache presence map truncated", ErrDataCorrupt)
	}
	present := data[off : off+nl+1]
	off += nl + 1

	want := off
	for l, p := range present {
		switch p {
		case 0:
		case 1:
			want += (l + 1) * h * 8
		default:
			return nil, fmt.Errorf("%w: bad presence flag %d for l=%d", ErrDataCorrupt, p, l)
		}
	}
	if len(data) != want {
		return nil, fmt.Errorf("%w: cache is %d bytes, header implies %d", ErrDataCorrupt, len(data), want)
	}

	rows := make([][][]float64, nl+1)
	for l, p := range present {
		if p == 0 {
			continue
		}
		level := make([][]float64, l+1)
		for m := range level {
			row := make([]float64, h)
			for i := range row {
				row[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
				off += 8
			}
			level[m] = row
		}
		rows[l] = level
	}
	return &Table{maxL: nl, height: h, rows: rows}, nil
}
