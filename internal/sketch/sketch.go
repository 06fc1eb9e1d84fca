// Package sketch implements a Count-Min Sketch frequency estimator for
// W-TinyLFU: width columns, depth=4 rows of 4-bit saturating counters
// packed two per byte, with periodic halving to bound bias toward
// historically hot keys.
//
// This is the plain (no-doorkeeper) CMS shape used by the pack's
// ristretto-style implementations; a doorkeeper stage is not required
// here.
package sketch

import "github.com/joeldasilva/polycache/internal/util"

const depth = 4

// row mixing seeds: distinct odd 64-bit constants so each row samples an
// independent hash of h.
var rowSeeds = [depth]uint64{
	0x9e3779b97f4a7c15,
	0xbf58476d1ce4e5b9,
	0x94d049bb133111eb,
	0xd6e8feb86659fd93,
}

// CMS is a Count-Min Sketch with aging. One instance belongs to exactly
// one W-TinyLFU shard; it is not safe for concurrent use on its own.
type CMS struct {
	width       uint64
	counters    []byte // (width*depth)/2 bytes, two 4-bit counters per byte
	sampleCount uint64
	sampleSize  uint64
}

// New returns a CMS sized so width is the next power of two >= cacheSize.
func New(cacheSize int) *CMS {
	if cacheSize < 1 {
		cacheSize = 1
	}
	width := util.NextPow2(uint64(cacheSize))
	return &CMS{
		width:      width,
		counters:   make([]byte, (width*depth)/2),
		sampleSize: width * 10,
	}
}

func mix(h, seed uint64) uint64 {
	x := h ^ seed
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

func (c *CMS) column(row int, h uint64) uint64 {
	return mix(h, rowSeeds[row]) & (c.width - 1)
}

// cellIndex returns the byte index and nibble shift (0 or 4) for a given
// row/column counter.
func (c *CMS) cellIndex(row int, col uint64) (byteIdx int, shift uint) {
	cellNumber := uint64(row)*c.width + col
	return int(cellNumber / 2), uint(cellNumber%2) * 4
}

func (c *CMS) get(row int, col uint64) byte {
	idx, shift := c.cellIndex(row, col)
	return (c.counters[idx] >> shift) & 0x0f
}

func (c *CMS) set(row int, col uint64, v byte) {
	idx, shift := c.cellIndex(row, col)
	mask := byte(0x0f) << shift
	c.counters[idx] = (c.counters[idx] &^ mask) | ((v << shift) & mask)
}

// Increment bumps every row's counter for h by one, saturating at 15, and
// ages the whole sketch (halving every counter) once sampleSize increments
// have been observed since the last aging pass.
func (c *CMS) Increment(h uint64) {
	for row := 0; row < depth; row++ {
		col := c.column(row, h)
		if v := c.get(row, col); v < 15 {
			c.set(row, col, v+1)
		}
	}
	c.sampleCount++
	if c.sampleCount >= c.sampleSize {
		c.age()
	}
}

// Estimate returns the minimum counter across all rows for h.
func (c *CMS) Estimate(h uint64) byte {
	min := byte(15)
	for row := 0; row < depth; row++ {
		if v := c.get(row, c.column(row, h)); v < min {
			min = v
		}
	}
	return min
}

func (c *CMS) age() {
	for i := range c.counters {
		c.counters[i] = (c.counters[i] >> 1) & 0x77
	}
	c.sampleCount = 0
}
