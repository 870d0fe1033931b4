package segment

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// BloomParams are the writer-chosen parameters that a reader MUST
// reproduce exactly (spec invariant 7) to probe the same bit
// positions the writer set.
type BloomParams struct {
	BitSize    uint64
	HashCount  int
	BlockBits  uint64 // bits per block; default 4 KiB * 8
}

// DefaultBlockBits is 4 KiB expressed in bits, the block size named
// in spec §3.1.
const DefaultBlockBits = 4096 * 8

// falsePositiveRate is the target used to size the filter from the
// expected vocabulary size, ported from the original bloom filter's
// optimizer defaults.
const falsePositiveRate = 0.01

// OptimalParams computes bit_size and hash_count for n expected
// distinct terms, following the classical bloom-filter sizing
// formulas (bit_size = ceil(-n*ln(p)/ln(2)^2), hash_count =
// round(m/n*ln(2))), then rounds bit_size up to a whole number of
// blocks.
func OptimalParams(expectedTerms int) BloomParams {
	if expectedTerms < 1 {
		expectedTerms = 1
	}
	n := float64(expectedTerms)
	m := math.Ceil(-n * math.Log(falsePositiveRate) / (math.Log(2) * math.Log(2)))
	if m < float64(DefaultBlockBits) {
		m = float64(DefaultBlockBits)
	}
	blocks := math.Ceil(m / float64(DefaultBlockBits))
	bitSize := uint64(blocks) * DefaultBlockBits

	k := int(math.Round(float64(bitSize) / n * math.Log(2)))
	if k < 1 {
		k = 1
	}

	return BloomParams{BitSize: bitSize, HashCount: k, BlockBits: DefaultBlockBits}
}

// Builder accumulates set bits for a bloom filter over terms seen
// during indexing, then yields the block-addressable bit slabs that
// persist into the segment's bloom_blocks table.
type Builder struct {
	params BloomParams
	bits   *bitset.BitSet
}

// NewBuilder allocates a bit array sized by params.
func NewBuilder(params BloomParams) *Builder {
	return &Builder{params: params, bits: bitset.New(uint(params.BitSize))}
}

// Add sets the hash_count bits derived from term via double hashing
// into the bit array (spec §4.C.6).
func (b *Builder) Add(term string) {
	for _, pos := range Positions(term, b.params) {
		b.bits.Set(uint(pos))
	}
}

// Blocks slices the accumulated bit array into BlockBits-sized blocks
// and returns each block's raw bytes, indexed by block_index, ready
// for the bloom_blocks table.
func (b *Builder) Blocks() map[uint64][]byte {
	blockWords := b.params.BlockBits / 64
	numBlocks := b.params.BitSize / b.params.BlockBits

	words := b.bits.Bytes() // little-endian uint64 words, per bits-and-blooms/bitset

	out := make(map[uint64][]byte, numBlocks)
	for block := uint64(0); block < numBlocks; block++ {
		start := block * blockWords
		end := start + blockWords
		if end > uint64(len(words)) {
			end = uint64(len(words))
		}
		buf := make([]byte, b.params.BlockBits/8)
		for i := start; i < end; i++ {
			wordBytes := uint64ToBytes(words[i])
			copy(buf[(i-start)*8:], wordBytes)
		}
		out[block] = buf
	}
	return out
}

func uint64ToBytes(w uint64) [8]byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(w >> (8 * i))
	}
	return b
}

// Positions computes the hash_count bit positions a term maps to
// under params, using double hashing: position_i = (h1 + i*h2) %
// bit_size, with h1/h2 derived from xxhash — the same seeded-hash
// double-probe idiom as the original implementation's per-seed
// _hash(item, seed), adapted to the block-addressable design.
func Positions(term string, params BloomParams) []uint64 {
	h1 := xxhash.Sum64String(term)
	h2 := xxhash.Sum64String("docsearch-bloom:" + term)
	if h2 == 0 {
		h2 = 1
	}

	positions := make([]uint64, params.HashCount)
	for i := 0; i < params.HashCount; i++ {
		positions[i] = (h1 + uint64(i)*h2) % params.BitSize
	}
	return positions
}

// BlockMask splits a bit position into the (block_index, bit_mask)
// pair the reader needs to test a single bit within a loaded block —
// spec §4.D.3.
func BlockMask(position uint64, blockBits uint64) (blockIndex uint64, byteOffset int, bitMask byte) {
	blockIndex = position / blockBits
	bitOffset := position % blockBits
	byteOffset = int(bitOffset / 8)
	bitMask = 1 << (bitOffset % 8)
	return
}

// ProbeBlock reports whether block (raw bytes from bloom_blocks) has
// the bit at byteOffset/bitMask set.
func ProbeBlock(block []byte, byteOffset int, bitMask byte) bool {
	if byteOffset < 0 || byteOffset >= len(block) {
		return false
	}
	return block[byteOffset]&bitMask != 0
}
