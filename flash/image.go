package flash

import (
	"encoding/binary"
)

const wordSize = 4

// checksumVector is the index of the word in the vector table that makes the
// first eight words sum to zero
const checksumVector = 7

// Block is a BlockSize chunk of the image and the flash address it belongs at
type Block struct {
	Addr uint32
	Data []byte
}

// Segment splits an image into blocks of size bs, zero padding the last one.
// An empty image still yields a single block. A bs of 0 means BlockSize.
func Segment(image []byte, bs uint32) []Block {
	if bs == 0 {
		bs = BlockSize
	}

	n := ceilDiv(len(image), int(bs))
	if n == 0 {
		n = 1
	}

	blocks := make([]Block, n)
	for i := range blocks {
		data := make([]byte, bs)
		offset := i * int(bs)
		copy(data, image[offset:min(len(image), offset+int(bs))])
		blocks[i] = Block{Addr: uint32(i) * bs, Data: data}
	}

	return blocks
}

// VectorChecksum returns the value the checksum vector must hold for the
// first eight words of b to sum to zero
func VectorChecksum(b []byte) uint32 {
	var sum uint32
	for i := 0; i < checksumVector; i++ {
		sum += binary.LittleEndian.Uint32(b[i*wordSize:])
	}
	return -sum
}

// PatchChecksum returns a copy of b with the checksum vector set
func PatchChecksum(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	binary.LittleEndian.PutUint32(out[checksumVector*wordSize:], VectorChecksum(out))
	return out
}

// PrepareImage segments the image and patches the checksum vector in the
// first block
func PrepareImage(image []byte) []Block {
	blocks := Segment(image, BlockSize)
	blocks[0].Data = PatchChecksum(blocks[0].Data)
	return blocks
}
