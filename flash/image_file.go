package flash

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
	"github.com/pkg/errors"
)

var ErrImageTooLarge = errors.New("image does not fit in flash")

// hexPadding fills gaps between Intel HEX segments, matching erased flash
const hexPadding = 0xff

// LoadImage reads a firmware image from disk. Files ending in .hex or .ihx
// are parsed as Intel HEX and flattened from address 0, anything else is
// taken as a raw binary.
func LoadImage(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read image")
	}

	bs := raw
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihx":
		if bs, err = flattenHex(raw); err != nil {
			return nil, errors.Wrapf(err, "could not parse %s", path)
		}
	}

	if uint32(len(bs)) > FlashSize {
		return nil, errors.Wrapf(ErrImageTooLarge, "%d bytes, flash is %d", len(bs), FlashSize)
	}

	return bs, nil
}

// flattenHex turns Intel HEX records into a contiguous image starting at
// address 0
func flattenHex(raw []byte) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(raw)); err != nil {
		return nil, err
	}

	end := segmentsEnd(mem.GetDataSegments())
	if end > uint64(FlashSize) {
		return nil, errors.Wrapf(ErrImageTooLarge, "data up to 0x%x", end)
	}

	return mem.ToBinary(0, uint32(end), hexPadding), nil
}

// segmentsEnd returns the address one past the last data byte. It is
// computed in 64 bits so a segment ending past 4 GiB cannot wrap.
func segmentsEnd(segs []gohex.DataSegment) uint64 {
	var end uint64
	for _, seg := range segs {
		end = max(end, uint64(seg.Address)+uint64(len(seg.Data)))
	}
	return end
}
