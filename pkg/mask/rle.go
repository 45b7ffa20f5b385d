package mask

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMask signals a run-length encoding whose invariants are broken
// (runs not summing to height*width, non-positive dimensions, truncated
// counts string). It always indicates a bug upstream and is never corrected
// silently.
var ErrInvalidMask = errors.New("invalid RLE mask")

// Bitmap is a binary per-pixel membership map for one object on one frame.
// Pixels are stored row-major (index = y*Width + x); the codec itself always
// scans column-major (Fortran order), which is the order every mask leaving
// the system uses.
type Bitmap struct {
	Pixels []bool
	Height int
	Width  int
}

// RLE is the lossless run-length form of a Bitmap: alternating
// background/foreground run lengths in column-major scan order, starting
// with the background run (zero-length if pixel (0,0) is foreground).
type RLE struct {
	Size   [2]int // height, width
	Counts []uint32
}

// Encode scans the bitmap in column-major order and emits alternating run
// lengths. The first run always counts background pixels.
func Encode(b Bitmap) (RLE, error) {
	if b.Height <= 0 || b.Width <= 0 {
		return RLE{}, fmt.Errorf("%w: size [%d %d]", ErrInvalidMask, b.Height, b.Width)
	}
	if len(b.Pixels) != b.Height*b.Width {
		return RLE{}, fmt.Errorf("%w: %d pixels for size [%d %d]", ErrInvalidMask, len(b.Pixels), b.Height, b.Width)
	}

	counts := make([]uint32, 0, 16)
	cur := false // background first
	var run uint32
	for x := 0; x < b.Width; x++ {
		for y := 0; y < b.Height; y++ {
			px := b.Pixels[y*b.Width+x]
			if px == cur {
				run++
				continue
			}
			counts = append(counts, run)
			cur = px
			run = 1
		}
	}
	counts = append(counts, run)

	return RLE{Size: [2]int{b.Height, b.Width}, Counts: counts}, nil
}

// Decode is the exact inverse of Encode.
func Decode(r RLE) (Bitmap, error) {
	h, w := r.Size[0], r.Size[1]
	if h <= 0 || w <= 0 {
		return Bitmap{}, fmt.Errorf("%w: size [%d %d]", ErrInvalidMask, h, w)
	}
	total := 0
	for _, c := range r.Counts {
		total += int(c)
	}
	if total != h*w {
		return Bitmap{}, fmt.Errorf("%w: runs sum to %d, size [%d %d]", ErrInvalidMask, total, h, w)
	}

	pixels := make([]bool, h*w)
	pos := 0
	val := false
	for _, c := range r.Counts {
		for i := uint32(0); i < c; i++ {
			// pos walks columns; translate back to row-major storage.
			x := pos / h
			y := pos % h
			pixels[y*w+x] = val
			pos++
		}
		val = !val
	}

	return Bitmap{Pixels: pixels, Height: h, Width: w}, nil
}

// CountsString serializes the run lengths in the COCO compact form: each
// count (delta-coded against the count two positions back, from the third
// run on) is emitted as little-endian 5-bit groups offset by 48, with 0x20
// as the continuation bit. Consumers treat this string as a
// content-addressed deliverable, so it must be byte-stable.
func (r RLE) CountsString() string {
	var sb strings.Builder
	for i, c := range r.Counts {
		x := int64(c)
		if i > 2 {
			x -= int64(r.Counts[i-2])
		}
		more := true
		for more {
			ch := byte(x & 0x1f)
			x >>= 5
			if ch&0x10 != 0 {
				more = x != -1
			} else {
				more = x != 0
			}
			if more {
				ch |= 0x20
			}
			sb.WriteByte(ch + 48)
		}
	}
	return sb.String()
}

// ParseCountsString decodes a COCO compact counts string and validates it
// against the given size.
func ParseCountsString(s string, height, width int) (RLE, error) {
	if height <= 0 || width <= 0 {
		return RLE{}, fmt.Errorf("%w: size [%d %d]", ErrInvalidMask, height, width)
	}

	counts := make([]uint32, 0, 16)
	i := 0
	for i < len(s) {
		var x int64
		var k uint
		more := true
		for more {
			if i >= len(s) {
				return RLE{}, fmt.Errorf("%w: truncated counts string", ErrInvalidMask)
			}
			c := int64(s[i]) - 48
			x |= (c & 0x1f) << (5 * k)
			more = c&0x20 != 0
			i++
			k++
			if !more && c&0x10 != 0 {
				x |= -1 << (5 * k)
			}
		}
		if len(counts) > 2 {
			x += int64(counts[len(counts)-2])
		}
		if x < 0 {
			return RLE{}, fmt.Errorf("%w: negative run length", ErrInvalidMask)
		}
		counts = append(counts, uint32(x))
	}

	r := RLE{Size: [2]int{height, width}, Counts: counts}
	total := 0
	for _, c := range counts {
		total += int(c)
	}
	if total != height*width {
		return RLE{}, fmt.Errorf("%w: runs sum to %d, size [%d %d]", ErrInvalidMask, total, height, width)
	}
	return r, nil
}
