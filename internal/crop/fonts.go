package crop

// fontMetrics is the subset of a font program needed to place glyph boxes:
// advance widths and the vertical extent of the em box.
type fontMetrics struct {
	widths  map[int]float64 // glyph space
	ranges  []widthRange    // CIDFont "cFirst cLast w" entries
	missing float64         // glyph space
	ascent  float64         // glyph space
	descent float64         // glyph space, negative below the baseline
	twoByte bool
	// glyphScale converts glyph space to text space: 1/1000 for everything
	// except Type 3 fonts, which carry their own FontMatrix.
	glyphScale float64
}

// widthRange gives every code in [first, last] the same width.
type widthRange struct {
	first, last int
	width       float64
}

// maxCID is the largest code a two-byte font can show.
const maxCID = 0xFFFF

// defaultFont is used when a font resource is missing or unreadable. Its
// proportions roughly match Helvetica.
var defaultFont = &fontMetrics{
	missing:    500,
	ascent:     800,
	descent:    -200,
	glyphScale: 0.001,
}

func (f *fontMetrics) width(code int) float64 {
	if w, ok := f.widths[code]; ok {
		return w
	}
	for i := len(f.ranges) - 1; i >= 0; i-- {
		if r := f.ranges[i]; code >= r.first && code <= r.last {
			return r.width
		}
	}
	return f.missing
}

// codes splits a shown string into character codes.
func (f *fontMetrics) codes(s []byte) []int {
	if !f.twoByte {
		out := make([]int, len(s))
		for i, b := range s {
			out[i] = int(b)
		}
		return out
	}
	out := make([]int, 0, (len(s)+1)/2)
	for i := 0; i < len(s); i += 2 {
		if i+1 < len(s) {
			out = append(out, int(s[i])<<8|int(s[i+1]))
		} else {
			out = append(out, int(s[i])<<8)
		}
	}
	return out
}
