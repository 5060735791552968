package crop

import "math"

// matrix is a PDF affine transform [a b c d e f]. Points are row vectors, so
// m.mul(n) applies m first and n second.
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func translate(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return x*m[0] + y*m[2] + m[4], x*m[1] + y*m[3] + m[5]
}

// scale is the geometric mean scale factor, used to bring line widths into
// user space.
func (m matrix) scale() float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

// box accumulates the extent of a set of points.
type box struct {
	llx, lly, urx, ury float64
	set                bool
}

func (b *box) add(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return
	}
	if !b.set {
		b.llx, b.urx, b.lly, b.ury = x, x, y, y
		b.set = true
		return
	}
	b.llx = math.Min(b.llx, x)
	b.lly = math.Min(b.lly, y)
	b.urx = math.Max(b.urx, x)
	b.ury = math.Max(b.ury, y)
}

func (b *box) union(o box) {
	if !o.set {
		return
	}
	b.add(o.llx, o.lly)
	b.add(o.urx, o.ury)
}

// addRect adds the four corners of the rectangle (x0,y0)-(x1,y1) mapped by m.
func (b *box) addRect(m matrix, x0, y0, x1, y1 float64) {
	b.add(m.apply(x0, y0))
	b.add(m.apply(x1, y0))
	b.add(m.apply(x0, y1))
	b.add(m.apply(x1, y1))
}

// grow pads the box by d on every side.
func (b *box) grow(d float64) {
	if !b.set || d <= 0 {
		return
	}
	b.llx -= d
	b.lly -= d
	b.urx += d
	b.ury += d
}

// intersect clips b to the rectangle o.
func (b *box) intersect(o box) {
	if !b.set || !o.set {
		return
	}
	b.llx = math.Max(b.llx, o.llx)
	b.lly = math.Max(b.lly, o.lly)
	b.urx = math.Min(b.urx, o.urx)
	b.ury = math.Min(b.ury, o.ury)
	if b.llx > b.urx || b.lly > b.ury {
		*b = box{}
	}
}
