package crop

import (
	"fmt"

	"github.com/gaiazov/PrintService/internal/domain"
)

// resourceSet resolves the named resources a content stream refers to.
type resourceSet interface {
	Font(name Name) *fontMetrics
	XObject(name Name) (*xObject, error)
}

type xObjectKind int

const (
	xObjectImage xObjectKind = iota
	xObjectForm
)

// xObject is an external object referenced by the Do operator. Images paint
// the unit square; forms carry their own content, matrix and clip box.
type xObject struct {
	kind      xObjectKind
	matrix    matrix
	bbox      box
	content   []byte
	resources resourceSet
}

// maxFormDepth bounds Form XObject recursion; self-referencing forms exist.
const maxFormDepth = 12

type graphicsState struct {
	ctm       matrix
	lineWidth float64

	font        *fontMetrics
	fontSize    float64
	charSpacing float64
	wordSpacing float64
	hScale      float64
	leading     float64
	rise        float64
	renderMode  int
}

// traceBounds runs the content stream against a virtual graphics state and
// returns the extent of every mark it paints: glyph boxes, stroked and filled
// paths, images and form XObjects. Clipping paths are ignored, so the result
// is conservative.
func traceBounds(content []byte, res resourceSet) (domain.PageContentBounds, error) {
	ops, err := ParseContent(content)
	if err != nil {
		return domain.PageContentBounds{}, err
	}

	t := &tracer{}
	marks, err := t.run(ops, res, identity)
	if err != nil {
		return domain.PageContentBounds{}, err
	}

	if !marks.set {
		return domain.PageContentBounds{Empty: true}, nil
	}
	return domain.PageContentBounds{LLX: marks.llx, LLY: marks.lly, URX: marks.urx, URY: marks.ury}, nil
}

type tracer struct {
	depth int
}

func (t *tracer) run(ops []Operation, res resourceSet, ctm matrix) (box, error) {
	var marks, path box
	gs := graphicsState{ctm: ctm, lineWidth: 1, hScale: 1}
	var stack []graphicsState
	tm, tlm := identity, identity

	nextLine := func(tx, ty float64) {
		tlm = translate(tx, ty).mul(tlm)
		tm = tlm
	}

	for _, op := range ops {
		args := op.Operands

		switch op.Operator {
		case "q":
			stack = append(stack, gs)
		case "Q":
			if n := len(stack); n > 0 {
				gs = stack[n-1]
				stack = stack[:n-1]
			}
		case "cm":
			if m, ok := matrixOperands(args); ok {
				gs.ctm = m.mul(gs.ctm)
			}
		case "w":
			if v, ok := numberAt(args, 0); ok {
				gs.lineWidth = v
			}

		case "BT":
			tm, tlm = identity, identity
		case "Tf":
			if name, ok := nameAt(args, 0); ok && res != nil {
				gs.font = res.Font(name)
			}
			if v, ok := numberAt(args, 1); ok {
				gs.fontSize = v
			}
		case "Tc":
			if v, ok := numberAt(args, 0); ok {
				gs.charSpacing = v
			}
		case "Tw":
			if v, ok := numberAt(args, 0); ok {
				gs.wordSpacing = v
			}
		case "Tz":
			if v, ok := numberAt(args, 0); ok {
				gs.hScale = v / 100
			}
		case "TL":
			if v, ok := numberAt(args, 0); ok {
				gs.leading = v
			}
		case "Ts":
			if v, ok := numberAt(args, 0); ok {
				gs.rise = v
			}
		case "Tr":
			if v, ok := numberAt(args, 0); ok {
				gs.renderMode = int(v)
			}
		case "Td", "TD":
			tx, okx := numberAt(args, 0)
			ty, oky := numberAt(args, 1)
			if okx && oky {
				if op.Operator == "TD" {
					gs.leading = -ty
				}
				nextLine(tx, ty)
			}
		case "Tm":
			if m, ok := matrixOperands(args); ok {
				tlm, tm = m, m
			}
		case "T*":
			nextLine(0, -gs.leading)
		case "Tj":
			if s, ok := args0String(args); ok {
				showText(&marks, &gs, &tm, s)
			}
		case "'":
			nextLine(0, -gs.leading)
			if s, ok := args0String(args); ok {
				showText(&marks, &gs, &tm, s)
			}
		case "\"":
			if len(args) == 3 {
				if v, ok := numberAt(args, 0); ok {
					gs.wordSpacing = v
				}
				if v, ok := numberAt(args, 1); ok {
					gs.charSpacing = v
				}
				nextLine(0, -gs.leading)
				if s, ok := args[2].(String); ok {
					showText(&marks, &gs, &tm, s)
				}
			}
		case "TJ":
			if len(args) == 1 {
				if arr, ok := args[0].(Array); ok {
					for _, el := range arr {
						switch v := el.(type) {
						case String:
							showText(&marks, &gs, &tm, v)
						case Number:
							tx := -float64(v) / 1000 * gs.fontSize * gs.hScale
							tm = translate(tx, 0).mul(tm)
						}
					}
				}
			}

		case "m", "l":
			if x, y, ok := pointAt(args, 0); ok {
				path.add(gs.ctm.apply(x, y))
			}
		case "c":
			for i := 0; i < 6; i += 2 {
				if x, y, ok := pointAt(args, i); ok {
					path.add(gs.ctm.apply(x, y))
				}
			}
		case "v", "y":
			for i := 0; i < 4; i += 2 {
				if x, y, ok := pointAt(args, i); ok {
					path.add(gs.ctm.apply(x, y))
				}
			}
		case "re":
			if len(args) == 4 {
				x, _ := numberAt(args, 0)
				y, _ := numberAt(args, 1)
				w, _ := numberAt(args, 2)
				h, _ := numberAt(args, 3)
				path.addRect(gs.ctm, x, y, x+w, y+h)
			}
		case "f", "F", "f*":
			marks.union(path)
			path = box{}
		case "S", "s", "B", "B*", "b", "b*":
			path.grow(gs.lineWidth / 2 * gs.ctm.scale())
			marks.union(path)
			path = box{}
		case "n":
			path = box{}

		case "BI":
			marks.addRect(gs.ctm, 0, 0, 1, 1)
		case "Do":
			name, ok := nameAt(args, 0)
			if !ok || res == nil {
				continue
			}
			xo, err := res.XObject(name)
			if err != nil {
				return box{}, fmt.Errorf("xobject %s: %w", name, err)
			}
			if xo == nil {
				continue
			}
			formMarks, err := t.paintXObject(xo, res, gs.ctm)
			if err != nil {
				return box{}, err
			}
			marks.union(formMarks)
		}
	}

	return marks, nil
}

func (t *tracer) paintXObject(xo *xObject, parent resourceSet, ctm matrix) (box, error) {
	var marks box
	if xo.kind == xObjectImage {
		marks.addRect(ctm, 0, 0, 1, 1)
		return marks, nil
	}

	if t.depth >= maxFormDepth {
		return marks, nil
	}

	ops, err := ParseContent(xo.content)
	if err != nil {
		return box{}, fmt.Errorf("form content: %w", err)
	}

	res := xo.resources
	if res == nil {
		res = parent
	}

	formCTM := xo.matrix.mul(ctm)
	t.depth++
	marks, err = t.run(ops, res, formCTM)
	t.depth--
	if err != nil {
		return box{}, err
	}

	if xo.bbox.set {
		var clip box
		clip.addRect(formCTM, xo.bbox.llx, xo.bbox.lly, xo.bbox.urx, xo.bbox.ury)
		marks.intersect(clip)
	}
	return marks, nil
}

// showText adds one box per glyph and advances the text matrix.
func showText(marks *box, gs *graphicsState, tm *matrix, s []byte) {
	font := gs.font
	if font == nil {
		font = defaultFont
	}
	// Render modes 3 (invisible) and 7 (clip only) paint nothing.
	visible := gs.renderMode != 3 && gs.renderMode != 7

	for _, code := range font.codes(s) {
		w0 := font.width(code) * font.glyphScale
		if visible {
			trm := tm.mul(gs.ctm)
			y0 := font.descent*font.glyphScale*gs.fontSize + gs.rise
			y1 := font.ascent*font.glyphScale*gs.fontSize + gs.rise
			marks.addRect(trm, 0, y0, w0*gs.fontSize*gs.hScale, y1)
		}

		tx := w0*gs.fontSize + gs.charSpacing
		if !font.twoByte && code == ' ' {
			tx += gs.wordSpacing
		}
		*tm = translate(tx*gs.hScale, 0).mul(*tm)
	}
}

func numberAt(args []Operand, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, ok := args[i].(Number)
	return float64(n), ok
}

func pointAt(args []Operand, i int) (float64, float64, bool) {
	x, okx := numberAt(args, i)
	y, oky := numberAt(args, i+1)
	return x, y, okx && oky
}

func nameAt(args []Operand, i int) (Name, bool) {
	if i >= len(args) {
		return "", false
	}
	n, ok := args[i].(Name)
	return n, ok
}

func args0String(args []Operand) ([]byte, bool) {
	if len(args) != 1 {
		return nil, false
	}
	s, ok := args[0].(String)
	return s, ok
}

func matrixOperands(args []Operand) (matrix, bool) {
	if len(args) != 6 {
		return identity, false
	}
	var m matrix
	for i := range m {
		v, ok := numberAt(args, i)
		if !ok {
			return identity, false
		}
		m[i] = v
	}
	return m, true
}
