package crop

import (
	"bytes"
	"fmt"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pdfResources resolves fonts and XObjects out of a pdfcpu resource
// dictionary. Font metrics are cached per resource name.
type pdfResources struct {
	ctx   *model.Context
	dict  types.Dict
	fonts map[Name]*fontMetrics
}

func newPDFResources(ctx *model.Context, dict types.Dict) *pdfResources {
	return &pdfResources{ctx: ctx, dict: dict, fonts: make(map[Name]*fontMetrics)}
}

func (r *pdfResources) entry(category string, name Name) types.Object {
	if r.dict == nil {
		return nil
	}
	sub := dictOf(r.ctx, r.dict[category])
	if sub == nil {
		return nil
	}
	return deref(r.ctx, sub[string(name)])
}

// Font returns metrics for the named font, falling back to defaultFont.
func (r *pdfResources) Font(name Name) *fontMetrics {
	if f, ok := r.fonts[name]; ok {
		return f
	}
	f := defaultFont
	if d, ok := r.entry("Font", name).(types.Dict); ok {
		f = loadFont(r.ctx, d)
	}
	r.fonts[name] = f
	return f
}

// XObject returns the named image or form. Unknown names and other subtypes
// (PostScript XObjects) resolve to nil.
func (r *pdfResources) XObject(name Name) (*xObject, error) {
	obj := r.entry("XObject", name)
	if obj == nil {
		return nil, nil
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return nil, nil
	}

	switch nameOf(r.ctx, sd.Dict["Subtype"]) {
	case "Image":
		return &xObject{kind: xObjectImage}, nil
	case "Form":
	default:
		return nil, nil
	}

	content, err := streamContent(r.ctx, sd)
	if err != nil {
		return nil, err
	}

	xo := &xObject{kind: xObjectForm, matrix: identity, content: content}
	if m, ok := numbers(r.ctx, sd.Dict["Matrix"], 6); ok {
		copy(xo.matrix[:], m)
	}
	if bb, ok := numbers(r.ctx, sd.Dict["BBox"], 4); ok {
		xo.bbox.add(bb[0], bb[1])
		xo.bbox.add(bb[2], bb[3])
	}
	if res := dictOf(r.ctx, sd.Dict["Resources"]); res != nil {
		xo.resources = newPDFResources(r.ctx, res)
	}
	return xo, nil
}

func loadFont(ctx *model.Context, fd types.Dict) *fontMetrics {
	f := &fontMetrics{
		widths:     make(map[int]float64),
		missing:    defaultFont.missing,
		ascent:     defaultFont.ascent,
		descent:    defaultFont.descent,
		glyphScale: defaultFont.glyphScale,
	}

	descriptorHolder := fd
	switch nameOf(ctx, fd["Subtype"]) {
	case "Type0":
		f.twoByte = true
		f.missing = 1000
		desc := arrayOf(ctx, fd["DescendantFonts"])
		if len(desc) == 0 {
			break
		}
		cid := dictOf(ctx, desc[0])
		if cid == nil {
			break
		}
		descriptorHolder = cid
		if dw, ok := numberOf(ctx, cid["DW"]); ok {
			f.missing = dw
		}
		loadCIDWidths(ctx, arrayOf(ctx, cid["W"]), f)
	case "Type3":
		if fm, ok := numbers(ctx, fd["FontMatrix"], 6); ok && fm[0] != 0 {
			f.glyphScale = abs(fm[0])
		}
		if bb, ok := numbers(ctx, fd["FontBBox"], 4); ok && bb[3] > bb[1] {
			f.descent, f.ascent = bb[1], bb[3]
		}
		loadSimpleWidths(ctx, fd, f.widths)
	default:
		loadSimpleWidths(ctx, fd, f.widths)
	}

	if desc := dictOf(ctx, descriptorHolder["FontDescriptor"]); desc != nil {
		if v, ok := numberOf(ctx, desc["Ascent"]); ok && v != 0 {
			f.ascent = v
		}
		if v, ok := numberOf(ctx, desc["Descent"]); ok && v != 0 {
			f.descent = v
		}
		if v, ok := numberOf(ctx, desc["MissingWidth"]); ok && v != 0 && !f.twoByte {
			f.missing = v
		}
	}
	return f
}

func loadSimpleWidths(ctx *model.Context, fd types.Dict, widths map[int]float64) {
	first, _ := numberOf(ctx, fd["FirstChar"])
	for i, w := range arrayOf(ctx, fd["Widths"]) {
		if v, ok := numberOf(ctx, w); ok {
			widths[int(first)+i] = v
		}
	}
}

// loadCIDWidths reads a CIDFont W array, which mixes two forms:
// "c [w1 w2 ...]" and "cFirst cLast w". Ranges are kept as ranges and
// clipped to the two-byte code space.
func loadCIDWidths(ctx *model.Context, w types.Array, f *fontMetrics) {
	for i := 0; i < len(w); {
		start, ok := numberOf(ctx, w[i])
		if !ok || i+1 >= len(w) {
			return
		}
		if list := arrayOf(ctx, w[i+1]); list != nil {
			for j, v := range list {
				c := int(start) + j
				if c < 0 || c > maxCID {
					continue
				}
				if n, ok := numberOf(ctx, v); ok {
					f.widths[c] = n
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			return
		}
		end, ok1 := numberOf(ctx, w[i+1])
		width, ok2 := numberOf(ctx, w[i+2])
		if ok1 && ok2 {
			first := int(math.Max(start, 0))
			last := int(math.Min(end, maxCID))
			if first <= last {
				f.ranges = append(f.ranges, widthRange{first: first, last: last, width: width})
			}
		}
		i += 3
	}
}

// pageContent concatenates the decoded content streams of a page.
func pageContent(ctx *model.Context, page types.Dict) ([]byte, error) {
	obj := deref(ctx, page["Contents"])
	switch c := obj.(type) {
	case nil:
		return nil, nil
	case types.StreamDict:
		return streamContent(ctx, c)
	case types.Array:
		var buf bytes.Buffer
		for i, item := range c {
			sd, ok := deref(ctx, item).(types.StreamDict)
			if !ok {
				continue
			}
			data, err := streamContent(ctx, sd)
			if err != nil {
				return nil, fmt.Errorf("content stream %d: %w", i, err)
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unexpected Contents type %T", obj)
	}
}

func streamContent(ctx *model.Context, sd types.StreamDict) ([]byte, error) {
	decoded, _, err := ctx.DereferenceStreamDict(sd)
	if err != nil {
		return nil, err
	}
	if decoded == nil {
		return nil, nil
	}
	if decoded.Content == nil && len(decoded.Raw) > 0 {
		if err := decoded.Decode(); err != nil {
			return nil, err
		}
	}
	return decoded.Content, nil
}

// inherited looks key up on the page and then up the Parent chain.
func inherited(ctx *model.Context, page types.Dict, key string) types.Object {
	d := page
	for depth := 0; d != nil && depth < 64; depth++ {
		if v, ok := d[key]; ok {
			if obj := deref(ctx, v); obj != nil {
				return obj
			}
		}
		d = dictOf(ctx, d["Parent"])
	}
	return nil
}

// pageBox returns the page's effective CropBox, or its MediaBox when no
// CropBox is set.
func pageBox(ctx *model.Context, page types.Dict) (box, bool) {
	var b box
	for _, key := range []string{"CropBox", "MediaBox"} {
		if v, ok := numbers(ctx, inherited(ctx, page, key), 4); ok {
			b.add(v[0], v[1])
			b.add(v[2], v[3])
			return b, true
		}
	}
	return b, false
}

func deref(ctx *model.Context, o types.Object) types.Object {
	if o == nil {
		return nil
	}
	obj, err := ctx.Dereference(o)
	if err != nil {
		return nil
	}
	return obj
}

func dictOf(ctx *model.Context, o types.Object) types.Dict {
	d, _ := deref(ctx, o).(types.Dict)
	return d
}

func arrayOf(ctx *model.Context, o types.Object) types.Array {
	a, _ := deref(ctx, o).(types.Array)
	return a
}

func nameOf(ctx *model.Context, o types.Object) string {
	n, _ := deref(ctx, o).(types.Name)
	return string(n)
}

func numberOf(ctx *model.Context, o types.Object) (float64, bool) {
	switch v := deref(ctx, o).(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

// numbers reads a numeric array of exactly n elements.
func numbers(ctx *model.Context, o types.Object, n int) ([]float64, bool) {
	arr := arrayOf(ctx, o)
	if len(arr) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, v := range arr {
		f, ok := numberOf(ctx, v)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
