// Package testutil builds small, well-formed PDF documents for tests.
package testutil

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Letter is the US Letter media box in points.
var Letter = [4]float64{0, 0, 612, 792}

// Page describes one page of a generated document.
type Page struct {
	MediaBox [4]float64
	CropBox  []float64
	Content  string
	// Forms are exposed as /XObject resources under their map key.
	Forms map[string]Form
}

// Form is a Form XObject.
type Form struct {
	BBox    [4]float64
	Matrix  []float64
	Content string
}

// LetterPage returns a US Letter page with the given content stream.
func LetterPage(content string) Page {
	return Page{MediaBox: Letter, Content: content}
}

// FilledRect returns a content stream that fills one black rectangle.
func FilledRect(x, y, w, h float64) string {
	return fmt.Sprintf("0 g %s %s %s %s re f", num(x), num(y), num(w), num(h))
}

// BuildPDF assembles pages into a PDF with a correct cross-reference table.
// Every page shares a Helvetica font resource named /F1.
func BuildPDF(pages ...Page) []byte {
	var objs []string
	alloc := func() int {
		objs = append(objs, "")
		return len(objs)
	}
	set := func(n int, body string) { objs[n-1] = body }

	catalog := alloc()
	tree := alloc()
	font := alloc()
	set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", tree))
	set(font, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	kids := make([]string, 0, len(pages))
	for _, p := range pages {
		pageNum := alloc()
		contentNum := alloc()
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))

		var xobjs []string
		names := make([]string, 0, len(p.Forms))
		for name := range p.Forms {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			f := p.Forms[name]
			formNum := alloc()
			matrix := ""
			if len(f.Matrix) == 6 {
				matrix = " /Matrix " + array(f.Matrix)
			}
			set(formNum, stream(fmt.Sprintf("/Type /XObject /Subtype /Form /BBox %s%s /Resources << /Font << /F1 %d 0 R >> >>",
				array(f.BBox[:]), matrix, font), f.Content))
			xobjs = append(xobjs, fmt.Sprintf("/%s %d 0 R", name, formNum))
		}

		resources := fmt.Sprintf("/Font << /F1 %d 0 R >>", font)
		if len(xobjs) > 0 {
			resources += " /XObject << " + strings.Join(xobjs, " ") + " >>"
		}

		crop := ""
		if len(p.CropBox) == 4 {
			crop = " /CropBox " + array(p.CropBox)
		}

		set(pageNum, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox %s%s /Resources << %s >> /Contents %d 0 R >>",
			tree, array(p.MediaBox[:]), crop, resources, contentNum))
		set(contentNum, stream("", p.Content))
	}
	set(tree, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, catalog, xref)
	return buf.Bytes()
}

func stream(dict, content string) string {
	if dict != "" {
		dict += " "
	}
	return fmt.Sprintf("<< %s/Length %d >>\nstream\n%s\nendstream", dict, len(content), content)
}

func array(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = num(f)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func num(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.4f", f), "0"), ".")
}
