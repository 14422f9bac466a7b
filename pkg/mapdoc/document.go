// Package mapdoc loads the annotated SVG map and exposes the pieces the scene
// needs: layers, annotations, transforms, styles and flattened geometry.
package mapdoc

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrMissingElement is returned when a required layer or group is absent.
var ErrMissingElement = errors.New("required map element not found")

// Rect is an axis-aligned box.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether (x, y) lies inside the box.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Document is a parsed map asset.
type Document struct {
	doc     *etree.Document
	Root    *etree.Element
	ViewBox Rect
}

// Read parses an SVG document from r.
func Read(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	return newDocument(doc)
}

// Parse parses an SVG document held in memory.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	return newDocument(doc)
}

func newDocument(doc *etree.Document) (*Document, error) {
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return nil, fmt.Errorf("%w: <svg> root", ErrMissingElement)
	}
	vb, err := viewBox(root)
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc, Root: root, ViewBox: vb}, nil
}

func viewBox(root *etree.Element) (Rect, error) {
	if raw := root.SelectAttrValue("viewBox", ""); raw != "" {
		v, err := parseNumberList(raw)
		if err != nil || len(v) != 4 {
			return Rect{}, fmt.Errorf("bad viewBox %q", raw)
		}
		if v[2] <= 0 || v[3] <= 0 {
			return Rect{}, fmt.Errorf("viewBox %q has no area", raw)
		}
		return Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
	}
	w, h := lengthAttr(root, "width"), lengthAttr(root, "height")
	if w <= 0 || h <= 0 {
		return Rect{}, fmt.Errorf("svg root has neither viewBox nor width/height")
	}
	return Rect{W: w, H: h}, nil
}

// lengthAttr reads a numeric attribute, ignoring a trailing "px".
func lengthAttr(el *etree.Element, key string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSuffix(el.SelectAttrValue(key, ""), "px"), 64)
	return v
}

// Float reads a numeric attribute; missing or malformed values are 0.
func Float(el *etree.Element, key string) float64 {
	return lengthAttr(el, key)
}

// SetFloat writes a numeric attribute.
func SetFloat(el *etree.Element, key string, v float64) {
	el.CreateAttr(key, strconv.FormatFloat(v, 'f', -1, 64))
}

// ElementByID finds the first element carrying id, in document order.
func (d *Document) ElementByID(id string) (*etree.Element, error) {
	if id != "" {
		if el := findID(d.Root, id); el != nil {
			return el, nil
		}
	}
	return nil, fmt.Errorf("%w: #%s", ErrMissingElement, id)
}

func findID(el *etree.Element, id string) *etree.Element {
	if el.SelectAttrValue("id", "") == id {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// Elements returns the descendants of parent with one of tags, in document
// order.
func Elements(parent *etree.Element, tags ...string) []*etree.Element {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if want[c.Tag] {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(parent)
	return out
}

// Href returns the reference target of a <use>, without the leading '#'.
func Href(el *etree.Element) string {
	// Matches both href and xlink:href.
	return strings.TrimPrefix(el.SelectAttrValue("href", ""), "#")
}

// Transform parses the element's own transform attribute.
func Transform(el *etree.Element) (Affine, error) {
	m, err := ParseTransform(el.SelectAttrValue("transform", ""))
	if err != nil {
		return Identity, fmt.Errorf("%s#%s: %w", el.Tag, el.SelectAttrValue("id", ""), err)
	}
	return m, nil
}

// ParentCTM composes the transforms of el's ancestors from the root down.
// The stop element's own transform and everything above it are skipped, so
// coordinates come out in the stop element's local space.
func ParentCTM(el, stop *etree.Element) (Affine, error) {
	var chain []*etree.Element
	for p := el.Parent(); p != nil && p != stop; p = p.Parent() {
		chain = append(chain, p)
	}
	m := Identity
	for i := len(chain) - 1; i >= 0; i-- {
		t, err := Transform(chain[i])
		if err != nil {
			return Identity, err
		}
		m = m.Mul(t)
	}
	return m, nil
}

// Replace swaps old for repl at the same position under old's parent.
func (d *Document) Replace(old, repl *etree.Element) error {
	parent := old.Parent()
	if parent == nil {
		return fmt.Errorf("cannot replace detached <%s>", old.Tag)
	}
	idx := old.Index()
	parent.InsertChildAt(idx, repl)
	parent.RemoveChildAt(idx + 1)
	return nil
}

// WriteTo serializes the (possibly adapted) document.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return d.doc.WriteTo(w)
}
