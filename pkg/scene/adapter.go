package scene

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sudorandom/mtr-history/pkg/mapdoc"
)

// ErrUnsupportedElement is returned for primitives the adapter cannot draw.
var ErrUnsupportedElement = errors.New("unsupported map element")

// Marker geometry synthesized for <use> references.
const (
	stationRadius = 3.0

	interchangeWidth   = 6.0
	interchangeHeight  = 10.0
	interchangeRX      = 3.5
	interchangeAnchorX = -3.0
	interchangeAnchorY = -5.0
)

// AdaptOptions configures Adapt.
type AdaptOptions struct {
	StationTemplate     string
	InterchangeTemplate string
	// ZoomRoot bounds the transform chain; coordinates are produced in its
	// local space.
	ZoomRoot      *etree.Element
	HoverDuration time.Duration
	Animator      *Animator
}

// copyAttrs copies presentation attributes from a <use> to its replacement,
// skipping the positioning and reference ones.
func copyAttrs(dst, src *etree.Element) {
	for _, a := range src.Attr {
		switch a.Key {
		case "x", "y", "href":
			if a.Space == "" || a.Space == "xlink" {
				continue
			}
		}
		dst.CreateAttr(a.FullKey(), a.Value)
	}
}

func restyleMarker(el *etree.Element) {
	mapdoc.SetStyleProperty(el, "fill", "#fff")
	mapdoc.SetStyleProperty(el, "stroke", "#000")
	mapdoc.SetStyleProperty(el, "stroke-width", "1")
}

// Adapt turns a raw station or line primitive into an interactive element.
// <use> references to the station and interchange templates are replaced in
// the document by a synthesized circle or rounded rectangle.
func Adapt(doc *mapdoc.Document, node *etree.Element, opts AdaptOptions) (*Element, error) {
	if node.Tag == "use" {
		switch Href(node) {
		case opts.StationTemplate:
			circle := etree.NewElement("circle")
			mapdoc.SetFloat(circle, "cx", mapdoc.Float(node, "x"))
			mapdoc.SetFloat(circle, "cy", mapdoc.Float(node, "y"))
			mapdoc.SetFloat(circle, "r", stationRadius)
			copyAttrs(circle, node)
			restyleMarker(circle)
			if err := doc.Replace(node, circle); err != nil {
				return nil, err
			}
			node = circle
		case opts.InterchangeTemplate:
			rect := etree.NewElement("rect")
			mapdoc.SetFloat(rect, "x", mapdoc.Float(node, "x")+interchangeAnchorX)
			mapdoc.SetFloat(rect, "y", mapdoc.Float(node, "y")+interchangeAnchorY)
			mapdoc.SetFloat(rect, "width", interchangeWidth)
			mapdoc.SetFloat(rect, "height", interchangeHeight)
			mapdoc.SetFloat(rect, "rx", interchangeRX)
			copyAttrs(rect, node)
			restyleMarker(rect)
			if err := doc.Replace(node, rect); err != nil {
				return nil, err
			}
			node = rect
		}
	}

	parent, err := mapdoc.ParentCTM(node, opts.ZoomRoot)
	if err != nil {
		return nil, err
	}
	own, err := mapdoc.Transform(node)
	if err != nil {
		return nil, err
	}

	var e *Element
	switch node.Tag {
	case "circle":
		e = newElement(node, KindCircle, parent, own, opts.Animator, opts.HoverDuration)
		e.props[X] = mapdoc.Float(node, "cx")
		e.props[Y] = mapdoc.Float(node, "cy")
		e.props[R] = mapdoc.Float(node, "r")
	case "rect":
		e = newElement(node, KindRect, parent, own, opts.Animator, opts.HoverDuration)
		e.props[X] = mapdoc.Float(node, "x")
		e.props[Y] = mapdoc.Float(node, "y")
		e.props[Width] = mapdoc.Float(node, "width")
		e.props[Height] = mapdoc.Float(node, "height")
		e.props[RX] = mapdoc.Float(node, "rx")
	default:
		lines, err := shapeLines(doc, node)
		if err != nil {
			return nil, err
		}
		e = newElement(node, KindShape, parent, own, opts.Animator, opts.HoverDuration)
		e.lines = lines
		e.length = mapdoc.Length(lines)
	}
	e.original = e.Geometry()
	return e, nil
}

// Href returns the template name a <use> points at.
func Href(node *etree.Element) string { return mapdoc.Href(node) }

// shapeLines flattens the concrete shapes the adapter keeps as-is.
func shapeLines(doc *mapdoc.Document, node *etree.Element) ([]mapdoc.Polyline, error) {
	id := node.SelectAttrValue("id", "")
	switch node.Tag {
	case "path":
		lines, err := mapdoc.ParsePath(node.SelectAttrValue("d", ""))
		if err != nil {
			return nil, fmt.Errorf("path#%s: %w", id, err)
		}
		return lines, nil
	case "polyline", "polygon":
		pts := strings.TrimSpace(node.SelectAttrValue("points", ""))
		d := "M" + pts
		if node.Tag == "polygon" {
			d += "Z"
		}
		lines, err := mapdoc.ParsePath(d)
		if err != nil {
			return nil, fmt.Errorf("%s#%s: %w", node.Tag, id, err)
		}
		return lines, nil
	case "line":
		return []mapdoc.Polyline{{
			{X: mapdoc.Float(node, "x1"), Y: mapdoc.Float(node, "y1")},
			{X: mapdoc.Float(node, "x2"), Y: mapdoc.Float(node, "y2")},
		}}, nil
	case "use":
		// Any other reference: draw the referenced path at the use position.
		target, err := doc.ElementByID(Href(node))
		if err != nil {
			return nil, fmt.Errorf("use#%s: %w", id, err)
		}
		if target.Tag == "use" {
			return nil, fmt.Errorf("%w: nested <use> #%s", ErrUnsupportedElement, id)
		}
		lines, err := shapeLines(doc, target)
		if err != nil {
			return nil, err
		}
		return mapdoc.TransformAll(lines, mapdoc.Translate(mapdoc.Float(node, "x"), mapdoc.Float(node, "y"))), nil
	}
	return nil, fmt.Errorf("%w: <%s> #%s", ErrUnsupportedElement, node.Tag, id)
}
