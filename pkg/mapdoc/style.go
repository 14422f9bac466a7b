package mapdoc

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/image/colornames"
)

// Style is the subset of SVG presentation the renderer understands.
type Style struct {
	Fill        color.RGBA
	HasFill     bool
	Stroke      color.RGBA
	HasStroke   bool
	StrokeWidth float64
}

// DefaultStyle is the SVG initial value: black fill, no stroke.
var DefaultStyle = Style{Fill: color.RGBA{0, 0, 0, 255}, HasFill: true, StrokeWidth: 1}

// declarations merges presentation attributes with the style attribute,
// the latter winning.
func declarations(el *etree.Element) map[string]string {
	decl := make(map[string]string)
	for _, key := range []string{"fill", "stroke", "stroke-width"} {
		if v := el.SelectAttrValue(key, ""); v != "" {
			decl[key] = v
		}
	}
	for _, part := range strings.Split(el.SelectAttrValue("style", ""), ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		decl[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return decl
}

// ResolveStyle computes the inherited style of el.
func ResolveStyle(el *etree.Element) Style {
	var chain []*etree.Element
	for p := el; p != nil; p = p.Parent() {
		chain = append(chain, p)
	}
	st := DefaultStyle
	for i := len(chain) - 1; i >= 0; i-- {
		decl := declarations(chain[i])
		if v, ok := decl["fill"]; ok {
			st.Fill, st.HasFill = ParseColor(v)
		}
		if v, ok := decl["stroke"]; ok {
			st.Stroke, st.HasStroke = ParseColor(v)
		}
		if v, ok := decl["stroke-width"]; ok {
			if w, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64); err == nil {
				st.StrokeWidth = w
			}
		}
	}
	return st
}

// SetStyleProperty rewrites one declaration in the style attribute.
func SetStyleProperty(el *etree.Element, key, value string) {
	var parts []string
	replaced := false
	for _, part := range strings.Split(el.SelectAttrValue("style", ""), ";") {
		k, _, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(k) == key {
			parts = append(parts, key+":"+value)
			replaced = true
			continue
		}
		parts = append(parts, strings.TrimSpace(part))
	}
	if !replaced {
		parts = append(parts, key+":"+value)
	}
	el.CreateAttr("style", strings.Join(parts, ";"))
}

// ParseColor understands #rgb, #rrggbb and SVG colour keywords. "none" and
// unknown values report false.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" || s == "transparent" {
		return color.RGBA{}, false
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return color.RGBA{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, false
		}
		return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}, true
	}
	c, ok := colornames.Map[s]
	return c, ok
}
