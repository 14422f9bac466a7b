package mapdoc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Affine is an SVG matrix(a b c d e f):
//
//	x' = a*x + c*y + e
//	y' = b*x + d*y + f
type Affine [6]float64

var Identity = Affine{1, 0, 0, 1, 0, 0}

// Mul returns m·n, i.e. n is applied first.
func (m Affine) Mul(n Affine) Affine {
	return Affine{
		m[0]*n[0] + m[2]*n[1],
		m[1]*n[0] + m[3]*n[1],
		m[0]*n[2] + m[2]*n[3],
		m[1]*n[2] + m[3]*n[3],
		m[0]*n[4] + m[2]*n[5] + m[4],
		m[1]*n[4] + m[3]*n[5] + m[5],
	}
}

func (m Affine) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Invert returns the inverse transform; a degenerate matrix yields false.
func (m Affine) Invert() (Affine, bool) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 {
		return Identity, false
	}
	a, b, c, d := m[3]/det, -m[1]/det, -m[2]/det, m[0]/det
	return Affine{a, b, c, d, -(a*m[4] + c*m[5]), -(b*m[4] + d*m[5])}, true
}

// ScaleFactor is the geometric mean of the axis scales, used for stroke widths.
func (m Affine) ScaleFactor() float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

func Translate(tx, ty float64) Affine { return Affine{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) Affine     { return Affine{sx, 0, 0, sy, 0, 0} }

func rotate(deg float64) Affine {
	r := deg * math.Pi / 180
	c, s := math.Cos(r), math.Sin(r)
	return Affine{c, s, -s, c, 0, 0}
}

// ParseTransform parses an SVG transform list such as
// "translate(10,20) scale(2)". An empty string is the identity.
func ParseTransform(s string) (Affine, error) {
	m := Identity
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closeIdx := strings.IndexByte(rest, ')')
		if open < 0 || closeIdx < open {
			return Identity, fmt.Errorf("bad transform %q", s)
		}
		name := strings.TrimSpace(strings.Trim(rest[:open], ", "))
		args, err := parseNumberList(rest[open+1 : closeIdx])
		if err != nil {
			return Identity, fmt.Errorf("bad transform %q: %w", s, err)
		}
		var t Affine
		switch name {
		case "matrix":
			if len(args) != 6 {
				return Identity, fmt.Errorf("matrix() needs 6 arguments in %q", s)
			}
			copy(t[:], args)
		case "translate":
			switch len(args) {
			case 1:
				t = Translate(args[0], 0)
			case 2:
				t = Translate(args[0], args[1])
			default:
				return Identity, fmt.Errorf("translate() needs 1 or 2 arguments in %q", s)
			}
		case "scale":
			switch len(args) {
			case 1:
				t = Scale(args[0], args[0])
			case 2:
				t = Scale(args[0], args[1])
			default:
				return Identity, fmt.Errorf("scale() needs 1 or 2 arguments in %q", s)
			}
		case "rotate":
			switch len(args) {
			case 1:
				t = rotate(args[0])
			case 3:
				t = Translate(args[1], args[2]).Mul(rotate(args[0])).Mul(Translate(-args[1], -args[2]))
			default:
				return Identity, fmt.Errorf("rotate() needs 1 or 3 arguments in %q", s)
			}
		case "skewX":
			if len(args) != 1 {
				return Identity, fmt.Errorf("skewX() needs 1 argument in %q", s)
			}
			t = Affine{1, 0, math.Tan(args[0] * math.Pi / 180), 1, 0, 0}
		case "skewY":
			if len(args) != 1 {
				return Identity, fmt.Errorf("skewY() needs 1 argument in %q", s)
			}
			t = Affine{1, math.Tan(args[0] * math.Pi / 180), 0, 1, 0, 0}
		default:
			return Identity, fmt.Errorf("unknown transform %q in %q", name, s)
		}
		m = m.Mul(t)
		rest = strings.TrimSpace(rest[closeIdx+1:])
	}
	return m, nil
}

func parseNumberList(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
