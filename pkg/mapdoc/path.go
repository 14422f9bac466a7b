package mapdoc

import (
	"fmt"
	"math"
	"strconv"
)

// Point is a position in some coordinate space.
type Point struct{ X, Y float64 }

// Polyline is one flattened subpath.
type Polyline []Point

// curveSegments is how many chords each Bézier curve is flattened into.
const curveSegments = 16

// Length is the total length of all polylines.
func Length(lines []Polyline) float64 {
	total := 0.0
	for _, l := range lines {
		for i := 1; i < len(l); i++ {
			total += math.Hypot(l[i].X-l[i-1].X, l[i].Y-l[i-1].Y)
		}
	}
	return total
}

// TransformAll maps every point through m.
func TransformAll(lines []Polyline, m Affine) []Polyline {
	out := make([]Polyline, len(lines))
	for i, l := range lines {
		pl := make(Polyline, len(l))
		for j, p := range l {
			pl[j].X, pl[j].Y = m.Apply(p.X, p.Y)
		}
		out[i] = pl
	}
	return out
}

type pathScanner struct {
	d   string
	pos int
}

func (s *pathScanner) skipSeparators() {
	for s.pos < len(s.d) {
		switch s.d[s.pos] {
		case ' ', ',', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func isCommand(c byte) bool {
	switch c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'C', 'c', 'S', 's', 'Q', 'q', 'T', 't', 'A', 'a', 'Z', 'z':
		return true
	}
	return false
}

func (s *pathScanner) number() (float64, error) {
	s.skipSeparators()
	start := s.pos
	if s.pos < len(s.d) && (s.d[s.pos] == '-' || s.d[s.pos] == '+') {
		s.pos++
	}
	seenDot, seenDigit := false, false
	for s.pos < len(s.d) {
		c := s.d[s.pos]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			s.pos++
		case c == '.' && !seenDot:
			seenDot = true
			s.pos++
		case (c == 'e' || c == 'E') && seenDigit:
			s.pos++
			if s.pos < len(s.d) && (s.d[s.pos] == '-' || s.d[s.pos] == '+') {
				s.pos++
			}
			for s.pos < len(s.d) && s.d[s.pos] >= '0' && s.d[s.pos] <= '9' {
				s.pos++
			}
			return strconv.ParseFloat(s.d[start:s.pos], 64)
		default:
			return s.finishNumber(start, seenDigit)
		}
	}
	return s.finishNumber(start, seenDigit)
}

func (s *pathScanner) finishNumber(start int, seenDigit bool) (float64, error) {
	if !seenDigit {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	return strconv.ParseFloat(s.d[start:s.pos], 64)
}

// flag reads an arc flag, which may be packed without separators ("01").
func (s *pathScanner) flag() (bool, error) {
	s.skipSeparators()
	if s.pos >= len(s.d) {
		return false, fmt.Errorf("expected flag at end of path")
	}
	switch s.d[s.pos] {
	case '0':
		s.pos++
		return false, nil
	case '1':
		s.pos++
		return true, nil
	}
	return false, fmt.Errorf("expected flag at offset %d", s.pos)
}

func (s *pathScanner) numbers(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := s.number()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ParsePath flattens SVG path data into polylines in the path's own
// coordinate space. Curves and arcs are approximated by chords.
func ParsePath(d string) ([]Polyline, error) {
	s := &pathScanner{d: d}
	var (
		lines          []Polyline
		cur            Polyline
		x, y           float64
		startX, startY float64
		ctrlX, ctrlY   float64 // last control point, for S/T reflection
		prevCmd        byte
		cmd            byte
	)
	flush := func() {
		if len(cur) > 1 {
			lines = append(lines, cur)
		}
		cur = nil
	}
	lineTo := func(nx, ny float64) {
		if len(cur) == 0 {
			cur = Polyline{{x, y}}
		}
		cur = append(cur, Point{nx, ny})
		x, y = nx, ny
	}

	for {
		s.skipSeparators()
		if s.pos >= len(s.d) {
			break
		}
		if c := s.d[s.pos]; isCommand(c) {
			cmd = c
			s.pos++
		} else if cmd == 0 {
			return nil, fmt.Errorf("path %q: data must start with a command", d)
		} else if cmd == 'Z' || cmd == 'z' {
			return nil, fmt.Errorf("path %q: unexpected data after close at offset %d", d, s.pos)
		}

		rel := cmd >= 'a'
		ox, oy := 0.0, 0.0
		if rel {
			ox, oy = x, y
		}

		switch cmd {
		case 'M', 'm':
			p, err := s.numbers(2)
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", d, err)
			}
			flush()
			x, y = p[0]+ox, p[1]+oy
			startX, startY = x, y
			cur = Polyline{{x, y}}
			// Further pairs after a moveto are implicit linetos.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L', 'l':
			p, err := s.numbers(2)
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", d, err)
			}
			lineTo(p[0]+ox, p[1]+oy)
		case 'H', 'h':
			v, err := s.number()
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", d, err)
			}
			lineTo(v+ox, y)
		case 'V', 'v':
			v, err := s.number()
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", d, err)
			}
			lineTo(x, v+oy)
		case 'C', 'c', 'S', 's':
			var x1, y1 float64
			var rest []float64
			var err error
			if cmd == 'C' || cmd == 'c' {
				var p []float64
				if p, err = s.numbers(6); err != nil {
					return nil, fmt.Errorf("path %q: %w", d, err)
				}
				x1, y1, rest = p[0]+ox, p[1]+oy, p[2:]
			} else {
				if rest, err = s.numbers(4); err != nil {
					return nil, fmt.Errorf("path %q: %w", d, err)
				}
				x1, y1 = x, y
				switch prevCmd {
				case 'C', 'c', 'S', 's':
					x1, y1 = 2*x-ctrlX, 2*y-ctrlY
				}
			}
			x2, y2 := rest[0]+ox, rest[1]+oy
			ex, ey := rest[2]+ox, rest[3]+oy
			x0, y0 := x, y
			for i := 1; i <= curveSegments; i++ {
				t := float64(i) / curveSegments
				mt := 1 - t
				px := mt*mt*mt*x0 + 3*mt*mt*t*x1 + 3*mt*t*t*x2 + t*t*t*ex
				py := mt*mt*mt*y0 + 3*mt*mt*t*y1 + 3*mt*t*t*y2 + t*t*t*ey
				lineTo(px, py)
			}
			ctrlX, ctrlY = x2, y2
		case 'Q', 'q', 'T', 't':
			var qx, qy, ex, ey float64
			if cmd == 'Q' || cmd == 'q' {
				p, err := s.numbers(4)
				if err != nil {
					return nil, fmt.Errorf("path %q: %w", d, err)
				}
				qx, qy, ex, ey = p[0]+ox, p[1]+oy, p[2]+ox, p[3]+oy
			} else {
				p, err := s.numbers(2)
				if err != nil {
					return nil, fmt.Errorf("path %q: %w", d, err)
				}
				ex, ey = p[0]+ox, p[1]+oy
				qx, qy = x, y
				switch prevCmd {
				case 'Q', 'q', 'T', 't':
					qx, qy = 2*x-ctrlX, 2*y-ctrlY
				}
			}
			x0, y0 := x, y
			for i := 1; i <= curveSegments; i++ {
				t := float64(i) / curveSegments
				mt := 1 - t
				lineTo(mt*mt*x0+2*mt*t*qx+t*t*ex, mt*mt*y0+2*mt*t*qy+t*t*ey)
			}
			ctrlX, ctrlY = qx, qy
		case 'A', 'a':
			p, err := s.numbers(3)
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", d, err)
			}
			large, err := s.flag()
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", d, err)
			}
			sweep, err := s.flag()
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", d, err)
			}
			end, err := s.numbers(2)
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", d, err)
			}
			for _, pt := range arcPoints(x, y, p[0], p[1], p[2], large, sweep, end[0]+ox, end[1]+oy) {
				lineTo(pt.X, pt.Y)
			}
		case 'Z', 'z':
			if len(cur) > 0 && (x != startX || y != startY) {
				lineTo(startX, startY)
			}
			flush()
			x, y = startX, startY
		}
		prevCmd = cmd
	}
	flush()
	return lines, nil
}

// arcPoints converts an SVG endpoint arc to chord endpoints (F.6.5 of the
// SVG 1.1 implementation notes), excluding the start point.
func arcPoints(x1, y1, rx, ry, phiDeg float64, large, sweep bool, x2, y2 float64) []Point {
	if x1 == x2 && y1 == y2 {
		return nil
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		return []Point{{x2, y2}}
	}
	phi := phiDeg * math.Pi / 180
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
	dx, dy := (x1-x2)/2, (y1-y2)/2
	x1p := cosPhi*dx + sinPhi*dy
	y1p := -sinPhi*dx + cosPhi*dy

	if lambda := (x1p*x1p)/(rx*rx) + (y1p*y1p)/(ry*ry); lambda > 1 {
		s := math.Sqrt(lambda)
		rx, ry = rx*s, ry*s
	}
	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	coef := 0.0
	if den != 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cxp, cyp := coef*rx*y1p/ry, -coef*ry*x1p/rx
	cx := cosPhi*cxp - sinPhi*cyp + (x1+x2)/2
	cy := sinPhi*cxp + cosPhi*cyp + (y1+y2)/2

	angle := func(ux, uy, vx, vy float64) float64 {
		return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
	}
	theta1 := angle(1, 0, (x1p-cxp)/rx, (y1p-cyp)/ry)
	delta := angle((x1p-cxp)/rx, (y1p-cyp)/ry, (-x1p-cxp)/rx, (-y1p-cyp)/ry)
	if !sweep && delta > 0 {
		delta -= 2 * math.Pi
	} else if sweep && delta < 0 {
		delta += 2 * math.Pi
	}

	n := int(math.Ceil(math.Abs(delta) / (math.Pi / 8)))
	if n < 1 {
		n = 1
	}
	pts := make([]Point, 0, n)
	for i := 1; i <= n; i++ {
		th := theta1 + delta*float64(i)/float64(n)
		px, py := rx*math.Cos(th), ry*math.Sin(th)
		pts = append(pts, Point{cosPhi*px - sinPhi*py + cx, sinPhi*px + cosPhi*py + cy})
	}
	pts[len(pts)-1] = Point{x2, y2}
	return pts
}

// Bounds is the bounding box of all points.
func Bounds(lines []Polyline) Rect {
	first := true
	var minX, minY, maxX, maxY float64
	for _, l := range lines {
		for _, p := range l {
			if first {
				minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
				first = false
				continue
			}
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Dash cuts polylines into the drawn segments of an SVG dash pattern
// started at offset. Odd-length patterns repeat, as in stroke-dasharray.
// An empty or all-zero pattern draws everything.
func Dash(lines []Polyline, pattern []float64, offset float64) []Polyline {
	total := 0.0
	for _, v := range pattern {
		total += v
	}
	if len(pattern) == 0 || total <= 0 {
		return lines
	}
	if len(pattern)%2 == 1 {
		pattern = append(append([]float64{}, pattern...), pattern...)
		total *= 2
	}

	// Position within the pattern, and whether that part is drawn.
	idx := 0
	remaining := pattern[0]
	on := true
	offset = math.Mod(offset, total)
	if offset < 0 {
		offset += total
	}
	for offset > 0 {
		if offset < remaining {
			remaining -= offset
			break
		}
		offset -= remaining
		idx = (idx + 1) % len(pattern)
		remaining = pattern[idx]
		on = !on
	}

	var out []Polyline
	var cur Polyline
	emit := func() {
		if len(cur) > 1 {
			out = append(out, cur)
		}
		cur = nil
	}
	for _, l := range lines {
		for i := 1; i < len(l); i++ {
			a, b := l[i-1], l[i]
			segLen := math.Hypot(b.X-a.X, b.Y-a.Y)
			pos := 0.0
			for pos < segLen {
				step := math.Min(remaining, segLen-pos)
				t0, t1 := pos/segLen, (pos+step)/segLen
				if on {
					p0 := Point{a.X + (b.X-a.X)*t0, a.Y + (b.Y-a.Y)*t0}
					p1 := Point{a.X + (b.X-a.X)*t1, a.Y + (b.Y-a.Y)*t1}
					if len(cur) == 0 {
						cur = Polyline{p0}
					}
					cur = append(cur, p1)
				}
				pos += step
				remaining -= step
				if remaining <= 1e-12 {
					if on {
						emit()
					}
					idx = (idx + 1) % len(pattern)
					remaining = pattern[idx]
					on = !on
				}
			}
		}
		emit()
	}
	return out
}
