// internal/geometry/transform_parse.go
package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTransform parses a transform list such as "rotate(30) scale(2, 1)"
// into a single matrix. Functions are applied left to right, the same way
// CSS transform lists compose. "none" and the empty string are the identity.
//
// Supported functions: matrix(a,b,c,d,e,f), translate(x[,y]), translateX,
// translateY, scale(s[,sy]), scaleX, scaleY, rotate(angle), skew(ax[,ay]),
// skewX, skewY. Angles accept deg (default), rad and turn units.
func ParseTransform(s string) (Matrix, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" || s == "identity" {
		return Identity(), nil
	}

	final := Identity()
	for _, f := range strings.Split(s, ")") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		parts := strings.SplitN(f, "(", 2)
		if len(parts) != 2 {
			return Matrix{}, fmt.Errorf("malformed transform function %q", f)
		}
		name := strings.TrimSpace(parts[0])
		args := strings.Fields(strings.ReplaceAll(parts[1], ",", " "))

		current, err := transformFunction(name, args)
		if err != nil {
			return Matrix{}, err
		}
		final = final.Multiply(current)
	}
	return final, nil
}

func transformFunction(name string, args []string) (Matrix, error) {
	nums := func(n ...int) ([]float64, error) {
		ok := false
		for _, want := range n {
			if len(args) == want {
				ok = true
			}
		}
		if !ok {
			return nil, fmt.Errorf("%s: unexpected argument count %d", name, len(args))
		}
		out := make([]float64, len(args))
		for i, a := range args {
			v, err := strconv.ParseFloat(strings.TrimSuffix(a, "px"), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[i] = v
		}
		return out, nil
	}
	angles := func(n ...int) ([]float64, error) {
		ok := false
		for _, want := range n {
			if len(args) == want {
				ok = true
			}
		}
		if !ok {
			return nil, fmt.Errorf("%s: unexpected argument count %d", name, len(args))
		}
		out := make([]float64, len(args))
		for i, a := range args {
			v, err := parseAngle(a)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[i] = v
		}
		return out, nil
	}

	switch name {
	case "matrix":
		v, err := nums(6)
		if err != nil {
			return Matrix{}, err
		}
		return Matrix{A: v[0], B: v[1], C: v[2], D: v[3], E: v[4], F: v[5]}, nil
	case "translate":
		v, err := nums(1, 2)
		if err != nil {
			return Matrix{}, err
		}
		ty := 0.0
		if len(v) > 1 {
			ty = v[1]
		}
		return Translate(v[0], ty), nil
	case "translateX":
		v, err := nums(1)
		if err != nil {
			return Matrix{}, err
		}
		return Translate(v[0], 0), nil
	case "translateY":
		v, err := nums(1)
		if err != nil {
			return Matrix{}, err
		}
		return Translate(0, v[0]), nil
	case "scale":
		v, err := nums(1, 2)
		if err != nil {
			return Matrix{}, err
		}
		sy := v[0]
		if len(v) > 1 {
			sy = v[1]
		}
		return Scale(v[0], sy), nil
	case "scaleX":
		v, err := nums(1)
		if err != nil {
			return Matrix{}, err
		}
		return Scale(v[0], 1), nil
	case "scaleY":
		v, err := nums(1)
		if err != nil {
			return Matrix{}, err
		}
		return Scale(1, v[0]), nil
	case "rotate":
		v, err := angles(1)
		if err != nil {
			return Matrix{}, err
		}
		return Rotate(v[0]), nil
	case "skew":
		v, err := angles(1, 2)
		if err != nil {
			return Matrix{}, err
		}
		ay := 0.0
		if len(v) > 1 {
			ay = v[1]
		}
		return Skew(v[0], ay), nil
	case "skewX":
		v, err := angles(1)
		if err != nil {
			return Matrix{}, err
		}
		return Skew(v[0], 0), nil
	case "skewY":
		v, err := angles(1)
		if err != nil {
			return Matrix{}, err
		}
		return Skew(0, v[0]), nil
	}
	return Matrix{}, fmt.Errorf("unknown transform function %q", name)
}

// parseAngle converts an angle with an optional unit into radians.
func parseAngle(s string) (float64, error) {
	s = strings.TrimSpace(s)
	scale := math.Pi / 180.0
	switch {
	case strings.HasSuffix(s, "deg"):
		s = strings.TrimSuffix(s, "deg")
	case strings.HasSuffix(s, "rad"):
		s = strings.TrimSuffix(s, "rad")
		scale = 1
	case strings.HasSuffix(s, "turn"):
		s = strings.TrimSuffix(s, "turn")
		scale = 2 * math.Pi
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v * scale, nil
}

// ParseThickness accepts one, two or four comma/space separated numbers:
// "4" (uniform), "4,2" (horizontal, vertical), "1,2,3,4" (left, top, right, bottom).
func ParseThickness(s string) (Thickness, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Thickness{}, fmt.Errorf("invalid thickness %q: %w", s, err)
		}
		vals[i] = v
	}
	switch len(vals) {
	case 1:
		return Uniform(vals[0]), nil
	case 2:
		return Thickness{Left: vals[0], Top: vals[1], Right: vals[0], Bottom: vals[1]}, nil
	case 4:
		return Thickness{Left: vals[0], Top: vals[1], Right: vals[2], Bottom: vals[3]}, nil
	}
	return Thickness{}, fmt.Errorf("invalid thickness %q: want 1, 2 or 4 values", s)
}

// ParsePoint accepts "x,y".
func ParsePoint(s string) (Point, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) != 2 {
		return Point{}, fmt.Errorf("invalid point %q", s)
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return Point{X: x, Y: y}, nil
}
