// Package color provides an immutable RGBA color value and hex string parsing.
//
// Two hex forms are accepted, both carrying six hex digits and no alpha:
//
//	#RRGGBB    (7 chars)
//	0xRRGGBB   (8 chars)
//
// Parsed colors are always fully opaque (alpha 255).
package color

import (
	"errors"
	"fmt"
	stdcolor "image/color"
	"strconv"
)

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

var (
	// ErrTooShort is returned for hex input with fewer than 2 characters.
	ErrTooShort = errors.New("too few chars")
	// ErrFormat is returned when the input length or prefix matches neither
	// hex form, or when a digit group is not valid hex.
	ErrFormat = errors.New("incorrect hex format")
)

// ParseError records a failed [ParseHex] call.
type ParseError struct {
	// Input is the string passed to [ParseHex].
	Input string
	// Err is [ErrTooShort] or [ErrFormat], possibly wrapping a strconv error.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid hex color %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ///////////////////////////////////////////////
// Color
// ///////////////////////////////////////////////

// Color is a non-premultiplied 8-bit RGBA value. The zero value is
// transparent black. Colors compare with ==.
type Color struct {
	r, g, b, a uint8
}

// New returns a Color with the given channels.
func New(r, g, b, a uint8) Color {
	return Color{r: r, g: g, b: b, a: a}
}

// R returns the red channel.
func (c Color) R() uint8 { return c.r }

// G returns the green channel.
func (c Color) G() uint8 { return c.g }

// B returns the blue channel.
func (c Color) B() uint8 { return c.b }

// A returns the alpha channel.
func (c Color) A() uint8 { return c.a }

// NRGBA converts c to the standard library representation.
func (c Color) NRGBA() stdcolor.NRGBA {
	return stdcolor.NRGBA{R: c.r, G: c.g, B: c.b, A: c.a}
}

// RGBA implements [image/color.Color].
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

// Hex formats the color channels as "#rrggbb", ignoring alpha.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.r, c.g, c.b)
}

// String returns "#rrggbb" for opaque colors and "#rrggbbaa" otherwise.
func (c Color) String() string {
	if c.a == 255 {
		return c.Hex()
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.r, c.g, c.b, c.a)
}

// ///////////////////////////////////////////////
// Parsing
// ///////////////////////////////////////////////

// ParseHex parses "#RRGGBB" or "0xRRGGBB" into an opaque Color.
// Hex digits are case-insensitive. Any malformed digit fails the whole
// parse; no channel ever defaults to zero.
func ParseHex(s string) (Color, error) {
	if len(s) < 2 {
		return Color{}, &ParseError{Input: s, Err: ErrTooShort}
	}

	var digits string
	switch len(s) {
	case 7:
		if s[0] != '#' {
			return Color{}, &ParseError{Input: s, Err: ErrFormat}
		}
		digits = s[1:]
	case 8:
		if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
			return Color{}, &ParseError{Input: s, Err: ErrFormat}
		}
		digits = s[2:]
	default:
		return Color{}, &ParseError{Input: s, Err: ErrFormat}
	}

	var ch [3]uint8
	for i := range ch {
		v, err := strconv.ParseUint(digits[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color{}, &ParseError{Input: s, Err: fmt.Errorf("%w: %w", ErrFormat, err)}
		}
		ch[i] = uint8(v)
	}
	return Color{r: ch[0], g: ch[1], b: ch[2], a: 255}, nil
}

// ///////////////////////////////////////////////
// NamedColor
// ///////////////////////////////////////////////

// NamedColor pairs a name with channel values. It exists only to be
// narrowed into a plain [Color] via [NamedColor.Color].
type NamedColor struct {
	Name       string
	r, g, b, a uint8
}

// NewNamed returns a NamedColor with the given name and channels.
func NewNamed(name string, r, g, b, a uint8) NamedColor {
	return NamedColor{Name: name, r: r, g: g, b: b, a: a}
}

// Color discards the name.
func (n NamedColor) Color() Color {
	return Color{r: n.r, g: n.g, b: n.b, a: n.a}
}
