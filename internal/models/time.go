package models

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"strings"
)

// Time is a signed duration in integer nanoseconds.
//
// Rounding rules used throughout the module: DivFloor rounds toward negative
// infinity, DivCeil toward positive infinity, and Mod is Euclidean (the
// result lies in [0, d) for a positive divisor). Products that may exceed
// 64 bits go through MulDivFloor/MulDivCeil, which keep a 128-bit
// intermediate.
type Time int64

const (
	Nanosecond  Time = 1
	Microsecond      = 1000 * Nanosecond
	Millisecond      = 1000 * Microsecond
	Second           = 1000 * Millisecond

	// MaxTime is used as an "unbounded" limit.
	MaxTime Time = math.MaxInt64
)

var (
	ErrInvalidTime  = errors.New("invalid time")
	ErrUnknownUnit  = errors.New("unknown time unit")
	ErrSubNanoTime  = errors.New("time is not a whole number of nanoseconds")
	ErrTimeOverflow = errors.New("time overflows int64 nanoseconds")
)

func Nanos(n int64) Time   { return Time(n) }
func Micros(n int64) Time  { return Time(n) * Microsecond }
func Millis(n int64) Time  { return Time(n) * Millisecond }
func Seconds(n int64) Time { return Time(n) * Second }

// Nanos returns t as a plain integer.
func (t Time) Nanos() int64 { return int64(t) }

// Mul scales t by n.
func (t Time) Mul(n int64) Time { return Time(MulDivFloor(int64(t), n, 1)) }

// DivFloor returns floor(t / d).
func (t Time) DivFloor(d Time) int64 {
	q := int64(t) / int64(d)
	if (int64(t)%int64(d) != 0) && ((t < 0) != (d < 0)) {
		q--
	}
	return q
}

// DivCeil returns ceil(t / d).
func (t Time) DivCeil(d Time) int64 {
	q := int64(t) / int64(d)
	if (int64(t)%int64(d) != 0) && ((t < 0) == (d < 0)) {
		q++
	}
	return q
}

// Mod returns the Euclidean remainder of t by d.
func (t Time) Mod(d Time) Time {
	r := t % d
	if r < 0 {
		if d < 0 {
			r -= d
		} else {
			r += d
		}
	}
	return r
}

// FloorTo rounds t down to a multiple of d.
func (t Time) FloorTo(d Time) Time { return d.Mul(t.DivFloor(d)) }

func (t Time) String() string { return fmt.Sprintf("%d ns", int64(t)) }

// SatMul returns t*n for non-negative operands, saturating at MaxTime.
func (t Time) SatMul(n int64) Time {
	if t < 0 || n < 0 {
		panic("models: SatMul on negative operand")
	}
	if n != 0 && t > MaxTime/Time(n) {
		return MaxTime
	}
	return t * Time(n)
}

// SatAdd returns a+b, saturating at MaxTime when b is positive.
func SatAdd(a, b Time) Time {
	if b > 0 && a > MaxTime-b {
		return MaxTime
	}
	return a + b
}

func abs64(x int64) uint64 {
	if x < 0 {
		return uint64(-x)
	}
	return uint64(x)
}

// MulDivFloor computes floor(a*b/c) with a 128-bit intermediate product.
// It panics if c is zero or the quotient does not fit in an int64.
func MulDivFloor(a, b, c int64) int64 { return mulDiv(a, b, c, false) }

// MulDivCeil computes ceil(a*b/c) with a 128-bit intermediate product.
func MulDivCeil(a, b, c int64) int64 { return mulDiv(a, b, c, true) }

func mulDiv(a, b, c int64, ceil bool) int64 {
	if c == 0 {
		panic("models: division by zero")
	}
	if a == 0 || b == 0 {
		return 0
	}
	neg := (a < 0) != (b < 0) != (c < 0)
	hi, lo := bits.Mul64(abs64(a), abs64(b))
	uc := abs64(c)
	if hi >= uc {
		panic(ErrTimeOverflow)
	}
	q, r := bits.Div64(hi, lo, uc)
	// round the magnitude away from zero when the signed result needs it
	if r != 0 && ceil != neg {
		q++
	}
	if neg {
		if q > 1<<63 {
			panic(ErrTimeOverflow)
		}
		return -int64(q)
	}
	if q > math.MaxInt64 {
		panic(ErrTimeOverflow)
	}
	return int64(q)
}

// GCD of two non-negative times.
func GCD(a, b Time) Time {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LCM of two positive times, failing with ErrTimeOverflow.
func LCM(a, b Time) (Time, error) {
	g := GCD(a, b)
	hi, lo := bits.Mul64(uint64(a/g), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, ErrTimeOverflow
	}
	return Time(lo), nil
}

// ParseUnit maps a unit suffix to its length in nanoseconds.
func ParseUnit(unit string) (Time, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "s":
		return Second, nil
	case "ms":
		return Millisecond, nil
	case "us", "µs":
		return Microsecond, nil
	case "ns", "":
		return Nanosecond, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
}

// ParseTime parses "<value>" or "<value> <unit>". A bare value is read in
// defaultUnit. Decimal values are accepted when they scale to whole
// nanoseconds, so "1.5 ms" is valid and "0.1 ns" is not.
func ParseTime(s string, defaultUnit Time) (Time, error) {
	fields := strings.Fields(s)
	unit := defaultUnit
	switch len(fields) {
	case 1:
		// "10ms" style
		num, suffix := splitSuffix(fields[0])
		if num == "" {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
		if suffix != "" {
			u, err := ParseUnit(suffix)
			if err != nil {
				return 0, err
			}
			unit = u
		}
		fields[0] = num
	case 2:
		u, err := ParseUnit(fields[1])
		if err != nil {
			return 0, err
		}
		unit = u
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return ScaleDecimal(fields[0], unit)
}

func splitSuffix(s string) (string, string) {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if (c >= '0' && c <= '9') || c == '.' {
			break
		}
		i--
	}
	return s[:i], s[i:]
}

// ScaleDecimal parses a decimal number and multiplies it by unit exactly.
func ScaleDecimal(value string, unit Time) (Time, error) {
	r, ok := new(big.Rat).SetString(value)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	r.Mul(r, new(big.Rat).SetInt64(int64(unit)))
	if !r.IsInt() {
		return 0, fmt.Errorf("%w: %s", ErrSubNanoTime, value)
	}
	n := r.Num()
	if !n.IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrTimeOverflow, value)
	}
	return Time(n.Int64()), nil
}
