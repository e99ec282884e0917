// Package settings holds the remote-writable configuration: the live copy a
// connected peer edits, the persisted copy that survives power cycles, and
// the write-through between them on disconnect.
package settings

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// SchemaVersion tags the persisted record layout. A record carrying any
// other version is ignored.
const SchemaVersion = 2

// Configuration is the remote-writable settings record. Field order and
// widths define the persisted layout.
type Configuration struct {
	Version               int32 `json:"version"`
	Run                   bool  `json:"run"`
	LightCount            int32 `json:"lightCount"`
	StripeWidth           int32 `json:"stripeWidth"`
	CarLength             int32 `json:"carLength"`
	SecondsBetweenEffects int32 `json:"secondsBetweenEffects"`
}

// Defaults is the first-run configuration.
func Defaults() Configuration {
	return Configuration{
		Version:               SchemaVersion,
		Run:                   true,
		LightCount:            150,
		StripeWidth:           5,
		CarLength:             5,
		SecondsBetweenEffects: 5,
	}
}

// Normalized clamps every field into the range the render loop can use.
// Writes are stored as given; the loop normalizes on every read.
func (c Configuration) Normalized(maxLights int) Configuration {
	c.LightCount = clamp32(c.LightCount, 1, int32(maxLights))
	c.StripeWidth = clamp32(c.StripeWidth, 1, math.MaxInt32)
	c.CarLength = clamp32(c.CarLength, 1, math.MaxInt32)
	c.SecondsBetweenEffects = clamp32(c.SecondsBetweenEffects, 1, math.MaxInt32)
	return c
}

// Interval is the time between effect switches.
func (c Configuration) Interval() time.Duration {
	return time.Duration(c.SecondsBetweenEffects) * time.Second
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Field names one independently writable setting.
type Field int

const (
	FieldRun Field = iota
	FieldLightCount
	FieldStripeWidth
	FieldCarLength
	FieldSecondsBetweenEffects
)

// Fields lists every writable field in advertisement order.
var Fields = []Field{FieldRun, FieldLightCount, FieldStripeWidth, FieldCarLength, FieldSecondsBetweenEffects}

var fieldNames = map[Field]string{
	FieldRun:                   "run",
	FieldLightCount:            "lights",
	FieldStripeWidth:           "stripe",
	FieldCarLength:             "car",
	FieldSecondsBetweenEffects: "seconds",
}

func (f Field) String() string {
	if s, ok := fieldNames[f]; ok {
		return s
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ErrUnknownField is returned for a field outside the record.
var ErrUnknownField = errors.New("settings: unknown field")

// ParseField maps a field name to its Field.
func ParseField(s string) (Field, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range fieldNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Get returns the value of f as the peer sees it.
func (c Configuration) Get(f Field) (uint32, error) {
	switch f {
	case FieldRun:
		if c.Run {
			return 1, nil
		}
		return 0, nil
	case FieldLightCount:
		return toWire(c.LightCount), nil
	case FieldStripeWidth:
		return toWire(c.StripeWidth), nil
	case FieldCarLength:
		return toWire(c.CarLength), nil
	case FieldSecondsBetweenEffects:
		return toWire(c.SecondsBetweenEffects), nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnknownField, f)
}

// With returns a copy of c with f set to v.
func (c Configuration) With(f Field, v uint32) (Configuration, error) {
	n := fromWire(v)
	switch f {
	case FieldRun:
		c.Run = v != 0
	case FieldLightCount:
		c.LightCount = n
	case FieldStripeWidth:
		c.StripeWidth = n
	case FieldCarLength:
		c.CarLength = n
	case FieldSecondsBetweenEffects:
		c.SecondsBetweenEffects = n
	default:
		return c, fmt.Errorf("%w: %v", ErrUnknownField, f)
	}
	return c, nil
}

func toWire(v int32) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}

func fromWire(v uint32) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}
