package effect

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"mqtt2dmx/internal/dmx"
)

// Params are the effect tunables. Zero values are replaced with the
// defaults below.
type Params struct {
	ChaseStepSeconds float64 // time one fixture stays active in the chase
	RainbowSpeed     float64 // rainbow cycles per second; period is 1/speed
	StrobeHz         float64 // full on/off cycles per second
	FlickerHz        float64 // fire/lightning resample rate, independent of frame rate
	PartyHz          float64 // party color resample rate
	DanceRate        float64 // dance beat angular rate, rad/s
	OceanRate        float64 // ocean wave angular rate, rad/s
}

// DefaultParams returns the built-in effect tuning.
func DefaultParams() Params {
	return Params{
		ChaseStepSeconds: 0.5,
		RainbowSpeed:     0.1,
		StrobeHz:         10,
		FlickerHz:        20,
		PartyHz:          8,
		DanceRate:        30,
		OceanRate:        8,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.ChaseStepSeconds <= 0 {
		p.ChaseStepSeconds = d.ChaseStepSeconds
	}
	if p.RainbowSpeed <= 0 {
		p.RainbowSpeed = d.RainbowSpeed
	}
	if p.StrobeHz <= 0 {
		p.StrobeHz = d.StrobeHz
	}
	if p.FlickerHz <= 0 {
		p.FlickerHz = d.FlickerHz
	}
	if p.PartyHz <= 0 {
		p.PartyHz = d.PartyHz
	}
	if p.DanceRate <= 0 {
		p.DanceRate = d.DanceRate
	}
	if p.OceanRate <= 0 {
		p.OceanRate = d.OceanRate
	}
	return p
}

// chasePalette is stepped through by the color chase, one color per full
// pass of the active fixture.
var chasePalette = []dmx.Color{
	{R: 255},
	{G: 255},
	{B: 255},
	{R: 255, G: 255},
	{R: 255, B: 255},
	{G: 255, B: 255},
}

// Engine computes per-fixture colors for each mode. Stateless per call:
// the output depends only on the arguments and the tuning.
type Engine struct {
	p Params
}

// NewEngine returns an engine with the given tuning.
func NewEngine(p Params) *Engine {
	return &Engine{p: p.withDefaults()}
}

// Compute returns the color of one fixture at elapsed time t (seconds since
// animation start). Brightness scales every channel last, after the
// mode-specific color math. Valid numeric inputs never fail; all channel
// values are clamped to 0..255.
func (e *Engine) Compute(mode Mode, index, count int, t float64, brightness uint8, manual dmx.Color) (dmx.Color, error) {
	if count < 1 {
		count = 1
	}

	var c dmx.Color
	switch mode {
	case ModeOff:
		// Black regardless of brightness.
		return dmx.Color{}, nil
	case ModeManualColor:
		c = manual
	case ModeColorChase:
		c = e.colorChase(index, count, t)
	case ModeRainbowFade:
		c = e.rainbowFade(index, count, t)
	case ModeFireEffect:
		c = e.fireEffect(index, t)
	case ModeStrobe:
		c = e.strobe(t)
	case ModeWhiteLight:
		c = dmx.Color{R: 255, G: 255, B: 255, W: 255}
	case ModeDanceMode:
		c = e.danceMode(index, t)
	case ModeOceanWave:
		c = e.oceanWave(index, t)
	case ModePartyMode:
		c = e.partyMode(index, t)
	case ModeLightning:
		c = e.lightning(t)
	default:
		return dmx.Color{}, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}

	return scale(c, brightness), nil
}

// colorChase: exactly one fixture is active at a time, stepping through the
// fixtures in index order; the palette color advances every
// step*len(chasePalette) seconds.
func (e *Engine) colorChase(index, count int, t float64) dmx.Color {
	step := e.p.ChaseStepSeconds
	active := int(math.Floor(t/step)) % count
	if index != active {
		return dmx.Color{}
	}
	pi := int(math.Floor(t/(step*float64(len(chasePalette))))) % len(chasePalette)
	return chasePalette[pi]
}

// rainbowFade spreads the fixtures evenly across the color wheel and
// rotates the wheel at RainbowSpeed cycles per second.
func (e *Engine) rainbowFade(index, count int, t float64) dmx.Color {
	hue := math.Mod(t*e.p.RainbowSpeed+float64(index)/float64(count), 1)
	col := colorful.Hsv(hue*360, 1, 1)
	return dmx.Color{
		R: clamp255(col.R * 255),
		G: clamp255(col.G * 255),
		B: clamp255(col.B * 255),
	}
}

// fireEffect perturbs a warm red-orange base with bounded noise resampled
// at FlickerHz, so the flicker rate is independent of the frame rate.
func (e *Engine) fireEffect(index int, t float64) dmx.Color {
	k := math.Floor(t * e.p.FlickerHz)
	fi := float64(index)

	r := 255 * (0.6 + 0.4*noise(k, fi*3))
	g := r * (0.3 + 0.4*noise(k, fi*3+1))
	b := r * 0.2 * noise(k, fi*3+2)
	return dmx.Color{R: clamp255(r), G: clamp255(g), B: clamp255(b)}
}

// strobe toggles between full white and black exactly at multiples of
// 1/(2*StrobeHz).
func (e *Engine) strobe(t float64) dmx.Color {
	if int64(math.Floor(t*e.p.StrobeHz*2))%2 == 0 {
		return dmx.Color{R: 255, G: 255, B: 255, W: 255}
	}
	return dmx.Color{}
}

// danceMode pulses each fixture on its own sine beat, alternating warm and
// cool colors between even and odd fixtures.
func (e *Engine) danceMode(index int, t float64) dmx.Color {
	beat := math.Sin(t*e.p.DanceRate+float64(index)*7.5)*0.5 + 0.5
	v := 255 * beat
	if index%2 == 0 {
		return dmx.Color{R: clamp255(v), G: clamp255(v * 0.7)}
	}
	return dmx.Color{G: clamp255(v * 0.7), B: clamp255(v)}
}

// oceanWave rolls a slow blue/teal wave across the fixtures.
func (e *Engine) oceanWave(index int, t float64) dmx.Color {
	wave := math.Sin(t*e.p.OceanRate+float64(index)*4)*0.5 + 0.5
	v := 255 * wave
	return dmx.Color{G: clamp255(v * 0.6), B: clamp255(v)}
}

// partyMode gives every fixture a new random color PartyHz times a second.
func (e *Engine) partyMode(index int, t float64) dmx.Color {
	k := math.Floor(t * e.p.PartyHz)
	fi := float64(index)
	return dmx.Color{
		R: clamp255(255 * noise(k, fi*3)),
		G: clamp255(255 * noise(k, fi*3+1)),
		B: clamp255(255 * noise(k, fi*3+2)),
	}
}

// lightning holds a dim blue ambient and flashes all fixtures full white on
// roughly 5% of the flicker intervals.
func (e *Engine) lightning(t float64) dmx.Color {
	k := math.Floor(t * e.p.FlickerHz)
	if noise(k, -1) < 0.05 {
		return dmx.Color{R: 255, G: 255, B: 255, W: 255}
	}
	return dmx.Color{B: 26}
}

// noise is a deterministic hash in [0,1): the same (k, seed) pair always
// yields the same value, so frames inside one flicker interval agree.
func noise(k, seed float64) float64 {
	v := math.Sin(k*12.9898+seed*78.233) * 43758.5453
	return v - math.Floor(v)
}

// scale applies brightness to every channel, the last step of the pipeline.
func scale(c dmx.Color, brightness uint8) dmx.Color {
	b := uint16(brightness)
	return dmx.Color{
		R: uint8(uint16(c.R) * b / 255),
		G: uint8(uint16(c.G) * b / 255),
		B: uint8(uint16(c.B) * b / 255),
		W: uint8(uint16(c.W) * b / 255),
	}
}

func clamp255(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
