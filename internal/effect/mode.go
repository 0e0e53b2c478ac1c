package effect

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedMode reports a mode identifier the engine has no case for.
var ErrUnsupportedMode = errors.New("unsupported mode")

// Mode selects one of the built-in effects. The set is closed; adding a
// mode means adding a case to the engine and a name below, nothing else.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeManualColor
	ModeColorChase
	ModeRainbowFade
	ModeFireEffect
	ModeStrobe
	ModeWhiteLight
	ModeDanceMode
	ModeOceanWave
	ModePartyMode
	ModeLightning
)

var modeNames = map[Mode]string{
	ModeOff:         "off",
	ModeManualColor: "manual",
	ModeColorChase:  "chase",
	ModeRainbowFade: "rainbow",
	ModeFireEffect:  "fire",
	ModeStrobe:      "strobe",
	ModeWhiteLight:  "white",
	ModeDanceMode:   "dance",
	ModeOceanWave:   "ocean",
	ModePartyMode:   "party",
	ModeLightning:   "lightning",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode converts the configuration/wire spelling of a mode to a Mode.
func ParseMode(s string) (Mode, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == want {
			return m, nil
		}
	}
	return ModeOff, fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
}
