package config

import (
	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration.
type Config struct {
	Logger    LogConf       // Logger - logger configuration.
	Output    OutputConf    // Output - DMX output transport configuration.
	MQTT      MQTTConf      // MQTT - MQTT control surface configuration.
	Fixtures  FixturesConf  // Fixtures - fixture patch.
	Animation AnimationConf // Animation - animation defaults and tunables.
}

// LogConf configures the logger.
type LogConf struct {
	Level string `toml:"log-level"` // Level - logging level.
}

// OutputConf selects and configures the DMX output transport.
type OutputConf struct {
	Transport  string `toml:"transport"`   // Transport - "serial" or "artnet".
	Port       string `toml:"port"`        // Port - serial device, e.g. /dev/ttyUSB0.
	Universe   uint16 `toml:"universe"`    // Universe - Art-Net universe address.
	ArtNetCIDR string `toml:"artnet-cidr"` // ArtNetCIDR - network carrying Art-Net traffic.
}

// MQTTConf configures the MQTT client.
type MQTTConf struct {
	Enabled  bool   `toml:"enabled"`  // Enabled - start the MQTT control surface.
	ClientID string `toml:"clientID"` // ClientID - client name.
	Host     string `toml:"server"`   // Host - MQTT server address.
	Port     string `toml:"port"`     // Port - MQTT server port.
	User     string `toml:"user"`     // User - MQTT server login.
	Password string `toml:"password"` // Password - MQTT server password.
	Prefix   string `toml:"prefix"`   // Prefix - topic prefix for control and status topics.
	Qos      byte   `toml:"qos"`      // Qos - quality of service.
}

// FixturesConf is the fixture patch. Groups lists the channel group
// per fixture ("A"/"B"); when shorter than Count the last entry repeats.
type FixturesConf struct {
	Count  int      `toml:"count"`
	Groups []string `toml:"groups"`
}

// AnimationConf holds animation defaults. Zero values fall back to the
// engine/scheduler defaults.
type AnimationConf struct {
	Mode         string  `toml:"mode"`
	Brightness   int     `toml:"brightness"`
	PeriodMS     int     `toml:"period-ms"`
	MaxFailures  int     `toml:"max-failures"`
	ChaseStep    float64 `toml:"chase-step-seconds"`
	RainbowSpeed float64 `toml:"rainbow-speed"`
	StrobeHz     float64 `toml:"strobe-hz"`
	FlickerHz    float64 `toml:"flicker-hz"`
	PartyHz      float64 `toml:"party-hz"`
	DanceRate    float64 `toml:"dance-rate"`
	OceanRate    float64 `toml:"ocean-rate"`
}

// NewConfig reads the configuration file at path.
func NewConfig(path string) (*Config, error) {
	// default values
	cfg := Config{
		Logger: LogConf{Level: "info"},
		Output: OutputConf{Transport: "serial", ArtNetCIDR: "192.168.6.0/24"},
		MQTT:   MQTTConf{ClientID: "mqtt2dmx", Prefix: "mqtt2dmx"},
		Fixtures: FixturesConf{
			Count:  3,
			Groups: []string{"B"},
		},
		Animation: AnimationConf{
			Mode:       "off",
			Brightness: 128,
		},
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}
