package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mqtt2dmx/internal/clientmqtt"
	"mqtt2dmx/internal/config"
	"mqtt2dmx/internal/dmx"
	"mqtt2dmx/internal/effect"
	"mqtt2dmx/internal/fixture"
	"mqtt2dmx/internal/logger"
	"mqtt2dmx/internal/scheduler"
)

var (
	configFile string
	listPorts  bool
)

func init() {
	flag.StringVar(&configFile, "config", "configs/conf.toml", "Path to configuration file")
	flag.BoolVar(&listPorts, "list-ports", false, "List available serial ports and exit")
}

func main() {
	flag.Parse()

	if listPorts {
		ports, err := dmx.ListPorts()
		if err != nil {
			fmt.Printf("failed to list serial ports: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := config.NewConfig(configFile)
	if err != nil {
		fmt.Printf("configuration file read error: %v", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Printf("failed to create a logger: %v", err)
		os.Exit(1)
	}

	reg, err := buildRegistry(cfg.Fixtures)
	if err != nil {
		log.With(logger.Fields{"module": "fixture"}).Errorf("invalid fixture patch: %v", err)
		os.Exit(1)
	}

	mode, err := effect.ParseMode(cfg.Animation.Mode)
	if err != nil {
		log.With(logger.Fields{"module": "effect"}).Errorf("invalid startup mode: %v", err)
		os.Exit(1)
	}

	engine := effect.NewEngine(effect.Params{
		ChaseStepSeconds: cfg.Animation.ChaseStep,
		RainbowSpeed:     cfg.Animation.RainbowSpeed,
		StrobeHz:         cfg.Animation.StrobeHz,
		FlickerHz:        cfg.Animation.FlickerHz,
		PartyHz:          cfg.Animation.PartyHz,
		DanceRate:        cfg.Animation.DanceRate,
		OceanRate:        cfg.Animation.OceanRate,
	})

	state := scheduler.NewState(scheduler.Snapshot{
		Mode:       mode,
		Brightness: clampByte(cfg.Animation.Brightness),
		Registry:   reg,
	})

	sender, disconnect, err := buildSender(log, cfg.Output)
	if err != nil {
		log.With(logger.Fields{"module": "dmx"}).Errorf("failed to open DMX output: %v", err)
		os.Exit(1)
	}

	sched := scheduler.New(log, engine, sender, state, scheduler.Options{
		Period:      periodFromConfig(cfg.Animation.PeriodMS),
		MaxFailures: cfg.Animation.MaxFailures,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	var client *clientmqtt.ClientMQTT
	if cfg.MQTT.Enabled {
		client = clientmqtt.NewClient(log, convertConfigClientMQTT(cfg.MQTT), state, sched)
		if err := client.Start(ctx); err != nil {
			log.Error("failed to start MQTT service:", err.Error())
			cancel()
		}
	}

	if err := sched.Start(); err != nil {
		log.Error("failed to start animation scheduler:", err.Error())
		cancel()
	}

	<-ctx.Done()

	if err := sched.Stop(); err != nil {
		log.Error("failed to stop animation scheduler:", err.Error())
	}

	// Leave the rig dark instead of frozen on the last frame.
	if err := sender.SendFrame(dmx.NewFrame()); err != nil {
		log.With(logger.Fields{"module": "dmx"}).Debugf("blackout frame not sent: %v", err)
	}

	if client != nil {
		if err := client.Stop(); err != nil {
			log.Error("failed to stop MQTT service:", err.Error())
		}
	}

	if err := disconnect(); err != nil {
		log.Error("failed to release DMX output:", err.Error())
	}

	log.Info("shutdown complete")
}

// buildRegistry converts the fixture patch section.
func buildRegistry(cfg config.FixturesConf) (*fixture.Registry, error) {
	groups := make([]fixture.Group, 0, len(cfg.Groups))
	for _, s := range cfg.Groups {
		g, err := fixture.ParseGroup(s)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return fixture.New(cfg.Count, groups)
}

// buildSender opens the configured output transport and returns it together
// with its release function.
func buildSender(log logger.Logger, cfg config.OutputConf) (dmx.FrameSender, func() error, error) {
	switch cfg.Transport {
	case "artnet":
		s, err := dmx.NewArtNetSender(log, cfg.Universe, cfg.ArtNetCIDR)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Connect(); err != nil {
			return nil, nil, err
		}
		return s, s.Disconnect, nil
	case "serial", "":
		t := dmx.NewTransmitter(log)
		if err := t.Connect(cfg.Port); err != nil {
			return nil, nil, err
		}
		return t, t.Disconnect, nil
	}
	return nil, nil, fmt.Errorf("unknown output transport %q", cfg.Transport)
}

// convertConfigClientMQTT converts the config section into the client's own type.
func convertConfigClientMQTT(cfg config.MQTTConf) clientmqtt.MQTTConf {
	return clientmqtt.MQTTConf{
		ClientID: cfg.ClientID,
		Schema:   "tcp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Prefix:   cfg.Prefix,
		Qos:      cfg.Qos,
	}
}

// periodFromConfig converts the configured tick period; zero falls back to
// the scheduler default.
func periodFromConfig(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
