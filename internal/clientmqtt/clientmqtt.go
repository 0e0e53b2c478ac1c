package clientmqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"mqtt2dmx/internal/dmx"
	"mqtt2dmx/internal/effect"
	"mqtt2dmx/internal/fixture"
	"mqtt2dmx/internal/logger"
	"mqtt2dmx/internal/scheduler"
)

// ClientMQTT is the control/status bridge: it applies retained control
// topics to the shared animation state and republishes scheduler status.
type ClientMQTT struct {
	ctx       context.Context
	log       logger.Logger
	cfgClient MQTTConf
	client    mqtt.Client
	opts      *mqtt.ClientOptions
	state     *scheduler.State
	sched     *scheduler.Scheduler
}

// MQTTClient is a convenience interface to use within this application.
type MQTTClient interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewClient wires the bridge to the shared state and the scheduler's
// status surface.
func NewClient(log logger.Logger, cfgClient MQTTConf, state *scheduler.State, sched *scheduler.Scheduler) *ClientMQTT {
	return &ClientMQTT{
		log:       log,
		cfgClient: cfgClient,
		state:     state,
		sched:     sched,
	}
}

func (c *ClientMQTT) Start(ctx context.Context) error {
	if c.log.GetLevel() == "debug" {
		mqtt.ERROR = log.New(os.Stdout, "[ERROR] ", 0)
		mqtt.CRITICAL = log.New(os.Stdout, "[CRIT] ", 0)
		mqtt.WARN = log.New(os.Stdout, "[WARN]  ", 0)
	}

	c.ctx = ctx

	c.opts = mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%s", c.cfgClient.Schema, c.cfgClient.Host, c.cfgClient.Port)).
		SetUsername(c.cfgClient.User).
		SetPassword(c.cfgClient.Password).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetClientID(c.cfgClient.ClientID).
		SetOrderMatters(false).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	c.client = mqtt.NewClient(c.opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-c.ctx.Done():
		return errors.New("context canceled")
	}

	go c.publishStatus()

	c.log.With(logger.Fields{"module": "mqtt"}).Infof("status: %v", c.client.IsConnected())
	return nil
}

func (c *ClientMQTT) Stop() error {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(500)
	}
	return nil
}

// connectHandler subscribes the control topics; running it on every
// (re)connect restores the subscriptions after a broker outage.
func (c *ClientMQTT) connectHandler(_ mqtt.Client) {
	c.log.With(logger.Fields{"module": "mqtt"}).Info("client connected to server")
	c.sub(c.topic("mode"), c.handleMode)
	c.sub(c.topic("brightness"), c.handleBrightness)
	c.sub(c.topic("color"), c.handleColor)
	c.sub(c.topic("fixtures"), c.handleFixtures)
}

func (c *ClientMQTT) connectLostHandler(_ mqtt.Client, err error) {
	c.log.With(logger.Fields{"module": "mqtt"}).Errorf("server connect lost: %v\n", err)
}

func (c *ClientMQTT) topic(name string) string {
	return c.cfgClient.Prefix + "/" + name
}

func (c *ClientMQTT) sub(topic string, handler mqtt.MessageHandler) {
	token := c.client.Subscribe(topic, c.cfgClient.Qos, handler)
	go func() {
		topic := topic
		token := token
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.log.With(logger.Fields{"module": "mqtt"}).Errorf("topic %s subscription error. %v\n", topic, token.Error())
				return
			}
		}
		c.log.With(logger.Fields{"module": "mqtt"}).Debugf("topic %s subscribed\n", topic)
	}()
}

// handleMode applies a mode name ("off", "chase", "rainbow", …) on the
// next tick. Unknown names are logged and dropped.
func (c *ClientMQTT) handleMode(_ mqtt.Client, msg mqtt.Message) {
	name := strings.TrimSpace(string(msg.Payload()))
	mode, err := effect.ParseMode(name)
	if err != nil {
		c.log.With(logger.Fields{"module": "mqtt"}).Errorf("mode message rejected: %v", err)
		return
	}
	c.state.SetMode(mode)
	c.log.With(logger.Fields{"module": "mqtt"}).Infof("mode set to %s", mode)
}

func (c *ClientMQTT) handleBrightness(_ mqtt.Client, msg mqtt.Message) {
	v, err := strconv.Atoi(strings.TrimSpace(string(msg.Payload())))
	if err != nil {
		c.log.With(logger.Fields{"module": "mqtt"}).Errorf("brightness message could not be parsed (%s): %v", msg.Payload(), err)
		return
	}
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	c.state.SetBrightness(uint8(v))
	c.log.With(logger.Fields{"module": "mqtt"}).Debugf("brightness set to %d", v)
}

func (c *ClientMQTT) handleColor(_ mqtt.Client, msg mqtt.Message) {
	var data ColorPayload
	if err := json.Unmarshal(msg.Payload(), &data); err != nil {
		c.log.With(logger.Fields{"module": "mqtt"}).Errorf("color message could not be parsed (%s): %v", msg.Payload(), err)
		return
	}
	c.state.SetManual(dmx.Color{R: data.R, G: data.G, B: data.B, W: data.W})
	c.log.With(logger.Fields{"module": "mqtt"}).Debugf("manual color set to %+v", data)
}

// handleFixtures rebuilds the fixture registry; the swap is atomic with
// respect to a tick, so a tick never writes with a stale offset table.
func (c *ClientMQTT) handleFixtures(_ mqtt.Client, msg mqtt.Message) {
	var data FixturesPayload
	if err := json.Unmarshal(msg.Payload(), &data); err != nil {
		c.log.With(logger.Fields{"module": "mqtt"}).Errorf("fixtures message could not be parsed (%s): %v", msg.Payload(), err)
		return
	}

	groups := make([]fixture.Group, 0, len(data.Groups))
	for _, s := range data.Groups {
		g, err := fixture.ParseGroup(s)
		if err != nil {
			c.log.With(logger.Fields{"module": "mqtt"}).Errorf("fixtures message rejected: %v", err)
			return
		}
		groups = append(groups, g)
	}

	reg, err := fixture.New(data.Count, groups)
	if err != nil {
		c.log.With(logger.Fields{"module": "mqtt"}).Errorf("fixtures message rejected: %v", err)
		return
	}
	c.state.SetRegistry(reg)
	c.log.With(logger.Fields{"module": "mqtt"}).Infof("fixture patch replaced: %d fixtures", data.Count)
}

// publishStatus republishes scheduler status events to <prefix>/status
// until the context ends. The message is retained so a UI that connects
// later sees the last known state.
func (c *ClientMQTT) publishStatus() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case st := <-c.sched.Status():
			payload := StatusPayload{
				Connected: st.Connected,
				Running:   st.Running,
				Mode:      st.Mode.String(),
				Fatal:     st.Fatal,
			}
			if st.Err != nil {
				payload.Error = st.Err.Error()
			}
			msg, err := json.Marshal(payload)
			if err != nil {
				c.log.With(logger.Fields{"module": "mqtt"}).Errorf("status payload: %v", err)
				continue
			}
			c.client.Publish(c.topic("status"), c.cfgClient.Qos, true, msg)
		}
	}
}
