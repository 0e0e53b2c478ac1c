package clientmqtt

// MQTTConf configures the broker connection and the topic namespace.
type MQTTConf struct {
	ClientID string // ClientID - unique client name for the broker.
	Schema   string // Schema - connection type (tcp/ssl/ws).
	Host     string // Host - MQTT server address.
	Port     string // Port - MQTT server port.
	User     string // User - MQTT server login.
	Password string // Password - MQTT server password.
	Prefix   string // Prefix - topic prefix, e.g. "mqtt2dmx".
	Qos      byte   // Qos - quality of service.
}

// ColorPayload is the JSON body of the <prefix>/color topic.
type ColorPayload struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	W uint8 `json:"w"`
}

// FixturesPayload is the JSON body of the <prefix>/fixtures topic.
type FixturesPayload struct {
	Count  int      `json:"count"`
	Groups []string `json:"groups"`
}

// StatusPayload is published to <prefix>/status on every scheduler event.
type StatusPayload struct {
	Connected bool   `json:"connected"`
	Running   bool   `json:"running"`
	Mode      string `json:"mode"`
	Error     string `json:"error,omitempty"`
	Fatal     bool   `json:"fatal,omitempty"`
}
