package progress

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"mirp/pkg/report"
)

// Publisher is the part of an MQTT client the observer needs
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
}

// MQTTOptions configures the broker connection of an MQTTObserver
type MQTTOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Event is the JSON payload published for each progress event
type Event struct {
	Pass      string         `json:"pass,omitempty"`
	Kind      string         `json:"event"`
	Done      int            `json:"done,omitempty"`
	Total     int            `json:"total,omitempty"`
	Message   string         `json:"message,omitempty"`
	Summary   map[string]any `json:"summary,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// MQTTObserver publishes progress events as JSON to
// <prefix>/<pass>/progress, fire and forget. Publish failures are logged
// and never interrupt a pass.
type MQTTObserver struct {
	client  Publisher
	prefix  string
	qos     byte
	retain  bool
	timeout time.Duration
}

// NewMQTTObserver wraps a connected client
func NewMQTTObserver(client Publisher, prefix string) *MQTTObserver {
	if prefix == "" {
		prefix = "mirp"
	}
	return &MQTTObserver{
		client:  client,
		prefix:  prefix,
		qos:     0,
		retain:  false,
		timeout: 2 * time.Second,
	}
}

// DialMQTT connects to the broker and returns an observer publishing to it,
// along with the client so the caller can disconnect when done
func DialMQTT(opts MQTTOptions) (*MQTTObserver, mqtt.Client, error) {
	if opts.Broker == "" {
		return nil, nil, fmt.Errorf("mqtt: no broker configured")
	}
	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	clientID := opts.ClientID
	if clientID == "" {
		clientID = "mirp"
	}
	co.SetClientID(clientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	co.SetAutoReconnect(true)
	co.SetKeepAlive(60 * time.Second)
	co.SetPingTimeout(10 * time.Second)
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	})

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, nil, fmt.Errorf("mqtt: connecting to %s timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt: connecting to %s: %w", opts.Broker, err)
	}
	return NewMQTTObserver(client, opts.TopicPrefix), client, nil
}

func (o *MQTTObserver) topic(pass string) string {
	if pass == "" {
		return fmt.Sprintf("%s/messages", o.prefix)
	}
	return fmt.Sprintf("%s/%s/progress", o.prefix, pass)
}

func (o *MQTTObserver) publish(ev Event) {
	if o.client == nil || !o.client.IsConnected() {
		return
	}
	ev.Timestamp = time.Now().Unix()
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", ev.Kind, err)
		return
	}
	topic := o.topic(ev.Pass)
	token := o.client.Publish(topic, o.qos, o.retain, payload)
	if token.WaitTimeout(o.timeout) && token.Error() != nil {
		log.Printf("Error publishing to %s: %v", topic, token.Error())
	}
}

func (o *MQTTObserver) PassStarted(pass string, filaments int) {
	o.publish(Event{Pass: pass, Kind: "started", Total: filaments})
}

func (o *MQTTObserver) FilamentDone(pass string, done, total int) {
	o.publish(Event{Pass: pass, Kind: "filament", Done: done, Total: total})
}

func (o *MQTTObserver) Message(text string) {
	o.publish(Event{Kind: "message", Message: text})
}

func (o *MQTTObserver) PassFinished(summary report.Summary) {
	o.publish(Event{Pass: summary.Pass, Kind: "finished", Summary: summary.Fields()})
}
