package transport

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/heliosgnss/gnssd/lexer"
)

// rawFrameMessage is the wire shape published for every frame the lexer
// yields, mirroring session.Config.OnRawFrame's (wireType, payload)
// shape as JSON for an off-process subscriber.
type rawFrameMessage struct {
	WireType string `json:"wire_type"`
	Payload  []byte `json:"payload"` // base64-encoded by encoding/json
}

// MQTTRawFrameFeed publishes every frame the lexer produces to an MQTT
// topic, an out-of-core raw_frame tap wired to a concrete transport.
// Uses a publish/subscribe idiom (paho.mqtt client options, QoS 0,
// token.Wait()).
type MQTTRawFrameFeed struct {
	client mqtt.Client
	topic  string
}

// NewMQTTRawFrameFeed connects to broker (e.g. "tcp://localhost:1883")
// with the given client ID and returns a feed ready to publish on topic.
func NewMQTTRawFrameFeed(broker, clientID, topic string) (*MQTTRawFrameFeed, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("transport: mqtt connect: %w", token.Error())
	}
	return &MQTTRawFrameFeed{client: client, topic: topic}, nil
}

// OnRawFrame matches session.Config.OnRawFrame's signature exactly, so a
// *MQTTRawFrameFeed can be assigned straight into a session's Config.
func (f *MQTTRawFrameFeed) OnRawFrame(wireType lexer.WireType, payload []byte) {
	body, err := json.Marshal(rawFrameMessage{
		WireType: wireType.String(),
		Payload:  payload,
	})
	if err != nil {
		return
	}
	f.client.Publish(f.topic, 0, false, body)
}

// Close disconnects from the broker, waiting up to 250ms for in-flight
// publishes to drain.
func (f *MQTTRawFrameFeed) Close() {
	f.client.Disconnect(250)
}
