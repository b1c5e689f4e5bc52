// Package notify publishes batch results to an MQTT broker so that other
// services can follow a run as it progresses
package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nasa-jpl/rawlab/pipeline"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// Config holds the broker settings
type Config struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883
	Broker string `yaml:"broker"`

	// ClientID identifies this client to the broker
	ClientID string `yaml:"clientID"`

	// Topic is the topic prefix; results go to <topic>/<runID>/result and
	// summaries to <topic>/<runID>/summary
	Topic string `yaml:"topic"`

	// QoS is the MQTT quality of service, 0, 1 or 2
	QoS byte `yaml:"qos"`

	// Timeout bounds connecting and each publish
	Timeout time.Duration `yaml:"timeout"`
}

// publisher is the part of mqtt.Client used here
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Reporter publishes each result as JSON.  Publishing failures are logged
// and counted, never returned to the pipeline.
type Reporter struct {
	client  publisher
	closer  func()
	cfg     Config
	log     *log.Logger
	mu      sync.Mutex
	dropped int
}

// Dial connects to the broker and returns a Reporter
func Dial(cfg Config, l *log.Logger) (*Reporter, error) {
	const op = "notify.Dial"
	if cfg.Broker == "" {
		return nil, rawerr.New(rawerr.Config, op, "no MQTT broker configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		l.Printf("mqtt connection to %s lost: %v", cfg.Broker, err)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, rawerr.New(rawerr.IO, op, "timeout connecting to %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, rawerr.Wrap(rawerr.IO, op, err)
	}
	l.Printf("publishing results to %s on %s", cfg.Broker, cfg.Topic)
	r := New(client, cfg, l)
	r.closer = func() { client.Disconnect(250) }
	return r, nil
}

// New returns a Reporter publishing through an existing client
func New(client publisher, cfg Config, l *log.Logger) *Reporter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Topic == "" {
		cfg.Topic = "rawlab"
	}
	return &Reporter{client: client, cfg: cfg, log: l}
}

// Report implements pipeline.Reporter
func (r *Reporter) Report(runID string, res pipeline.Result) {
	r.publish(fmt.Sprintf("%s/%s/result", r.cfg.Topic, runID), res)
}

// Summary is the message published at the end of a run
type Summary struct {
	RunID     string         `json:"runId"`
	Items     int            `json:"items"`
	Succeeded int            `json:"succeeded"`
	Failed    map[string]int `json:"failed"`
	Seconds   float64        `json:"seconds"`
}

// Summarize publishes the totals of a finished run
func (r *Reporter) Summarize(rep pipeline.Report) {
	s := Summary{
		RunID:     rep.RunID,
		Items:     len(rep.Results),
		Succeeded: rep.Succeeded(),
		Failed:    map[string]int{},
		Seconds:   rep.Finished.Sub(rep.Started).Seconds(),
	}
	for k, n := range rep.ByKind() {
		s.Failed[k.String()] = n
	}
	r.publish(fmt.Sprintf("%s/%s/summary", r.cfg.Topic, rep.RunID), s)
}

// Dropped returns the number of messages that could not be published
func (r *Reporter) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close disconnects from the broker if Dial connected
func (r *Reporter) Close() {
	if r.closer != nil {
		r.closer()
	}
}

func (r *Reporter) publish(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.drop(topic, err)
		return
	}
	token := r.client.Publish(topic, r.cfg.QoS, false, payload)
	if !token.WaitTimeout(r.cfg.Timeout) {
		r.drop(topic, fmt.Errorf("publish timeout"))
		return
	}
	if err := token.Error(); err != nil {
		r.drop(topic, err)
	}
}

func (r *Reporter) drop(topic string, err error) {
	r.mu.Lock()
	r.dropped++
	r.mu.Unlock()
	if r.log != nil {
		r.log.Printf("mqtt publish to %s failed: %v", topic, err)
	}
}
