package mqtt

import (
	"context"
	"errors"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// DefaultPublishTimeout bounds a single publish.
const DefaultPublishTimeout = time.Second

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timeout")

// Publisher is a telemetry sink publishing packets to MQTT.
type Publisher struct {
	Queue   *Queue
	QoS     byte
	Timeout time.Duration

	metaTopic string
	metaLock  sync.Mutex
	meta      []byte
}

// NewPublisher creates a Publisher from a broker URL. The retained
// metaTopic carries the announce packet while connected and is cleared by
// the broker when the connection is lost.
func NewPublisher(brokerURL, clientID, metaTopic string) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID(clientID)
	}
	if metaTopic != "" {
		opts.SetBinaryWill(topicPrefix+metaTopic, nil, 1, true)
	}
	p := &Publisher{Timeout: DefaultPublishTimeout, metaTopic: metaTopic}
	p.Queue = NewQueue(opts, topicPrefix)
	p.Queue.OnConnect = func(*Queue) { p.publishMeta() }
	return p, nil
}

// Name implements framework.Named.
func (p *Publisher) Name() string {
	return "mqtt"
}

// Announce implements telemetry.Announcer.
func (p *Publisher) Announce(packet []byte) error {
	p.metaLock.Lock()
	p.meta = packet
	p.metaLock.Unlock()
	if p.Queue.Client.IsConnected() {
		return p.wait(p.publishMeta())
	}
	return nil
}

func (p *Publisher) publishMeta() paho.Token {
	p.metaLock.Lock()
	meta := p.meta
	p.metaLock.Unlock()
	if p.metaTopic == "" || meta == nil {
		return &paho.DummyToken{}
	}
	return p.Queue.PubWith(p.metaTopic, meta, 1, true)
}

// Publish implements telemetry.Sink.
func (p *Publisher) Publish(topic string, packet []byte) error {
	return p.wait(p.Queue.PubWith(topic, packet, p.QoS, false))
}

func (p *Publisher) wait(token paho.Token) error {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = DefaultPublishTimeout
	}
	if !token.WaitTimeout(timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Run implements Runnable. It keeps the connection until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	token := p.Queue.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			glog.Warningf("mqtt connect: %v", err)
		}
	}()
	<-ctx.Done()
	if p.metaTopic != "" && p.Queue.Client.IsConnected() {
		p.wait(p.Queue.PubWith(p.metaTopic, nil, 1, true))
	}
	return p.Queue.Close()
}
