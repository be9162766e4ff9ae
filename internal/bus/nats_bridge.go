package bus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Bridge relays notifications between the local bus and a NATS subject tree
// so surfaces in other processes converge too. Only notifications that
// originated on the local bus are forwarded, which prevents echo loops.
type Bridge struct {
	bus    *Bus
	nc     *nats.Conn
	prefix string
	logger *zap.Logger

	unsubscribeLocal func()
	sub              *nats.Subscription
}

// NewBridge creates a bridge; call Start to begin relaying.
func NewBridge(b *Bus, nc *nats.Conn, prefix string, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{bus: b, nc: nc, prefix: strings.TrimSuffix(prefix, "."), logger: logger}
}

// Subject returns the NATS subject used for topic.
func (br *Bridge) Subject(topic Topic) string {
	return br.prefix + "." + string(topic)
}

// Start subscribes on both sides.
func (br *Bridge) Start() error {
	sub, err := br.nc.Subscribe(br.prefix+".>", br.onRemote)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s.>: %w", br.prefix, err)
	}
	br.sub = sub
	br.unsubscribeLocal = br.bus.SubscribeAll(br.onLocal)
	return nil
}

// Stop detaches the bridge from both sides.
func (br *Bridge) Stop() {
	if br.unsubscribeLocal != nil {
		br.unsubscribeLocal()
	}
	if br.sub != nil {
		if err := br.sub.Unsubscribe(); err != nil {
			br.logger.Warn("failed to unsubscribe from nats", zap.Error(err))
		}
	}
}

func (br *Bridge) onLocal(n Notification) {
	if n.Origin != br.bus.ID() {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		br.logger.Error("failed to encode notification", zap.Error(err))
		return
	}
	if err := br.nc.Publish(br.Subject(n.Topic), data); err != nil {
		br.logger.Warn("failed to relay notification to nats",
			zap.String("topic", string(n.Topic)), zap.Error(err))
	}
}

func (br *Bridge) onRemote(msg *nats.Msg) {
	var n Notification
	if err := json.Unmarshal(msg.Data, &n); err != nil {
		br.logger.Warn("dropping malformed notification", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}
	if n.Origin == br.bus.ID() {
		return
	}
	br.bus.Publish(n.Topic, n)
}
