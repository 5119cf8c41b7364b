package events

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// Distributor fans conversation updates out to the watermill publishers
// attached to each topic it serves: snapshots after every processed event on
// SnapshotTopic, user-visible notifications on NotificationTopic. Outgoing
// messages carry a per-topic sequence number so a subscriber can tell when
// it missed or reordered an update.
type Distributor struct {
	mu        sync.Mutex
	attached  map[string][]message.Publisher
	sequences map[string]uint64
}

func NewDistributor() *Distributor {
	return &Distributor{
		attached:  make(map[string][]message.Publisher),
		sequences: make(map[string]uint64),
	}
}

// Attach registers a publisher for one topic. The same publisher may back
// several topics.
func (d *Distributor) Attach(topic string, pub message.Publisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attached[topic] = append(d.attached[topic], pub)
}

// Send serializes the payload to JSON, stamps it with the topic's next
// sequence number, and hands it to every publisher attached to the topic.
func (d *Distributor) Send(topic string, payload interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set("sequence_number", strconv.FormatUint(d.sequences[topic], 10))
	d.sequences[topic]++

	for _, pub := range d.attached[topic] {
		if err := pub.Publish(topic, msg); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("failed to publish")
		}
	}

	return nil
}

// PublishSnapshot distributes one conversation snapshot. It sits on the hot
// event path, so distribution problems are logged rather than returned.
func (d *Distributor) PublishSnapshot(payload interface{}) {
	if err := d.Send(SnapshotTopic, payload); err != nil {
		log.Warn().Err(err).Msg("failed to publish snapshot")
	}
}

// PublishNotification distributes one user-visible notification.
func (d *Distributor) PublishNotification(payload interface{}) {
	if err := d.Send(NotificationTopic, payload); err != nil {
		log.Warn().Err(err).Msg("failed to publish notification")
	}
}
