package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
)

const (
	// TopicSession is the topic session events are published on by default.
	TopicSession = "session"

	MetadataSequenceNumber = "sequence_number"
	MetadataEventType      = "event_type"
)

// PublisherManager distributes events to a set of publishers, each registered
// for a topic. It stamps every outgoing message with a sequence number in the
// order Publish is called.
type PublisherManager struct {
	Publishers     map[string][]message.Publisher
	sequenceNumber uint64
	mutex          sync.Mutex
}

func NewPublisherManager() *PublisherManager {
	return &PublisherManager{
		Publishers: make(map[string][]message.Publisher),
	}
}

func (s *PublisherManager) RegisterPublisher(topic string, pub message.Publisher) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Publishers[topic] = append(s.Publishers[topic], pub)
}

// Publish serializes e to JSON and sends it to every registered publisher.
// Individual publisher failures are logged, not returned.
func (s *PublisherManager) Publish(e *Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set(MetadataSequenceNumber, fmt.Sprintf("%d", s.sequenceNumber))
	msg.Metadata.Set(MetadataEventType, string(e.Type))
	s.sequenceNumber++

	for topic, pubs := range s.Publishers {
		for _, pub := range pubs {
			// each publisher gets its own copy, acks are per subscriber
			if err := pub.Publish(topic, msg.Copy()); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("failed to publish")
			}
		}
	}

	return nil
}

func (s *PublisherManager) PublishBlind(e *Event) {
	if err := s.Publish(e); err != nil {
		log.Warn().Err(err).Msg("failed to publish")
	}
}

// NewGoChannel creates an in-memory pub/sub that delivers messages in
// publishing order.
func NewGoChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NopLogger{})
}
