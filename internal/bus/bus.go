// Package bus provides event bus implementations for Tally.
package bus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opensource-finance/tally/internal/domain"
)

var (
	ErrClosed            = errors.New("bus is closed")
	ErrNamespaceRequired = errors.New("namespace is required")
	ErrWildcardPublish   = errors.New("cannot publish to every namespace")
)

func checkPublishNamespace(namespace string) error {
	switch namespace {
	case "":
		return ErrNamespaceRequired
	case domain.AllNamespaces:
		return ErrWildcardPublish
	}
	return nil
}

// New creates a new event bus based on configuration.
// Community tier gets a ChannelBus, Pro tier a NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// subject maps a namespaced topic onto a NATS subject, e.g.
// tally.public.estimate.computed. AllNamespaces becomes the single token
// wildcard, tally.*.estimate.computed.
func subject(namespace, topic string) string {
	return "tally." + namespace + "." + strings.TrimPrefix(topic, "tally.")
}
