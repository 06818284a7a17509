package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/device_store/internal/mykafka"
	"github.com/Skotchmaster/device_store/pkg/logging"
)

const publishTimeout = 5 * time.Second

// publish is best effort: a failed event never fails the request.
func publish(ctx context.Context, p mykafka.Publisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", event["type"], "error", err)
	}
}
