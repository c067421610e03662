package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// publisher and publishResult narrow the Pub/Sub client so tests can stub
// delivery without a broker.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

func gcpPublisherFactory(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return gcpPublisher{p}
	}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	res := g.p.Publish(ctx, msg)
	if res == nil {
		return nil
	}
	return gcpResult{r: res, p: g.p, key: msg.OrderingKey}
}

// gcpResult resumes the ordering key after a failed publish. Pub/Sub pauses a
// key on error and would otherwise reject every later message for the
// aggregate.
type gcpResult struct {
	r   *gcppubsub.PublishResult
	p   *gcppubsub.Publisher
	key string
}

func (g gcpResult) Get(ctx context.Context) (string, error) {
	if g.r == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := g.r.Get(ctx)
	if err != nil && g.key != "" {
		g.p.ResumePublish(g.key)
	}
	return id, err
}
