package stream

import "dcpr.org/internal/dcpr"

// Publisher adapts a Stream to the workflow service's publisher hook.
type Publisher struct {
	stream *Stream
}

func NewPublisher(s *Stream) *Publisher {
	return &Publisher{stream: s}
}

func (p *Publisher) PublishActivity(req *dcpr.Request, act *dcpr.ManagementActivity) {
	if p == nil || p.stream == nil {
		return
	}
	p.stream.Publish(ActivityEvent{
		RequestID:    act.RequestID,
		ActivityID:   act.ID,
		ActivityType: string(act.Type),
		Status:       string(req.Status),
		Actor:        act.Actor,
		Timestamp:    act.OccurredAt,
	})
}
