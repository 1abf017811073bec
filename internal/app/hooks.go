package app

import (
	"context"

	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"
)

// HookRegistry holds inbound collaborators in registration order. Register
// everything before the processor starts serving.
type HookRegistry struct {
	contributors []ports.ReplyContributor
	voters       []ports.RecordVoter
	processors   []ports.IncomingProcessor
}

// NewHookRegistry returns an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{}
}

// Register adds hook under every capability it implements and reports
// whether it implemented any.
func (r *HookRegistry) Register(hook any) bool {
	matched := false
	if c, ok := hook.(ports.ReplyContributor); ok {
		r.contributors = append(r.contributors, c)
		matched = true
	}
	if v, ok := hook.(ports.RecordVoter); ok {
		r.voters = append(r.voters, v)
		matched = true
	}
	if p, ok := hook.(ports.IncomingProcessor); ok {
		r.processors = append(r.processors, p)
		matched = true
	}
	return matched
}

// ReplyLines concatenates every contributor's lines.
func (r *HookRegistry) ReplyLines(ctx context.Context, payload ports.Payload) []string {
	var lines []string
	for _, c := range r.contributors {
		lines = append(lines, c.ReplyLines(ctx, payload)...)
	}
	return lines
}

// ShouldRecord returns the vote of the last registered voter, or true when
// there are none. Earlier votes are overwritten, not combined.
func (r *HookRegistry) ShouldRecord(ctx context.Context, payload ports.Payload) bool {
	record := true
	for _, v := range r.voters {
		record = v.ShouldRecord(ctx, payload)
	}
	return record
}

// OnIncoming notifies every processor.
func (r *HookRegistry) OnIncoming(ctx context.Context, msg domain.IncomingMessage) {
	for _, p := range r.processors {
		p.OnIncoming(ctx, msg)
	}
}

// ReplyFunc adapts a function to ports.ReplyContributor.
type ReplyFunc func(ctx context.Context, payload ports.Payload) []string

func (f ReplyFunc) ReplyLines(ctx context.Context, payload ports.Payload) []string {
	return f(ctx, payload)
}

// RecordFunc adapts a function to ports.RecordVoter.
type RecordFunc func(ctx context.Context, payload ports.Payload) bool

func (f RecordFunc) ShouldRecord(ctx context.Context, payload ports.Payload) bool {
	return f(ctx, payload)
}

// IncomingFunc adapts a function to ports.IncomingProcessor.
type IncomingFunc func(ctx context.Context, msg domain.IncomingMessage)

func (f IncomingFunc) OnIncoming(ctx context.Context, msg domain.IncomingMessage) {
	f(ctx, msg)
}
