package core

import (
	"context"
	"sync"

	"github.com/ZakFarmer/rooklift-ws-service/internal/bus"
)

// recordingSender collects every payload pushed to it.
type recordingSender struct {
	mu       sync.Mutex
	payloads []string
	reject   bool
}

func (s *recordingSender) Send(payload string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return false
	}
	s.payloads = append(s.payloads, payload)
	return true
}

func (s *recordingSender) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.payloads...)
}

// recordingPublisher captures mirrored messages and can be told to fail.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []bus.Message
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, msg bus.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []bus.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bus.Message(nil), p.messages...)
}

func ptr[T any](v T) *T { return &v }
