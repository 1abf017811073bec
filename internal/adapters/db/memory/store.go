// Package memory is an in-process ports.MessageRepository for local runs and
// tests. It is safe for concurrent use.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"

	"github.com/google/uuid"
)

// Store keeps every record in maps guarded by one mutex.
type Store struct {
	mu       sync.Mutex
	cipher   ports.SenderCipher
	blocked  map[string]time.Time
	incoming map[uuid.UUID]domain.IncomingMessage
	media    map[uuid.UUID]domain.IncomingMessageMedia
	outgoing map[uuid.UUID]domain.OutgoingMessage
	events   map[string]domain.SyncEvent
}

// New returns an empty Store sealing senders with cipher.
func New(cipher ports.SenderCipher) *Store {
	return &Store{
		cipher:   cipher,
		blocked:  make(map[string]time.Time),
		incoming: make(map[uuid.UUID]domain.IncomingMessage),
		media:    make(map[uuid.UUID]domain.IncomingMessageMedia),
		outgoing: make(map[uuid.UUID]domain.OutgoingMessage),
		events:   make(map[string]domain.SyncEvent),
	}
}

func (s *Store) IsSenderBlocked(_ context.Context, sender string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blocked[sender]
	return ok, nil
}

func (s *Store) BlockSender(_ context.Context, sender string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocked[sender]; !ok {
		s.blocked[sender] = time.Now().UTC()
	}
	return nil
}

func (s *Store) CreateIncomingMessage(_ context.Context, msg domain.IncomingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incoming[msg.ID]; ok {
		return fmt.Errorf("incoming message %s already exists", msg.ID)
	}
	s.incoming[msg.ID] = msg
	return nil
}

func (s *Store) EncryptSender(_ context.Context, id uuid.UUID) (string, error) {
	if s.cipher == nil {
		return "", errors.New("no sender cipher configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.incoming[id]
	if !ok {
		return "", domain.ErrMessageNotFound
	}
	sealed, err := s.cipher.Seal(msg.Sender)
	if err != nil {
		return "", fmt.Errorf("seal sender: %w", err)
	}
	msg.Sender = sealed
	s.incoming[id] = msg
	return sealed, nil
}

func (s *Store) CreateIncomingMedia(_ context.Context, media domain.IncomingMessageMedia) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incoming[media.MessageID]; !ok {
		return domain.ErrMessageNotFound
	}
	s.media[media.ID] = media
	return nil
}

func (s *Store) AttachMediaFile(_ context.Context, mediaID uuid.UUID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.media[mediaID]
	if !ok {
		return domain.ErrMediaNotFound
	}
	m.ContentFile = path
	s.media[mediaID] = m
	return nil
}

func (s *Store) SaveOutgoingMessage(_ context.Context, msg domain.OutgoingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outgoing[msg.ID] = msg
	return nil
}

func (s *Store) GetOutgoingMessage(_ context.Context, id uuid.UUID) (*domain.OutgoingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.outgoing[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	return &msg, nil
}

func (s *Store) ClaimPendingMessages(_ context.Context, limit int) ([]domain.OutgoingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []domain.OutgoingMessage
	for _, m := range s.outgoing {
		if m.Status == domain.StatusPending {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}

	now := time.Now().UTC()
	for i := range pending {
		pending[i].Status = domain.StatusQueued
		pending[i].UpdatedAt = now
		s.outgoing[pending[i].ID] = pending[i]
	}
	return pending, nil
}

func (s *Store) TransitionStatus(_ context.Context, id uuid.UUID, from, to domain.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.outgoing[id]
	if !ok {
		return false, domain.ErrMessageNotFound
	}
	if msg.Status != from {
		return false, nil
	}
	msg.Status = to
	msg.UpdatedAt = time.Now().UTC()
	s.outgoing[id] = msg
	return true, nil
}

func (s *Store) UpdateMessageStatus(_ context.Context, id uuid.UUID, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.outgoing[id]
	if !ok {
		return domain.ErrMessageNotFound
	}
	msg.Status = status
	msg.UpdatedAt = time.Now().UTC()
	s.outgoing[id] = msg
	return nil
}

func (s *Store) AppendTransmissionMetadata(_ context.Context, id uuid.UUID, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.outgoing[id]
	if !ok {
		return domain.ErrMessageNotFound
	}
	meta := msg.ParsedMetadata()
	for k, v := range values {
		meta[k] = v
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	msg.TransmissionMetadata = string(raw)
	s.outgoing[id] = msg
	return nil
}

func (s *Store) UpsertSyncEvents(_ context.Context, events []domain.SyncEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, ev := range events {
		if _, ok := s.events[ev.TwilioSID]; ok {
			continue
		}
		s.events[ev.TwilioSID] = ev
		added++
	}
	return added, nil
}

// IncomingMessages returns a snapshot of stored incoming messages.
func (s *Store) IncomingMessages() []domain.IncomingMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.IncomingMessage, 0, len(s.incoming))
	for _, m := range s.incoming {
		out = append(out, m)
	}
	return out
}

// MediaFor returns the media rows of one incoming message ordered by index.
func (s *Store) MediaFor(messageID uuid.UUID) []domain.IncomingMessageMedia {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.IncomingMessageMedia
	for _, m := range s.media {
		if m.MessageID == messageID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
