package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

// fakeSender 收集收到的事件，可选地模拟投递失败
type fakeSender struct {
	id   string
	mu   sync.Mutex
	evs  []Event
	fail bool
}

func newFakeSender(id string) *fakeSender { return &fakeSender{id: id} }

func (f *fakeSender) ID() string { return f.id }

func (f *fakeSender) SendEvent(e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("sender down")
	}
	f.evs = append(f.evs, e)
	return nil
}

func (f *fakeSender) events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.evs))
	copy(out, f.evs)
	return out
}

func (f *fakeSender) eventsOf(name string) []Event {
	var out []Event
	for _, e := range f.events() {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// memStore 内存版会话存储，行为对齐 mysql 适配层的契约
type memStore struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*chatmodel.Session

	failAppend  bool
	appendCalls int
	findCalls   int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*chatmodel.Session)}
}

func (s *memStore) CreateSession(_ context.Context, sess *chatmodel.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	sess.ID = fmt.Sprintf("sess-%d", s.seq)
	if sess.Status == "" {
		sess.Status = chatmodel.StatusNew
	}
	if sess.LastActivityAt.IsZero() {
		sess.LastActivityAt = time.Now()
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *memStore) GetSession(_ context.Context, id string) (*chatmodel.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, chatmodel.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *memStore) FindOpenByParticipant(_ context.Context, participantID string) (*chatmodel.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	var best *chatmodel.Session
	for _, sess := range s.sessions {
		if !sess.Open() || !sess.HasParticipant(participantID) {
			continue
		}
		if best == nil || sess.LastActivityAt.After(best.LastActivityAt) {
			best = sess
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *memStore) RecentOpenByParticipant(_ context.Context, participantID string, limit int) ([]*chatmodel.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*chatmodel.Session
	for _, sess := range s.sessions {
		if sess.Open() && sess.HasParticipant(participantID) {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) AppendMessage(_ context.Context, sessionID string, m *chatmodel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	if s.failAppend {
		return errors.New("store down")
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		return chatmodel.ErrSessionNotFound
	}
	if sess.Status == chatmodel.StatusClosed {
		return chatmodel.ErrSessionClosed
	}
	s.seq++
	if m.ID == "" {
		m.ID = fmt.Sprintf("msg-%d", s.seq)
	}
	m.SessionID = sessionID
	sess.Messages = append(sess.Messages, *m)
	sess.LastActivityAt = m.Timestamp
	sess.LastMessage = chatmodel.MessageSummary{
		Content:    m.Content,
		SenderRole: m.Sender.Role,
		Timestamp:  m.Timestamp,
	}
	return nil
}

func (s *memStore) MarkMessagesRead(_ context.Context, sessionID string, messageIDs []string, readAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, chatmodel.ErrSessionNotFound
	}
	ids := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = struct{}{}
	}
	var n int64
	for i := range sess.Messages {
		m := &sess.Messages[i]
		if _, hit := ids[m.ID]; !hit || m.DeliveryStatus == chatmodel.DeliveryRead {
			continue
		}
		m.DeliveryStatus = chatmodel.DeliveryRead
		at := readAt
		m.ReadAt = &at
		n++
	}
	return n, nil
}

func (s *memStore) UpdateStatus(_ context.Context, sessionID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return chatmodel.ErrSessionNotFound
	}
	if sess.Status == chatmodel.StatusClosed {
		return chatmodel.ErrSessionClosed
	}
	sess.Status = status
	return nil
}

func (s *memStore) ListByStatus(_ context.Context, status string, limit int) ([]*chatmodel.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*chatmodel.Session
	for _, sess := range s.sessions {
		if status != "" && sess.Status != status {
			continue
		}
		cp := *sess
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) CountOpen(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sess := range s.sessions {
		if sess.Open() {
			n++
		}
	}
	return n, nil
}

var _ chatmodel.SessionRepository = (*memStore)(nil)

func agent(id, name string) chatmodel.Participant {
	return chatmodel.Participant{ID: id, DisplayName: name, Role: chatmodel.RoleAgent}
}

func customer(id, name string) chatmodel.Participant {
	return chatmodel.Participant{ID: id, DisplayName: name, Role: chatmodel.RoleCustomer}
}
