package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

type fakeNotifier struct {
	mu       sync.Mutex
	sessions []string
	messages []string
}

func (f *fakeNotifier) NotifyNewSession(_ context.Context, s *chatmodel.Session, _ chatmodel.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, s.ID)
	return nil
}

func (f *fakeNotifier) NotifyCustomerMessage(_ context.Context, sessionID string, _ *chatmodel.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sessionID)
	return nil
}

func (f *fakeNotifier) messageNotices() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func newRelayFixture() (*memStore, *PresenceRegistry, *RoomRouter, *MessageRelay, *fakeNotifier) {
	store := newMemStore()
	presence := NewPresenceRegistry()
	router := NewRoomRouter(store, nil, 5)
	resolver := NewSessionResolver(store, router, nil, nil)
	notify := &fakeNotifier{}
	relay := NewMessageRelay(store, resolver, router, presence, notify, nil, nil, time.Second)
	return store, presence, router, relay, notify
}

func openSession(t *testing.T, store *memStore, parts ...chatmodel.Participant) *chatmodel.Session {
	t.Helper()
	s := &chatmodel.Session{
		Status:         chatmodel.StatusActive,
		Participants:   parts,
		LastActivityAt: time.Now(),
	}
	if err := store.CreateSession(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	store, _, _, relay, _ := newRelayFixture()

	_, err := relay.Send(context.Background(), customer("u1", "Bob"), nil, "", "   ", false)
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
	if store.appendCalls != 0 {
		t.Fatal("empty message must not reach the store")
	}
}

func TestSendPersistsBeforeBroadcast(t *testing.T) {
	store, _, router, relay, _ := newRelayFixture()
	cust := customer("u1", "Bob")
	s := openSession(t, store, cust)

	peer := newFakeSender("cp")
	router.Join(peer, SessionChannel(s.ID))

	store.failAppend = true
	sender := newFakeSender("cs")
	_, err := relay.Send(context.Background(), cust, sender, s.ID, "hello", false)
	if err == nil {
		t.Fatal("persist failure must surface as an error")
	}
	// 没落库的消息一个订阅者都不能看到
	if len(peer.events()) != 0 || len(sender.events()) != 0 {
		t.Fatal("nothing may be broadcast when persistence fails")
	}

	store.failAppend = false
	if _, err := relay.Send(context.Background(), cust, sender, s.ID, "hello", false); err != nil {
		t.Fatal(err)
	}
	if len(peer.eventsOf(EventMessage)) != 1 {
		t.Fatal("peer should receive the message once persistence succeeds")
	}
	got, err := store.GetSession(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Fatalf("stored messages = %+v", got.Messages)
	}
}

func TestSendEchoSuppression(t *testing.T) {
	store, _, router, relay, _ := newRelayFixture()
	cust := customer("u1", "Bob")
	s := openSession(t, store, cust)

	sender := newFakeSender("cs")
	peer := newFakeSender("cp")
	router.Join(peer, SessionChannel(s.ID))

	m, err := relay.Send(context.Background(), cust, sender, s.ID, "hi", true)
	if err != nil {
		t.Fatal(err)
	}

	if len(sender.eventsOf(EventMessage)) != 0 {
		t.Fatal("sender must not get the full echo when suppression is on")
	}
	acks := sender.eventsOf(EventMessageSent)
	if len(acks) != 1 {
		t.Fatalf("sender got %d acks, want 1", len(acks))
	}
	if acks[0].Data.(MessageSentPayload).MessageID != m.ID {
		t.Fatal("ack references the wrong message")
	}
	if len(peer.eventsOf(EventMessage)) != 1 {
		t.Fatal("peer must still get the full message")
	}
}

func TestSendEchoWithoutSuppression(t *testing.T) {
	store, _, _, relay, _ := newRelayFixture()
	cust := customer("u1", "Bob")
	s := openSession(t, store, cust)

	sender := newFakeSender("cs")
	if _, err := relay.Send(context.Background(), cust, sender, s.ID, "hi", false); err != nil {
		t.Fatal(err)
	}
	// 默认回显：发送方也收到完整消息，便于简单客户端渲染
	if len(sender.eventsOf(EventMessage)) != 1 {
		t.Fatal("sender should receive the echo by default")
	}
	if len(sender.eventsOf(EventMessageSent)) != 0 {
		t.Fatal("no lightweight ack without suppression")
	}
}

func TestSendCustomerMessageAlertsAgents(t *testing.T) {
	store, presence, router, relay, _ := newRelayFixture()
	cust := customer("u1", "Bob")
	s := openSession(t, store, cust)

	agentConn := newFakeSender("ca")
	presence.MarkOnline(agent("a1", "Alice"), "ca")
	router.Join(agentConn, ChannelAgents)

	sender := newFakeSender("cs")
	if _, err := relay.Send(context.Background(), cust, sender, s.ID, "need help", true); err != nil {
		t.Fatal(err)
	}

	alerts := agentConn.eventsOf(EventCustomerMessage)
	if len(alerts) != 1 {
		t.Fatalf("agents got %d customer_message alerts, want 1", len(alerts))
	}
	if alerts[0].Data.(CustomerMessagePayload).Preview != "need help" {
		t.Fatal("alert preview mismatch")
	}
}

func TestSendAgentMessageNoAgentAlert(t *testing.T) {
	store, _, router, relay, notify := newRelayFixture()
	ag := agent("a1", "Alice")
	s := openSession(t, store, ag, customer("u1", "Bob"))

	agentConn := newFakeSender("ca")
	router.Join(agentConn, ChannelAgents)

	if _, err := relay.Send(context.Background(), ag, nil, s.ID, "how can I help", false); err != nil {
		t.Fatal(err)
	}
	if len(agentConn.eventsOf(EventCustomerMessage)) != 0 {
		t.Fatal("agent replies must not raise customer_message alerts")
	}
	if notify.messageNotices() != 0 {
		t.Fatal("agent replies must not create offline notices")
	}
}

func TestSendOfflineNotifyOnlyWithoutAgents(t *testing.T) {
	store, presence, _, relay, notify := newRelayFixture()
	cust := customer("u1", "Bob")
	s := openSession(t, store, cust)

	// 没有客服在线：落一条后台通知
	if _, err := relay.Send(context.Background(), cust, nil, s.ID, "anyone there?", false); err != nil {
		t.Fatal(err)
	}
	if notify.messageNotices() != 1 {
		t.Fatalf("offline notices = %d, want 1", notify.messageNotices())
	}

	// 客服在线：不再补通知
	presence.MarkOnline(agent("a1", "Alice"), "ca")
	if _, err := relay.Send(context.Background(), cust, nil, s.ID, "hello again", false); err != nil {
		t.Fatal(err)
	}
	if notify.messageNotices() != 1 {
		t.Fatal("no offline notice expected while an agent is online")
	}
}

func TestSendClosedSession(t *testing.T) {
	store, _, _, relay, _ := newRelayFixture()
	cust := customer("u1", "Bob")
	s := openSession(t, store, cust)
	if err := store.UpdateStatus(context.Background(), s.ID, chatmodel.StatusClosed); err != nil {
		t.Fatal(err)
	}

	_, err := relay.Send(context.Background(), cust, nil, s.ID, "hello", false)
	if !errors.Is(err, chatmodel.ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed", err)
	}
}

func TestSendUnknownSession(t *testing.T) {
	_, _, _, relay, _ := newRelayFixture()
	_, err := relay.Send(context.Background(), customer("u1", "Bob"), nil, "nope", "hello", false)
	if !errors.Is(err, chatmodel.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSendResolvesSessionWhenIDOmitted(t *testing.T) {
	store, _, router, relay, _ := newRelayFixture()
	cust := customer("u1", "Bob")

	sender := newFakeSender("cs")
	m, err := relay.Send(context.Background(), cust, sender, "", "first contact", false)
	if err != nil {
		t.Fatal(err)
	}
	if m.SessionID == "" {
		t.Fatal("relay should have resolved a session for the first message")
	}
	open, _ := store.CountOpen(context.Background())
	if open != 1 {
		t.Fatalf("open sessions = %d, want 1", open)
	}
	// 发送方连接已被拉进会话频道
	if router.Subscribers(SessionChannel(m.SessionID)) != 1 {
		t.Fatal("sender connection should be subscribed to the session channel")
	}
}
