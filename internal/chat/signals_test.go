package chat

import (
	"context"
	"testing"
	"time"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

func newSignalFixture(t *testing.T) (*memStore, *RoomRouter, *SignalChannel, *chatmodel.Session) {
	t.Helper()
	store := newMemStore()
	router := NewRoomRouter(store, nil, 5)
	resolver := NewSessionResolver(store, router, nil, nil)
	relay := NewMessageRelay(store, resolver, router, NewPresenceRegistry(), nil, nil, nil, time.Second)
	signals := NewSignalChannel(store, router, relay, nil, time.Second)

	s := openSession(t, store, customer("u1", "Bob"))
	return store, router, signals, s
}

func TestTypingExcludesSender(t *testing.T) {
	_, router, signals, s := newSignalFixture(t)

	sender := newFakeSender("cs")
	peer := newFakeSender("cp")
	router.Join(sender, SessionChannel(s.ID))
	router.Join(peer, SessionChannel(s.ID))

	signals.Typing(customer("u1", "Bob"), "cs", s.ID, true)

	if len(sender.eventsOf(EventTypingStatus)) != 0 {
		t.Fatal("typing must not echo back to the sender")
	}
	evs := peer.eventsOf(EventTypingStatus)
	if len(evs) != 1 {
		t.Fatalf("peer got %d typing events, want 1", len(evs))
	}
	p := evs[0].Data.(TypingPayload)
	if !p.IsTyping || p.ParticipantID != "u1" {
		t.Fatalf("typing payload = %+v", p)
	}
}

func TestTypingNeverPersists(t *testing.T) {
	store, router, signals, s := newSignalFixture(t)
	peer := newFakeSender("cp")
	router.Join(peer, SessionChannel(s.ID))

	signals.Typing(customer("u1", "Bob"), "cs", s.ID, true)
	signals.Typing(customer("u1", "Bob"), "cs", s.ID, false)

	got, err := store.GetSession(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 0 {
		t.Fatal("typing signals must leave no trace in the store")
	}
}

func TestTypingEmptySessionIgnored(t *testing.T) {
	_, router, signals, _ := newSignalFixture(t)
	peer := newFakeSender("cp")
	router.Join(peer, ChannelAgents)

	signals.Typing(customer("u1", "Bob"), "cs", "", true)

	if len(peer.events()) != 0 {
		t.Fatal("typing without a session goes nowhere")
	}
}

func TestReadReceiptAdvancesAndBroadcasts(t *testing.T) {
	store, router, signals, s := newSignalFixture(t)
	m := &chatmodel.Message{
		Sender:         customer("u1", "Bob"),
		Content:        "hello",
		Type:           chatmodel.MessageText,
		Timestamp:      time.Now(),
		DeliveryStatus: chatmodel.DeliverySent,
	}
	if err := store.AppendMessage(context.Background(), s.ID, m); err != nil {
		t.Fatal(err)
	}

	reader := newFakeSender("cr")
	peer := newFakeSender("cp")
	router.Join(reader, SessionChannel(s.ID))
	router.Join(peer, SessionChannel(s.ID))

	signals.ReadReceipt(context.Background(), agent("a1", "Alice"), "cr", s.ID, []string{m.ID})

	got, err := store.GetSession(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Messages[0].DeliveryStatus != chatmodel.DeliveryRead {
		t.Fatalf("delivery status = %s, want read", got.Messages[0].DeliveryStatus)
	}
	if len(reader.eventsOf(EventReadReceiptAck)) != 0 {
		t.Fatal("reader must not receive its own receipt broadcast")
	}
	evs := peer.eventsOf(EventReadReceiptAck)
	if len(evs) != 1 {
		t.Fatalf("peer got %d messages_read events, want 1", len(evs))
	}
	b := evs[0].Data.(ReadReceiptBroadcast)
	if b.ParticipantID != "a1" || len(b.MessageIDs) != 1 {
		t.Fatalf("broadcast payload = %+v", b)
	}
}

func TestReadReceiptRepeatIsHarmless(t *testing.T) {
	store, router, signals, s := newSignalFixture(t)
	m := &chatmodel.Message{
		Sender:         customer("u1", "Bob"),
		Content:        "hello",
		Type:           chatmodel.MessageText,
		Timestamp:      time.Now(),
		DeliveryStatus: chatmodel.DeliverySent,
	}
	if err := store.AppendMessage(context.Background(), s.ID, m); err != nil {
		t.Fatal(err)
	}
	peer := newFakeSender("cp")
	router.Join(peer, SessionChannel(s.ID))

	signals.ReadReceipt(context.Background(), agent("a1", "Alice"), "cr", s.ID, []string{m.ID})
	first, err := store.GetSession(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	readAt := *first.Messages[0].ReadAt

	// 重复回执：状态不回退，时间不刷新
	signals.ReadReceipt(context.Background(), agent("a1", "Alice"), "cr", s.ID, []string{m.ID})
	second, err := store.GetSession(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.Messages[0].DeliveryStatus != chatmodel.DeliveryRead {
		t.Fatal("delivery status must stay read")
	}
	if !second.Messages[0].ReadAt.Equal(readAt) {
		t.Fatal("repeat receipts must not move the read timestamp")
	}
}
