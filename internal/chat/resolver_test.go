package chat

import (
	"context"
	"sync"
	"testing"
)

func TestResolveOrCreateIdempotent(t *testing.T) {
	store := newMemStore()
	router := NewRoomRouter(store, nil, 5)
	resolver := NewSessionResolver(store, router, nil, nil)
	cust := customer("u1", "Bob")

	first, created, err := resolver.ResolveOrCreate(context.Background(), cust)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("first resolve should create a session")
	}

	second, created, err := resolver.ResolveOrCreate(context.Background(), cust)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("second resolve must reuse, not create")
	}
	if second.ID != first.ID {
		t.Fatalf("resolved %s, want %s", second.ID, first.ID)
	}
}

func TestResolveOrCreateConcurrentSameParticipant(t *testing.T) {
	store := newMemStore()
	router := NewRoomRouter(store, nil, 5)
	resolver := NewSessionResolver(store, router, nil, nil)
	cust := customer("u1", "Bob")

	// 两个标签页同时重连：查找-创建窗口里不允许建出第二个会话
	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _, err := resolver.ResolveOrCreate(context.Background(), cust)
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = s.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("concurrent resolves produced different sessions: %v", ids)
		}
	}
	open, err := store.CountOpen(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if open != 1 {
		t.Fatalf("open sessions = %d, want exactly 1", open)
	}
}

func TestResolveOrCreateNotifiesAgents(t *testing.T) {
	store := newMemStore()
	router := NewRoomRouter(store, nil, 5)
	resolver := NewSessionResolver(store, router, nil, nil)

	agentConn := newFakeSender("ca")
	router.Join(agentConn, ChannelAgents)

	s, _, err := resolver.ResolveOrCreate(context.Background(), customer("u1", "Bob"))
	if err != nil {
		t.Fatal(err)
	}

	evs := agentConn.eventsOf(EventNewSession)
	if len(evs) != 1 {
		t.Fatalf("agents channel got %d new_session events, want 1", len(evs))
	}
	if evs[0].Data.(NewSessionPayload).SessionID != s.ID {
		t.Fatal("new_session payload carries the wrong session")
	}

	// 复用路径不重复广播
	if _, _, err := resolver.ResolveOrCreate(context.Background(), customer("u1", "Bob")); err != nil {
		t.Fatal(err)
	}
	if len(agentConn.eventsOf(EventNewSession)) != 1 {
		t.Fatal("reuse must not broadcast new_session again")
	}
}

func TestResolverLockMapShrinks(t *testing.T) {
	store := newMemStore()
	resolver := NewSessionResolver(store, NewRoomRouter(store, nil, 5), nil, nil)

	if _, _, err := resolver.ResolveOrCreate(context.Background(), customer("u1", "Bob")); err != nil {
		t.Fatal(err)
	}

	resolver.mu.Lock()
	n := len(resolver.locks)
	resolver.mu.Unlock()
	if n != 0 {
		t.Fatalf("per-participant locks leaked: %d entries", n)
	}
}
