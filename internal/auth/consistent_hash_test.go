package auth

import (
	"fmt"
	"testing"
)

func TestGetNodeStable(t *testing.T) {
	ring := NewConsistentHashRing([]string{"n1", "n2", "n3"}, 50)
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("token-%d", i)
		if ring.GetNode(key) != ring.GetNode(key) {
			t.Fatalf("node for %s is not stable", key)
		}
	}
}

func TestEmptyNodesGetDefault(t *testing.T) {
	ring := NewConsistentHashRing(nil, 0)
	if got := ring.GetNode("anything"); got != "auth-node-0" {
		t.Fatalf("node = %q, want the default node", got)
	}
	if len(ring.Nodes()) != 1 {
		t.Fatalf("nodes = %v, want exactly the default", ring.Nodes())
	}
}

func TestAddIsIdempotent(t *testing.T) {
	ring := NewConsistentHashRing([]string{"n1"}, 10)
	before := ring.GetNode("k")
	ring.Add("n1")
	if ring.GetNode("k") != before {
		t.Fatal("re-adding an existing node must not move keys")
	}
	if len(ring.Nodes()) != 1 {
		t.Fatalf("nodes = %v, want a single entry", ring.Nodes())
	}
}

func TestKeysSpreadAcrossNodes(t *testing.T) {
	ring := NewConsistentHashRing([]string{"n1", "n2", "n3"}, 50)
	hits := make(map[string]int)
	for i := 0; i < 300; i++ {
		hits[ring.GetNode(fmt.Sprintf("token-%d", i))]++
	}
	if len(hits) != 3 {
		t.Fatalf("keys landed on %d nodes, want 3: %v", len(hits), hits)
	}
}
