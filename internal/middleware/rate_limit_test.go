package middleware

import (
	"testing"
	"time"
)

func TestTokenBucketExhausts(t *testing.T) {
	tb := NewTokenBucket(3, 1)
	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("request %d should pass within capacity", i)
		}
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty after capacity is spent")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(1, 10)
	if !tb.Allow() {
		t.Fatal("first request should pass")
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty immediately after")
	}
	time.Sleep(1100 * time.Millisecond)
	if !tb.Allow() {
		t.Fatal("bucket should refill after a second")
	}
}

func TestTokenBucketCapsAtCapacity(t *testing.T) {
	tb := NewTokenBucket(2, 100)
	time.Sleep(1100 * time.Millisecond)
	passed := 0
	for i := 0; i < 10; i++ {
		if tb.Allow() {
			passed++
		}
	}
	if passed != 2 {
		t.Fatalf("passed = %d, refill must not exceed capacity", passed)
	}
}
