package sandbox

import (
	"context"
	"testing"
	"time"
)

func TestReapRemovesOverdueOnly(t *testing.T) {
	rt := newFakeRuntime()
	reg := NewRegistry(rt)

	now := time.Now()
	reg.Add("x-overdue", "c-old", now.Add(-2*reapGrace))
	reg.Add("x-live", "c-live", now.Add(time.Hour))

	reaped := reg.Reap(context.Background(), now)
	if reaped != 1 {
		t.Fatalf("expected 1 reaped, got %d", reaped)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", reg.Len())
	}
	if rt.removedCount("c-old") != 1 {
		t.Fatal("overdue container not removed")
	}
	if rt.removedCount("c-live") != 0 {
		t.Fatal("live container must not be touched")
	}
}

func TestReapWithinGraceLeavesEntry(t *testing.T) {
	rt := newFakeRuntime()
	reg := NewRegistry(rt)

	now := time.Now()
	reg.Add("x-justpast", "c-1", now.Add(-reapGrace/2))

	if reaped := reg.Reap(context.Background(), now); reaped != 0 {
		t.Fatalf("expected 0 reaped, got %d", reaped)
	}
	if reg.Len() != 1 {
		t.Fatal("entry inside the grace window must survive")
	}
}

func TestBoundedBufferExactFit(t *testing.T) {
	b := newBoundedBuffer(4)
	b.Write([]byte("abcd"))
	if b.Truncated() {
		t.Fatal("exact fit must not truncate")
	}
	b.Write([]byte("e"))
	if !b.Truncated() {
		t.Fatal("overflow must truncate")
	}
	if string(b.Bytes()) != "abcd" {
		t.Fatalf("unexpected contents %q", b.Bytes())
	}
}

func TestBoundedBufferPartialWrite(t *testing.T) {
	b := newBoundedBuffer(4)
	n, err := b.Write([]byte("abcdef"))
	if err != nil || n != 6 {
		t.Fatalf("write must report full length, got n=%d err=%v", n, err)
	}
	if string(b.Bytes()) != "abcd" || !b.Truncated() {
		t.Fatalf("expected truncated prefix, got %q truncated=%v", b.Bytes(), b.Truncated())
	}
}
