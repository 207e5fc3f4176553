package dedup

import "testing"

func TestLedgerSeenAndMark(t *testing.T) {
	l, err := NewLedger(10)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	if l.Seen("dev1") {
		t.Fatalf("fresh ledger should not contain dev1")
	}
	l.Mark("dev1")
	l.Mark("dev1")
	if !l.Seen("dev1") {
		t.Fatalf("dev1 should be seen after Mark")
	}
	if l.Seen("dev2") {
		t.Fatalf("dev2 was never marked")
	}
	if got := l.Len(); got != 1 {
		t.Fatalf("len = %d, want 1", got)
	}
}

func TestLedgerKeysAreExact(t *testing.T) {
	l, err := NewLedger(0)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	l.Mark("com.Foo")
	if l.Seen("com.foo") {
		t.Fatalf("ledger must not fold case; callers normalize keys")
	}
}

func TestLedgerBounded(t *testing.T) {
	l, err := NewLedger(2)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	l.Mark("a")
	l.Mark("b")
	l.Mark("c")

	if got := l.Len(); got != 2 {
		t.Fatalf("len = %d, want 2", got)
	}
	if l.Seen("a") {
		t.Fatalf("oldest key should have been evicted")
	}
	if !l.Seen("b") || !l.Seen("c") {
		t.Fatalf("newest keys should remain")
	}
}
