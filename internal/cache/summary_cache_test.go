package cache

import (
	"testing"
	"time"
)

func TestGetMissAndHit(t *testing.T) {
	summaryCache := NewSummaryCache(Config{})
	signature := summaryCache.BuildSignature("content", "title")

	if _, ok := summaryCache.Get(signature); ok {
		t.Fatalf("expected miss before set")
	}

	summaryCache.Set(signature, Entry{Summary: "a summary", KeyPoints: []string{"point"}})

	entry, ok := summaryCache.Get(signature)
	if !ok {
		t.Fatalf("expected hit after set")
	}
	if entry.Summary != "a summary" || len(entry.KeyPoints) != 1 {
		t.Fatalf("expected stored entry, got %+v", entry)
	}
}

func TestExpiredEntryIsEvicted(t *testing.T) {
	summaryCache := NewSummaryCache(Config{TTL: time.Millisecond})
	signature := summaryCache.BuildSignature("content")

	summaryCache.Set(signature, Entry{Summary: "short lived"})
	time.Sleep(5 * time.Millisecond)

	if _, ok := summaryCache.Get(signature); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestBuildSignatureNormalizes(t *testing.T) {
	summaryCache := NewSummaryCache(Config{})

	first := summaryCache.BuildSignature("  Content  ", "Title")
	second := summaryCache.BuildSignature("content", "title")
	if first != second {
		t.Fatalf("expected case/whitespace-insensitive signatures")
	}

	different := summaryCache.BuildSignature("other content", "title")
	if first == different {
		t.Fatalf("expected different content to produce a different signature")
	}
}

func TestSetEvictsOldestAtCapacity(t *testing.T) {
	summaryCache := NewSummaryCache(Config{MaxEntries: 2})

	summaryCache.Set("a", Entry{Summary: "first"})
	time.Sleep(2 * time.Millisecond)
	summaryCache.Set("b", Entry{Summary: "second"})
	time.Sleep(2 * time.Millisecond)
	summaryCache.Set("c", Entry{Summary: "third"})

	if _, ok := summaryCache.Get("a"); ok {
		t.Fatalf("expected oldest entry evicted")
	}
	if _, ok := summaryCache.Get("b"); !ok {
		t.Fatalf("expected newer entry retained")
	}
	if _, ok := summaryCache.Get("c"); !ok {
		t.Fatalf("expected newest entry retained")
	}
}

func TestReturnedEntryIsIsolated(t *testing.T) {
	summaryCache := NewSummaryCache(Config{})
	summaryCache.Set("key", Entry{Summary: "s", KeyPoints: []string{"original"}})

	entry, _ := summaryCache.Get("key")
	entry.KeyPoints[0] = "mutated"

	again, _ := summaryCache.Get("key")
	if again.KeyPoints[0] != "original" {
		t.Fatalf("expected cached key points isolated from caller, got %q", again.KeyPoints[0])
	}
}
