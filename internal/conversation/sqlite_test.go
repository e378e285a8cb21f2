package conversation

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := setupTestStore(t)

	msgs := []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi there"},
	}
	for _, m := range msgs {
		if err := store.Append(m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.Recent(50)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != len(msgs) {
		t.Fatalf("got %d messages, want %d", len(got), len(msgs))
	}
	for i := range msgs {
		if got[i].Role != msgs[i].Role || got[i].Content != msgs[i].Content {
			t.Errorf("message %d = {%s %q}, want {%s %q}",
				i, got[i].Role, got[i].Content, msgs[i].Role, msgs[i].Content)
		}
	}
	if got[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set on append")
	}
}

func TestRecentChronologicalOrder(t *testing.T) {
	store := setupTestStore(t)

	// Append with explicit, strictly increasing timestamps so ordering
	// is observable even under a limit.
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		err := store.Append(Message{
			Role:      RoleUser,
			Content:   string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	// A limit smaller than the log must return the LAST limit messages,
	// oldest first.
	got, err := store.Recent(3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	want := []string{"h", "i", "j"}
	for i, w := range want {
		if got[i].Content != w {
			t.Errorf("message %d = %q, want %q", i, got[i].Content, w)
		}
	}
}

func TestAttachmentsRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	err := store.Append(Message{
		Role:        RoleUser,
		Content:     "Tool Output: screenshot saved",
		Attachments: []string{"/tmp/amadeus/shot-01.png"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	err = store.Append(Message{Role: RoleAssistant, Content: "looking at it"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got[0].Attachments) != 1 || got[0].Attachments[0] != "/tmp/amadeus/shot-01.png" {
		t.Errorf("attachments = %v, want the saved path", got[0].Attachments)
	}
	if got[1].Attachments != nil {
		t.Errorf("expected nil attachments for plain message, got %v", got[1].Attachments)
	}
}

func TestClear(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 5; i++ {
		if err := store.Append(Message{Role: RoleUser, Content: "x"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	n, err := store.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("count after clear = %d, want 0", n)
	}

	got, err := store.Recent(50)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("recent after clear returned %d messages, want 0", len(got))
	}
}

func TestAppendAfterClear(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Append(Message{Role: RoleUser, Content: "before"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Append(Message{Role: RoleSystem, Content: "fresh"}); err != nil {
		t.Fatalf("append after clear: %v", err)
	}

	got, err := store.Recent(50)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].Role != RoleSystem || got[0].Content != "fresh" {
		t.Errorf("got %v, want single fresh system message", got)
	}
}
