package conversation

import "testing"

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	for _, content := range []string{"a", "b", "c"} {
		if err := s.Append(Message{Role: RoleUser, Content: content}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Recent(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Content != "b" || got[1].Content != "c" {
		t.Errorf("Recent(2) = %v, want last two oldest-first", got)
	}

	n, _ := s.Count()
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	n, _ = s.Count()
	if n != 0 {
		t.Errorf("count after clear = %d, want 0", n)
	}
}

func TestMemoryStoreRecentCopies(t *testing.T) {
	s := NewMemoryStore()
	s.Append(Message{Role: RoleUser, Content: "original"})

	got, _ := s.Recent(10)
	got[0].Content = "mutated"

	again, _ := s.Recent(10)
	if again[0].Content != "original" {
		t.Error("Recent must return a copy, not the backing slice")
	}
}
