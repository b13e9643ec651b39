package pagelog

import "testing"

func TestLog_AppendConsume_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		pageSize int
		maxPages int
		write    string
	}{
		{"fits one page", 8, 2, "hello"},
		{"spans pages", 4, 3, "hello world!"},
		{"exact capacity", 4, 2, "12345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.pageSize, tt.maxPages)

			n := log.Append([]byte(tt.write))
			if n != len(tt.write) {
				t.Fatalf("Append() = %d, want %d", n, len(tt.write))
			}

			dst := make([]byte, len(tt.write))
			got := log.Consume(dst)
			if got != len(tt.write) {
				t.Fatalf("Consume() = %d, want %d", got, len(tt.write))
			}

			if string(dst) != tt.write {
				t.Errorf("round trip = %q, want %q", dst, tt.write)
			}
		})
	}
}

func TestLog_Append_StopsAtPageLimit(t *testing.T) {
	log := New(4, 2) // capacity 8

	n := log.Append([]byte("0123456789"))
	if n != 8 {
		t.Fatalf("Append() = %d, want 8 (clamped to maxPages*pageSize)", n)
	}

	if log.NumPages() != 2 {
		t.Errorf("NumPages() = %d, want 2", log.NumPages())
	}
}

func TestLog_Consume_PartialWhenShortOfRequest(t *testing.T) {
	log := New(4, 2)
	log.Append([]byte("ab"))

	dst := make([]byte, 10)
	n := log.Consume(dst)
	if n != 2 {
		t.Fatalf("Consume() = %d, want 2", n)
	}
}

func TestLog_UnlinksDrainedHeadPage(t *testing.T) {
	log := New(4, 3)
	log.Append([]byte("aaaabbbb")) // two full pages

	if log.NumPages() != 2 {
		t.Fatalf("NumPages() = %d, want 2", log.NumPages())
	}

	dst := make([]byte, 4)
	log.Consume(dst)

	if log.NumPages() != 1 {
		t.Errorf("NumPages() after draining head = %d, want 1", log.NumPages())
	}

	if string(dst) != "aaaa" {
		t.Errorf("Consume() = %q, want %q", dst, "aaaa")
	}
}

func TestLog_NeverStructurallyEmpty(t *testing.T) {
	log := New(4, 2)
	log.Append([]byte("ab"))

	dst := make([]byte, 2)
	log.Consume(dst)

	if log.NumPages() != 1 {
		t.Errorf("NumPages() after draining all data = %d, want 1 (the partly filled page is kept)", log.NumPages())
	}

	if log.ValidBytes() != 0 {
		t.Errorf("ValidBytes() = %d, want 0", log.ValidBytes())
	}

	// Log must still accept writes after being fully drained.
	n := log.Append([]byte("cd"))
	if n != 2 {
		t.Errorf("Append() after drain = %d, want 2", n)
	}
}

func TestLog_ValidBytes(t *testing.T) {
	log := New(4, 3)
	log.Append([]byte("abcdef"))

	if got := log.ValidBytes(); got != 6 {
		t.Errorf("ValidBytes() = %d, want 6", got)
	}

	dst := make([]byte, 3)
	log.Consume(dst)

	if got := log.ValidBytes(); got != 3 {
		t.Errorf("ValidBytes() after partial consume = %d, want 3", got)
	}
}
