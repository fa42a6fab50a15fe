package xid

import (
	"sort"
	"strings"
	"testing"
)

func TestNewCarriesPrefix(t *testing.T) {
	id := New("order")
	if !strings.HasPrefix(id, "order-") {
		t.Fatalf("expected order- prefix, got %q", id)
	}
}

func TestNewIsUniqueAndSortable(t *testing.T) {
	ids := make([]string, 0, 200)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := New("exp")
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if !sort.StringsAreSorted(ids) {
		t.Fatalf("expected ids to sort in creation order")
	}
}
