package collection

import (
	"encoding/json"
	"fmt"
	"testing"
)

type item struct {
	id    string
	value int
}

func (i item) Key() string { return i.id }

func keys(l List[item]) []string {
	out := make([]string, 0, l.Len())
	for _, it := range l.Items() {
		out = append(out, it.id)
	}
	return out
}

func equalKeys(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestList_UpsertDistinctIDs(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		inserts  int
		wantLen  int
	}{
		{"unbounded", 0, 25, 25},
		{"below capacity", 10, 7, 7},
		{"at capacity", 10, 10, 10},
		{"above capacity", 10, 23, 10},
		{"capacity one", 1, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewList[item](tt.capacity)
			for i := 0; i < tt.inserts; i++ {
				l = l.Upsert(item{id: fmt.Sprintf("id-%d", i)})
			}
			if l.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", l.Len(), tt.wantLen)
			}
			last := fmt.Sprintf("id-%d", tt.inserts-1)
			if got := l.Items()[0].id; got != last {
				t.Errorf("first item = %s, want newest %s", got, last)
			}
		})
	}
}

func TestList_UpsertRepeatedIDKeepsPosition(t *testing.T) {
	l := NewList[item](0).
		Upsert(item{id: "a", value: 1}).
		Upsert(item{id: "b", value: 1}).
		Upsert(item{id: "c", value: 1})

	updated := l.Upsert(item{id: "b", value: 2})

	if updated.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", updated.Len())
	}
	if !equalKeys(keys(updated), "c", "b", "a") {
		t.Errorf("order = %v, want [c b a]", keys(updated))
	}
	if got, _ := updated.Get("b"); got.value != 2 {
		t.Errorf("b.value = %d, want 2", got.value)
	}
	if got, _ := l.Get("b"); got.value != 1 {
		t.Errorf("original list mutated: b.value = %d, want 1", got.value)
	}
}

func TestList_TrimToCapacity(t *testing.T) {
	base := NewList[item](0, item{id: "a"}, item{id: "b"}, item{id: "c"}, item{id: "d"})

	tests := []struct {
		n    int
		want []string
	}{
		{0, nil},
		{2, []string{"a", "b"}},
		{4, []string{"a", "b", "c", "d"}},
		{9, []string{"a", "b", "c", "d"}},
		{-3, nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			got := base.TrimToCapacity(tt.n)
			if !equalKeys(keys(got), tt.want...) {
				t.Errorf("TrimToCapacity(%d) = %v, want %v", tt.n, keys(got), tt.want)
			}
			if base.Len() != 4 {
				t.Errorf("receiver mutated: Len() = %d", base.Len())
			}
		})
	}
}

func TestList_RemoveByID(t *testing.T) {
	l := NewList[item](0, item{id: "a"}, item{id: "b"}, item{id: "c"})

	removed := l.RemoveByID("b")
	if !equalKeys(keys(removed), "a", "c") {
		t.Errorf("RemoveByID(b) = %v, want [a c]", keys(removed))
	}

	same := l.RemoveByID("zzz")
	if !equalKeys(keys(same), "a", "b", "c") {
		t.Errorf("RemoveByID(missing) = %v, want unchanged", keys(same))
	}
	if l.Len() != 3 {
		t.Errorf("receiver mutated: Len() = %d", l.Len())
	}
}

func TestList_ReplaceAll(t *testing.T) {
	l := NewList[item](3, item{id: "old"})

	got := l.ReplaceAll([]item{{id: "x"}, {id: "y"}, {id: "x"}, {id: "z"}, {id: "w"}})
	if !equalKeys(keys(got), "x", "y", "z") {
		t.Errorf("ReplaceAll() = %v, want [x y z]", keys(got))
	}
	if _, ok := got.Get("old"); ok {
		t.Error("ReplaceAll() kept prior content")
	}
}

func TestList_DoesNotAliasCallerSlice(t *testing.T) {
	src := []item{{id: "a", value: 1}, {id: "b", value: 1}}
	l := NewList[item](0, src...)

	src[0].value = 99
	if got, _ := l.Get("a"); got.value != 1 {
		t.Errorf("list aliases caller slice: a.value = %d", got.value)
	}

	out := l.Items()
	out[1].value = 42
	if got, _ := l.Get("b"); got.value != 1 {
		t.Errorf("Items() aliases internal slice: b.value = %d", got.value)
	}
}

func TestList_UpdateInPlace(t *testing.T) {
	l := NewList[item](0, item{id: "a"}, item{id: "b"})

	got, ok := l.Update("b", func(it item) item {
		it.value = 7
		return it
	})
	if !ok {
		t.Fatal("Update() ok = false, want true")
	}
	if !equalKeys(keys(got), "a", "b") {
		t.Errorf("Update() reordered list: %v", keys(got))
	}
	if v, _ := got.Get("b"); v.value != 7 {
		t.Errorf("b.value = %d, want 7", v.value)
	}

	if _, ok := l.Update("missing", func(it item) item { return it }); ok {
		t.Error("Update(missing) ok = true, want false")
	}
}

func TestList_AlertScenario(t *testing.T) {
	l := NewList[item](2)
	for _, id := range []string{"a1", "a2", "a3"} {
		l = l.Upsert(item{id: id})
	}

	if !equalKeys(keys(l), "a3", "a2") {
		t.Errorf("alerts = %v, want [a3 a2]", keys(l))
	}
}

func TestList_MarshalJSONEmpty(t *testing.T) {
	data, err := json.Marshal(NewList[item](5))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Marshal(empty) = %s, want []", data)
	}
}
