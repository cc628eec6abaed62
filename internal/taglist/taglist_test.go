package taglist

import (
	"reflect"
	"testing"
)

func TestAdd_TrimsAndAppends(t *testing.T) {
	tl := New()
	tl.Add("  gpt-4  ")
	tl.Add("claude-opus")

	got := tl.Values()
	want := []string{"gpt-4", "claude-opus"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("values = %v, want %v", got, want)
	}
}

func TestAdd_BlankIsNoop(t *testing.T) {
	tl := New()
	tl.Add("")
	tl.Add("   ")
	tl.Add("\t\n")

	if tl.Len() != 0 {
		t.Fatalf("expected empty list, got %v", tl.Values())
	}
}

func TestAdd_DuplicateIsNoop(t *testing.T) {
	tl := New()
	tl.Add("org-a")
	tl.Add("org-a")
	tl.Add(" org-a ") // trims to duplicate

	if tl.Len() != 1 {
		t.Fatalf("expected 1 element, got %v", tl.Values())
	}
}

func TestAdd_CaseSensitive(t *testing.T) {
	tl := New()
	tl.Add("GPT-4")
	tl.Add("gpt-4")

	// Exact-match dedup only: different case is a different tag.
	if tl.Len() != 2 {
		t.Fatalf("expected 2 elements, got %v", tl.Values())
	}
}

func TestAdd_ClearsBuffer(t *testing.T) {
	tl := New()
	tl.SetBuffer("pending")
	tl.Add("pending")
	if tl.Buffer() != "" {
		t.Fatalf("buffer should be cleared after add, got %q", tl.Buffer())
	}
}

func TestRemove_PreservesOrder(t *testing.T) {
	tl := NewFrom([]string{"a", "b", "c"})
	tl.Remove(1)

	want := []string{"a", "c"}
	if !reflect.DeepEqual(tl.Values(), want) {
		t.Fatalf("values = %v, want %v", tl.Values(), want)
	}
}

func TestRemove_OutOfRangeIsNoop(t *testing.T) {
	tl := NewFrom([]string{"a", "b"})
	tl.Remove(-1)
	tl.Remove(2)
	tl.Remove(100)

	want := []string{"a", "b"}
	if !reflect.DeepEqual(tl.Values(), want) {
		t.Fatalf("values = %v, want %v", tl.Values(), want)
	}
}

func TestCommit_AddsBuffer(t *testing.T) {
	tl := New()
	tl.SetBuffer("org-a")
	tl.Commit()

	if !reflect.DeepEqual(tl.Values(), []string{"org-a"}) {
		t.Fatalf("values = %v", tl.Values())
	}
}

func TestFlush_AlwaysClearsBuffer(t *testing.T) {
	tl := NewFrom([]string{"a"})
	tl.SetBuffer("a") // duplicate: add is a no-op, buffer must still clear
	tl.Flush()

	if tl.Buffer() != "" {
		t.Fatalf("buffer should be empty after flush, got %q", tl.Buffer())
	}
	if tl.Len() != 1 {
		t.Fatalf("expected 1 element, got %v", tl.Values())
	}
}

func TestInput_CommaSeparated(t *testing.T) {
	tl := New()
	tl.Input("a,b, c ,d")

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(tl.Values(), want) {
		t.Fatalf("values = %v, want %v", tl.Values(), want)
	}
	if tl.Buffer() != "d" {
		t.Fatalf("buffer = %q, want %q", tl.Buffer(), "d")
	}
}

func TestInput_NoComma_OnlyBuffers(t *testing.T) {
	tl := New()
	tl.Input("partial")

	if tl.Len() != 0 {
		t.Fatalf("expected no committed values, got %v", tl.Values())
	}
	if tl.Buffer() != "partial" {
		t.Fatalf("buffer = %q", tl.Buffer())
	}
}

func TestNewFrom_DedupsInput(t *testing.T) {
	tl := NewFrom([]string{"x", " x", "", "y"})

	want := []string{"x", "y"}
	if !reflect.DeepEqual(tl.Values(), want) {
		t.Fatalf("values = %v, want %v", tl.Values(), want)
	}
}

func TestValues_ReturnsCopy(t *testing.T) {
	tl := NewFrom([]string{"a", "b"})
	got := tl.Values()
	got[0] = "mutated"

	if tl.Values()[0] != "a" {
		t.Fatal("Values must return a copy")
	}
}
