package transcript

import (
	"reflect"
	"testing"
)

func TestNewStartsWithGreeting(t *testing.T) {
	s := New()
	want := []Entry{{Role: Assistant, Content: "How can I help you?"}}
	if got := s.All(); !reflect.DeepEqual(got, want) {
		t.Errorf("All() = %v, want %v", got, want)
	}
}

func TestAppendKeepsOrderAndResetClears(t *testing.T) {
	s := New()
	s.Append(Entry{Role: User, Content: "how many students?"})
	s.Append(Entry{Role: Assistant, Content: "100"})

	got := s.All()
	if len(got) != 3 || got[1].Content != "how many students?" || got[2].Role != Assistant {
		t.Fatalf("All() = %v", got)
	}

	got[0].Content = "mutated"
	if s.All()[0].Content != Greeting {
		t.Error("All() must return a copy")
	}

	s.Reset()
	if s.Len() != 1 || s.All()[0] != (Entry{Role: Assistant, Content: Greeting}) {
		t.Errorf("after Reset() = %v", s.All())
	}
}
