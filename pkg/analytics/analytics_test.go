package analytics

import (
	"reflect"
	"testing"
)

func TestWordFrequency(t *testing.T) {
	got := WordFrequency("The Go gopher; the GO compiler, and a gopher! Click here.")
	want := map[string]int{"go": 2, "gopher": 2, "compiler": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("WordFrequency() = %v, want %v", got, want)
	}
}

func TestTopWords(t *testing.T) {
	freq := map[string]int{"beta": 3, "alpha": 3, "gamma": 5, "delta": 1, "it's": 9}
	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"gamma", "alpha"}},
		{4, []string{"gamma", "alpha", "beta", "delta"}},
		{0, []string{}},
	}
	for _, tt := range tests {
		if got := TopWords(freq, tt.n); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("TopWords(n=%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestTopKeywords(t *testing.T) {
	freq := Reduce(map[string]int{"go": 2, "rust": 1}, map[string]int{"go": 1, "(broken": 7})
	got := TopKeywords(freq, 5)
	want := []string{"go:3", "rust:1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopKeywords() = %v, want %v", got, want)
	}
}

func TestIsStopword(t *testing.T) {
	for _, w := range []string{"the", "The", "homepage", "won't"} {
		if !IsStopword(w) {
			t.Errorf("IsStopword(%q) = false", w)
		}
	}
	if IsStopword("gopher") {
		t.Error(`IsStopword("gopher") = true`)
	}
}
