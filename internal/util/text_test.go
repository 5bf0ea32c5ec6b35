package util

import (
	"reflect"
	"testing"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Jeffrey Epstein", want: "Jeffrey Epstein"},
		{name: "surrounding space", input: "  Jeffrey Epstein  ", want: "Jeffrey Epstein"},
		{name: "repeated spaces", input: "Jeffrey    Epstein", want: "Jeffrey Epstein"},
		{name: "line breaks", input: "Jeffrey\nEpstein\r\n", want: "Jeffrey Epstein"},
		{name: "tabs", input: "Jeffrey\tEpstein", want: "Jeffrey Epstein"},
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: " \n\t ", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeWhitespace(tc.input); got != tc.want {
				t.Fatalf("NormalizeWhitespace(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestUniqueStrings(t *testing.T) {
	got := UniqueStrings([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UniqueStrings() = %v, want %v", got, want)
	}

	if got := UniqueStrings(nil); len(got) != 0 {
		t.Fatalf("UniqueStrings(nil) = %v, want empty", got)
	}
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want bool
	}{
		{name: "shared element", a: []string{"flight_logs", "black_book"}, b: []string{"black_book"}, want: true},
		{name: "disjoint", a: []string{"flight_logs"}, b: []string{"court_docs"}, want: false},
		{name: "empty left", a: nil, b: []string{"x"}, want: false},
		{name: "both empty", a: nil, b: nil, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Intersects(tc.a, tc.b); got != tc.want {
				t.Fatalf("Intersects(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
