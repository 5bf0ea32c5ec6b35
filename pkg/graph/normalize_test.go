package graph

import (
	"errors"
	"testing"
)

func TestNormalize_DisplayForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "first last inverted",
			raw:  "Jeffrey Epstein",
			want: "Epstein, Jeffrey",
		},
		{
			name: "already last comma first",
			raw:  "Epstein, Jeffrey",
			want: "Epstein, Jeffrey",
		},
		{
			name: "three part name keeps middle with given names",
			raw:  "Jeffrey Edward Epstein",
			want: "Epstein, Jeffrey Edward",
		},
		{
			name: "single word passes through",
			raw:  "Epstein",
			want: "Epstein",
		},
		{
			name: "abbreviated leading token expands",
			raw:  "Je Epstein",
			want: "Epstein, Jeffrey",
		},
		{
			name: "abbreviation in comma form expands",
			raw:  "Epstein, Je",
			want: "Epstein, Jeffrey",
		},
		{
			name: "surname guarded expansion applies",
			raw:  "Bill Clinton",
			want: "Clinton, William",
		},
		{
			name: "surname guarded expansion withheld",
			raw:  "Bill Gates",
			want: "Gates, Bill",
		},
		{
			name: "adjacent duplicate token collapsed",
			raw:  "Bill Bill Clinton",
			want: "Clinton, William",
		},
		{
			name: "honorific kept before given names",
			raw:  "Dr. Henry Kissinger",
			want: "Kissinger, Dr. Henry",
		},
		{
			name: "suffix kept at end",
			raw:  "John Doe Jr.",
			want: "Doe, John Jr.",
		},
		{
			name: "honorific and suffix together",
			raw:  "Prof. Alan Dershowitz Esq",
			want: "Dershowitz, Prof. Alan Esq",
		},
		{
			name: "honorific with single name keeps title",
			raw:  "Prince Andrew",
			want: "Prince Andrew",
		},
		{
			name: "extra whitespace collapsed",
			raw:  "  Ghislaine   Maxwell  ",
			want: "Maxwell, Ghislaine",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.raw)
			if err != nil {
				t.Fatalf("Normalize(%q) error = %v", tc.raw, err)
			}
			if got.Display != tc.want {
				t.Fatalf("Normalize(%q) display = %q, want %q", tc.raw, got.Display, tc.want)
			}
		})
	}
}

func TestNormalize_SlugForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain first last",
			raw:  "Jeffrey Epstein",
			want: "jeffrey_epstein",
		},
		{
			name: "comma form keeps token order",
			raw:  "Maxwell, Ghislaine",
			want: "maxwell_ghislaine",
		},
		{
			name: "abbreviation expands in slug",
			raw:  "Je Epstein",
			want: "jeffrey_epstein",
		},
		{
			name: "punctuation stripped",
			raw:  "O'Brien, Pat",
			want: "obrien_pat",
		},
		{
			name: "accents stripped",
			raw:  "José García",
			want: "jose_garcia",
		},
		{
			name: "duplicate tokens collapsed",
			raw:  "Epstein Epstein",
			want: "epstein",
		},
		{
			name: "digits survive",
			raw:  "Area 51",
			want: "area_51",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SlugCandidate(tc.raw)
			if err != nil {
				t.Fatalf("SlugCandidate(%q) error = %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("SlugCandidate(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalize_AccentEquivalence(t *testing.T) {
	a, err := Normalize("Müller, Hans")
	if err != nil {
		t.Fatalf("Normalize error = %v", err)
	}
	b, err := Normalize("Muller, Hans")
	if err != nil {
		t.Fatalf("Normalize error = %v", err)
	}
	if a.Slug != b.Slug {
		t.Fatalf("accented and plain slugs differ: %q vs %q", a.Slug, b.Slug)
	}
	if a.Display != b.Display {
		t.Fatalf("accented and plain displays differ: %q vs %q", a.Display, b.Display)
	}
}

func TestNormalize_Determinism(t *testing.T) {
	inputs := []string{"Jeffrey Epstein", "Maxwell, Ghislaine", "Dr. Henry Kissinger Jr."}
	for _, raw := range inputs {
		first, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%q) error = %v", raw, err)
		}
		second, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%q) second run error = %v", raw, err)
		}
		if first != second {
			t.Fatalf("Normalize(%q) not deterministic: %+v vs %+v", raw, first, second)
		}
	}
}

func TestNormalize_InvalidNames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty string", raw: ""},
		{name: "whitespace only", raw: "   "},
		{name: "punctuation only", raw: "!!! ---"},
		{name: "single character", raw: "x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.raw)
			if err == nil {
				t.Fatalf("Normalize(%q) expected error, got none", tc.raw)
			}
			var invalid *InvalidNameError
			if !errors.As(err, &invalid) {
				t.Fatalf("Normalize(%q) error = %T, want *InvalidNameError", tc.raw, err)
			}
		})
	}
}
