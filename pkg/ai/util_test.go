package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type entity struct {
		Name string `json:"name"`
		ID   string `json:"id,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  entity
	}{
		{
			name:  "valid json object",
			input: `{"name":"Epstein, Jeffrey"}`,
			want:  entity{Name: "Epstein, Jeffrey"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{name: 'Epstein, Jeffrey'}`,
			want:  entity{Name: "Epstein, Jeffrey"},
		},
		{
			name:  "trailing comma",
			input: `{"name":"Epstein, Jeffrey",}`,
			want:  entity{Name: "Epstein, Jeffrey"},
		},
		{
			name:  "missing endbracket",
			input: `{"name":"Epstein, Jeffrey`,
			want:  entity{Name: "Epstein, Jeffrey"},
		},
		{
			name:  "stringified json object",
			input: `"{\"name\": \"Epstein, Jeffrey\"}"`,
			want:  entity{Name: "Epstein, Jeffrey"},
		},
		{
			name:  "surrounding whitespace",
			input: "\n  {\"name\":\"Epstein, Jeffrey\"}  \n",
			want:  entity{Name: "Epstein, Jeffrey"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got entity
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Name != tc.want.Name || got.ID != tc.want.ID {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestGenerateSchema_NoAdditionalProperties(t *testing.T) {
	schema := GenerateSchema(&BiographyResponse{})
	if schema == nil {
		t.Fatal("GenerateSchema() returned nil")
	}
}

func TestBatchByTokenBudget(t *testing.T) {
	lines := []string{
		"- id=epstein_jeffrey name=\"Epstein, Jeffrey\"",
		"- id=maxwell_ghislaine name=\"Maxwell, Ghislaine\"",
		"- id=clinton_william name=\"Clinton, William\"",
	}

	t.Run("single batch under budget", func(t *testing.T) {
		batches, err := BatchByTokenBudget(lines, 10000)
		if err != nil {
			t.Fatalf("BatchByTokenBudget() error = %v", err)
		}
		if len(batches) != 1 || len(batches[0]) != 3 {
			t.Fatalf("batches = %v, want one batch of three", batches)
		}
	})

	t.Run("tight budget splits", func(t *testing.T) {
		batches, err := BatchByTokenBudget(lines, 1)
		if err != nil {
			t.Fatalf("BatchByTokenBudget() error = %v", err)
		}
		if len(batches) != 3 {
			t.Fatalf("batches = %d, want one per line", len(batches))
		}
		total := 0
		for _, b := range batches {
			total += len(b)
		}
		if total != 3 {
			t.Fatalf("lines across batches = %d, want all 3 preserved", total)
		}
	})

	t.Run("invalid budget rejected", func(t *testing.T) {
		if _, err := BatchByTokenBudget(lines, 0); err == nil {
			t.Fatal("expected error for non-positive budget")
		}
	})

	t.Run("empty input yields no batches", func(t *testing.T) {
		batches, err := BatchByTokenBudget(nil, 100)
		if err != nil {
			t.Fatalf("BatchByTokenBudget() error = %v", err)
		}
		if len(batches) != 0 {
			t.Fatalf("batches = %v, want none", batches)
		}
	})
}
