package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "lowercases and splits on punctuation",
			input: "The Claimant's INVOICE-2847 was unpaid.",
			want:  []string{"claimant", "invoice", "2847", "unpaid"},
		},
		{
			name:  "drops stop words and short terms",
			input: "the and of at it is a settlement",
			want:  []string{"settlement"},
		},
		{
			name:  "digits survive as terms",
			input: "clause 14 refers to section 250000",
			want:  []string{"clause", "refers", "section", "250000"},
		},
		{
			name:  "non-ascii letters are boundaries",
			input: "café résumé",
			want:  []string{"caf", "sum"},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "only punctuation",
			input: "... --- !!!",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"the", "would", "shall", "while"} {
		if !IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = false, want true", w)
		}
	}
	for _, w := range []string{"settlement", "invoice", "witness"} {
		if IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = true, want false", w)
		}
	}
}
