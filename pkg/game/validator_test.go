package game_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/wordgate/pkg/game"
)

func TestValidate(t *testing.T) {
	answers := map[string]string{"кошка": "Cat"}
	tests := []struct {
		name        string
		transcribed string
		want        bool
	}{
		{name: "lower case", transcribed: "cat", want: true},
		{name: "exact case", transcribed: "Cat", want: true},
		{name: "upper case", transcribed: "CAT", want: true},
		{name: "plural", transcribed: "cats", want: false},
		{name: "trailing space is not trimmed", transcribed: "cat ", want: false},
		{name: "empty", transcribed: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := game.Validate("кошка", answers, tt.transcribed)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.transcribed, got, tt.want)
			}
		})
	}
}

func TestValidate_MissingAnswer(t *testing.T) {
	_, err := game.Validate("собака", map[string]string{"кошка": "cat"}, "dog")
	if !errors.Is(err, game.ErrMissingAnswer) {
		t.Errorf("got %v, want ErrMissingAnswer", err)
	}
}

func TestVocabulary_Validate(t *testing.T) {
	tests := []struct {
		name    string
		vocab   game.Vocabulary
		wantErr error
	}{
		{
			name:  "valid",
			vocab: game.Vocabulary{Words: []string{"дом"}, Answers: map[string]string{"дом": "house"}},
		},
		{
			name:    "empty",
			vocab:   game.Vocabulary{Answers: map[string]string{"дом": "house"}},
			wantErr: game.ErrEmptyVocabulary,
		},
		{
			name:    "missing answer",
			vocab:   game.Vocabulary{Words: []string{"дом", "мама"}, Answers: map[string]string{"дом": "house"}},
			wantErr: game.ErrMissingAnswer,
		},
		{
			name:    "duplicate",
			vocab:   game.Vocabulary{Words: []string{"дом", "дом"}, Answers: map[string]string{"дом": "house"}},
			wantErr: game.ErrDuplicateWord,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vocab.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVocabulary_CloneIsIndependent(t *testing.T) {
	v := game.Vocabulary{Words: []string{"дом"}, Answers: map[string]string{"дом": "house"}}
	c := v.Clone()
	v.Words[0] = "changed"
	v.Answers["дом"] = "home"
	if c.Words[0] != "дом" || c.Answers["дом"] != "house" {
		t.Errorf("clone changed with original: %+v", c)
	}
}
