package rag

import (
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeFollowups(t *testing.T) {
	tests := []struct {
		name   string
		in     []string
		banned []string
		want   []string
	}{
		{
			name: "trims and strips trailing question marks",
			in:   []string{"  Je peux détailler ?  ", "Je peux comparer??"},
			want: []string{"Je peux détailler", "Je peux comparer"},
		},
		{
			name: "case-insensitive dedup keeps first seen",
			in:   []string{"Je peux détailler", "je peux détailler", "JE PEUX DÉTAILLER"},
			want: []string{"Je peux détailler"},
		},
		{
			name:   "banned words drop the entry",
			in:     []string{"Je peux résumer le chapitre", "Je peux détailler"},
			banned: []string{"résumer"},
			want:   []string{"Je peux détailler"},
		},
		{
			name: "caps at three",
			in:   []string{"un", "deux", "trois", "quatre", "cinq"},
			want: []string{"un", "deux", "trois"},
		},
		{
			name: "empty entries vanish",
			in:   []string{"", "  ", "???", "reste"},
			want: []string{"reste"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeFollowups(tt.in, tt.banned)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeFollowups(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeFollowupsIdempotent(t *testing.T) {
	in := []string{"  Je peux détailler ?", "je peux détailler", "Autre piste", "encore", "trop"}
	banned := []string{"interdit"}

	once := NormalizeFollowups(in, banned)
	twice := NormalizeFollowups(once, banned)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("not idempotent: first %v, second %v", once, twice)
	}
}

func TestStyleAsOffer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Veux-tu comparer les deux approches ?", "Si tu veux, je peux comparer les deux approches"},
		{"Aimerais-tu approfondir la question ?", "Si tu veux, je peux approfondir la question"},
		{"Souhaites-tu un exemple concret ?", "Si tu veux, je peux te donner un exemple concret"},
		{"Veux-tu la liste des refuges ?", "Si tu veux, je peux te donner la liste des refuges"},
		{"As-tu besoin de précisions ?", "Si tu veux, je peux t'en dire plus"},
		{"Veux-tu que je détaille les étapes ?", "Si tu veux, je peux t'en dire plus"},
		{"Si tu veux, je peux comparer les deux", "Si tu veux, je peux comparer les deux"},
		{"Je peux approfondir le second point", "Je peux approfondir le second point"},
		{"Veux-tu ?", "Si tu veux, je peux t'en dire plus"},
	}

	for _, tt := range tests {
		if got := styleAsOffer(tt.in); got != tt.want {
			t.Errorf("styleAsOffer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripTrailingQuestion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "trailing question removed",
			in:   "Voici la réponse. Veux-tu en savoir plus ?",
			want: "Voici la réponse.",
		},
		{
			name: "no question untouched",
			in:   "Voici la réponse complète.",
			want: "Voici la réponse complète.",
		},
		{
			name: "whole answer is a question kept",
			in:   "Peux-tu préciser ta question ?",
			want: "Peux-tu préciser ta question ?",
		},
		{
			name: "question after newline removed",
			in:   "Première ligne.\nSeconde ligne.\nEt si on comparait ?",
			want: "Première ligne.\nSeconde ligne.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripTrailingQuestion(tt.in); got != tt.want {
				t.Errorf("stripTrailingQuestion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFinishAnswer(t *testing.T) {
	e := &engine{cfg: Config{Theme: "l'histoire de France"}}

	t.Run("appends opener when absent", func(t *testing.T) {
		answer, followups := e.finishAnswer("La Révolution débute en 1789.", []string{"Je peux décrire la prise de la Bastille"})
		if !strings.HasSuffix(answer, "Je peux décrire la prise de la Bastille.") {
			t.Errorf("answer missing appended opener: %q", answer)
		}
		if len(followups) != 1 || followups[0] != "Je peux décrire la prise de la Bastille" {
			t.Errorf("followups = %v", followups)
		}
	})

	t.Run("does not duplicate opener already present", func(t *testing.T) {
		base := "La Révolution débute en 1789.\n\nJe peux décrire la prise de la Bastille."
		answer, _ := e.finishAnswer(base, []string{"Je peux décrire la prise de la Bastille"})
		if n := strings.Count(strings.ToLower(answer), "je peux décrire la prise de la bastille"); n != 1 {
			t.Errorf("opener appears %d times in %q", n, answer)
		}
	})

	t.Run("empty followups get themed default", func(t *testing.T) {
		answer, followups := e.finishAnswer("Réponse brève.", nil)
		want := "Si tu veux, je peux t'en dire plus sur l'histoire de France"
		if len(followups) != 1 || followups[0] != want {
			t.Errorf("followups = %v, want [%q]", followups, want)
		}
		if !strings.Contains(answer, want) {
			t.Errorf("answer missing default opener: %q", answer)
		}
	})

	t.Run("trailing question stripped before append", func(t *testing.T) {
		answer, _ := e.finishAnswer("La réponse tient ici. Veux-tu plus de détails ?", []string{"Je peux donner un exemple"})
		if strings.Contains(answer, "Veux-tu plus de détails") {
			t.Errorf("trailing question survived: %q", answer)
		}
	})
}
