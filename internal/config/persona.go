package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RetrievalTuning configures the adaptive similarity threshold and token budgets.
type RetrievalTuning struct {
	BaseThreshold     float64 `yaml:"base_threshold"`
	FloorThreshold    float64 `yaml:"floor_threshold"`
	CapThreshold      float64 `yaml:"cap_threshold"`
	FallbackScore     float64 `yaml:"fallback_score"`
	MaxChunks         int     `yaml:"max_chunks"`
	MaxTokensPerChunk int     `yaml:"max_tokens_per_chunk"`
	MaxContextTokens  int     `yaml:"max_context_tokens"`
	HardTokenCeiling  int     `yaml:"hard_token_ceiling"`
}

// GenerationTuning configures the primary and fallback completion calls.
type GenerationTuning struct {
	Temperature         float64 `yaml:"temperature"`
	MaxTokens           int     `yaml:"max_tokens"`
	FallbackTemperature float64 `yaml:"fallback_temperature"`
	FallbackMaxTokens   int     `yaml:"fallback_max_tokens"`
}

// Persona holds the domain theming, user-facing texts and tuning knobs for the
// question pipeline. Everything here is data: swapping the file re-themes the
// assistant without touching code.
type Persona struct {
	// Theme is the domain the assistant answers about, used in prompts and
	// redirect sentences (e.g. "l'histoire de l'aviation").
	Theme string `yaml:"theme"`
	// Welcome is the answer returned for a bare greeting.
	Welcome string `yaml:"welcome"`
	// Redirect is appended to allowed off-topic answers to steer back to the theme.
	Redirect string `yaml:"redirect"`
	// Topics are suggested subjects offered when a question is too vague.
	Topics []string `yaml:"topics"`
	// AllowedTopics gates the off-topic categories the assistant may engage
	// with ("smalltalk", "distance", "math").
	AllowedTopics []string `yaml:"allowed_topics"`
	// BannedFollowupWords drops generated follow-ups that leak the retrieval
	// mechanism to the user.
	BannedFollowupWords []string `yaml:"banned_followup_words"`
	// AnswerWithoutContext answers generally instead of returning the
	// no-results guidance when retrieval comes back empty.
	AnswerWithoutContext bool `yaml:"answer_without_context"`

	Retrieval  RetrievalTuning  `yaml:"retrieval"`
	Generation GenerationTuning `yaml:"generation"`
}

// LoadPersona reads a persona file from the given path. If the file does not
// exist, built-in defaults are returned.
func LoadPersona(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPersona(), nil
		}
		return nil, err
	}
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid persona file %s: %w", path, err)
	}
	applyPersonaDefaults(&p)
	if err := validatePersona(&p); err != nil {
		return nil, fmt.Errorf("invalid persona file %s: %w", path, err)
	}
	return &p, nil
}

// DefaultPersona returns the built-in persona used when no file is configured.
func DefaultPersona() *Persona {
	p := &Persona{
		Theme:    "nos documents",
		Welcome:  "Bonjour ! Je suis ton assistant documentaire. Pose-moi une question et je chercherai la réponse pour toi.",
		Redirect: "Mais je suis surtout là pour parler de nos documents, n'hésite pas !",
		Topics: []string{
			"les grands thèmes disponibles",
			"un sujet précis qui t'intéresse",
		},
		AllowedTopics:       []string{"smalltalk"},
		BannedFollowupWords: defaultBannedWords(),
	}
	applyPersonaDefaults(p)
	return p
}

func defaultBannedWords() []string {
	return []string{"document", "corpus", "fichier", "pdf", "source", "base de données"}
}

func applyPersonaDefaults(p *Persona) {
	if p.Welcome == "" {
		p.Welcome = DefaultPersona().Welcome
	}
	if len(p.BannedFollowupWords) == 0 {
		p.BannedFollowupWords = defaultBannedWords()
	}
	r := &p.Retrieval
	if r.BaseThreshold == 0 {
		r.BaseThreshold = 0.60
	}
	if r.FloorThreshold == 0 {
		r.FloorThreshold = 0.50
	}
	if r.CapThreshold == 0 {
		r.CapThreshold = 0.85
	}
	if r.FallbackScore == 0 {
		r.FallbackScore = 0.30
	}
	if r.MaxChunks == 0 {
		r.MaxChunks = 6
	}
	if r.MaxTokensPerChunk == 0 {
		r.MaxTokensPerChunk = 600
	}
	if r.MaxContextTokens == 0 {
		r.MaxContextTokens = 1800
	}
	if r.HardTokenCeiling == 0 {
		r.HardTokenCeiling = 2400
	}
	g := &p.Generation
	if g.Temperature == 0 {
		g.Temperature = 0.4
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = 700
	}
	if g.FallbackTemperature == 0 {
		g.FallbackTemperature = 0.3
	}
	if g.FallbackMaxTokens == 0 {
		g.FallbackMaxTokens = 350
	}
}

func validatePersona(p *Persona) error {
	r := p.Retrieval
	if r.FloorThreshold > r.BaseThreshold || r.BaseThreshold > r.CapThreshold {
		return fmt.Errorf("thresholds must satisfy floor <= base <= cap, got %.2f/%.2f/%.2f",
			r.FloorThreshold, r.BaseThreshold, r.CapThreshold)
	}
	if r.FallbackScore < 0 || r.FallbackScore > r.BaseThreshold {
		return fmt.Errorf("fallback_score must be in [0, base_threshold], got %.2f", r.FallbackScore)
	}
	if r.MaxChunks < 1 {
		return fmt.Errorf("max_chunks must be at least 1")
	}
	if r.MaxTokensPerChunk < 1 || r.MaxContextTokens < 1 || r.HardTokenCeiling < 1 {
		return fmt.Errorf("token limits must be positive")
	}
	if r.HardTokenCeiling < r.MaxContextTokens {
		return fmt.Errorf("hard_token_ceiling (%d) must not be below max_context_tokens (%d)",
			r.HardTokenCeiling, r.MaxContextTokens)
	}
	for _, topic := range p.AllowedTopics {
		switch topic {
		case "smalltalk", "distance", "math":
		default:
			return fmt.Errorf("unknown allowed topic %q", topic)
		}
	}
	return nil
}
