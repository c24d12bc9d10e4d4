package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/combos"
)

// ErrMalformedResponse is returned when the model output holds no combo JSON.
var ErrMalformedResponse = errors.New("malformed combo response")

// Generator runs a single generation. *OllamaClient implements it.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// Sampling temperatures for regular and creative requests.
const (
	DefaultTemperature  = 0.4
	CreativeTemperature = 0.9
)

const comboSystemPrompt = `You are a Magic: The Gathering combo expert. Suggest real card combinations that exist in the game.
Respond with JSON only, in the form:
{"combos": [{"cards": ["Card A", "Card B"], "category": "infinite_mana", "type": "infinite|engine|protection|acceleration|win_condition",
"description": "one sentence", "steps": ["step 1", "step 2"], "reliability": "high|medium|low",
"setup_turns": 3, "mana_cost_total": 6, "power_level": 7}]}`

// ComboSuggester asks a language model for combos the local patterns missed.
// It implements combos.Suggester.
type ComboSuggester struct {
	client      Generator
	limiter     *rate.Limiter
	logger      *zap.Logger
	temperature float64
}

// SuggesterOption configures a ComboSuggester.
type SuggesterOption func(*ComboSuggester)

// WithRequestsPerMinute throttles generation calls. Zero or less disables throttling.
func WithRequestsPerMinute(n int) SuggesterOption {
	return func(s *ComboSuggester) {
		if n <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithSuggesterLogger sets the suggester logger.
func WithSuggesterLogger(logger *zap.Logger) SuggesterOption {
	return func(s *ComboSuggester) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTemperature overrides the non-creative sampling temperature.
func WithTemperature(t float64) SuggesterOption {
	return func(s *ComboSuggester) {
		s.temperature = t
	}
}

// NewComboSuggester creates a suggester backed by client.
func NewComboSuggester(client Generator, opts ...SuggesterOption) *ComboSuggester {
	s := &ComboSuggester{
		client:      client,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		logger:      zap.NewNop(),
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SuggestCombos implements combos.Suggester.
func (s *ComboSuggester) SuggestCombos(ctx context.Context, req combos.SuggestionRequest) ([]combos.SuggestedCombo, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limit: %w", err)
	}

	temperature := s.temperature
	if req.CreativeMode {
		temperature = CreativeTemperature
	}

	start := time.Now()
	resp, err := s.client.Generate(ctx, &GenerateRequest{
		System:  comboSystemPrompt,
		Prompt:  BuildComboPrompt(req),
		Format:  "json",
		Options: &GenerateOptions{Temperature: temperature},
	})
	if err != nil {
		return nil, fmt.Errorf("generate combos: %w", err)
	}

	suggestions, err := ParseComboSuggestions(resp.Response)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("combo suggestions generated",
		zap.Int("suggestions", len(suggestions)),
		zap.Bool("creative", req.CreativeMode),
		zap.Duration("elapsed", time.Since(start)))

	return suggestions, nil
}

// BuildComboPrompt renders a suggestion request as a user prompt.
func BuildComboPrompt(req combos.SuggestionRequest) string {
	var sb strings.Builder

	colors := "colorless"
	if normalized := cards.NormalizeColors(req.Colors); len(normalized) > 0 {
		colors = cards.ColorString(normalized)
	}
	fmt.Fprintf(&sb, "Suggest combos for a %s deck", colors)
	if req.Format != "" {
		fmt.Fprintf(&sb, " legal in %s", req.Format)
	}
	sb.WriteString(".\n")

	if req.PowerLevelMin > 0 || req.PowerLevelMax > 0 {
		fmt.Fprintf(&sb, "Power level between %d and %d on a 1-10 scale.\n", max(req.PowerLevelMin, 1), clampPower(req.PowerLevelMax))
	}
	if req.MaxSetupTurns > 0 {
		fmt.Fprintf(&sb, "The combo must be assembled within %d turns.\n", req.MaxSetupTurns)
	}
	if req.MaxCards > 0 {
		fmt.Fprintf(&sb, "Use at most %d cards per combo.\n", req.MaxCards)
	}
	if req.CreativeMode {
		sb.WriteString("Prefer unusual, lesser-known interactions over well-known combos.\n")
	}
	if len(req.Avoid) > 0 {
		sb.WriteString("Do not repeat these combos:\n")
		for _, names := range req.Avoid {
			fmt.Fprintf(&sb, "- %s\n", strings.Join(names, " + "))
		}
	}

	return sb.String()
}

func clampPower(p int) int {
	if p <= 0 || p > 10 {
		return 10
	}
	return p
}

// flexInt accepts a JSON number, a numeric string or null. Fractions are rounded.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		// Unusable values are treated as missing
		return nil
	}
	f.value = int(math.Round(n))
	f.set = true
	return nil
}

func (f flexInt) ptr() *int {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

// rawCombo is the model's record before defaults are applied.
type rawCombo struct {
	Cards         []string `json:"cards"`
	Category      string   `json:"category"`
	Type          string   `json:"type"`
	Description   string   `json:"description"`
	Steps         []string `json:"steps"`
	Reliability   *string  `json:"reliability"`
	SetupTurns    flexInt  `json:"setup_turns"`
	ManaCostTotal flexInt  `json:"mana_cost_total"`
	PowerLevel    flexInt  `json:"power_level"`
}

func (r rawCombo) suggestion() combos.SuggestedCombo {
	return combos.SuggestedCombo{
		Cards:         r.Cards,
		Category:      r.Category,
		Type:          r.Type,
		Description:   r.Description,
		Steps:         r.Steps,
		Reliability:   r.Reliability,
		SetupTurns:    r.SetupTurns.ptr(),
		ManaCostTotal: r.ManaCostTotal.ptr(),
		PowerLevel:    r.PowerLevel.ptr(),
	}
}

// ParseComboSuggestions extracts combo records from model output. It accepts
// an object with a "combos" array or a bare array, optionally inside a
// markdown code fence. Text after the JSON value is ignored.
func ParseComboSuggestions(text string) ([]combos.SuggestedCombo, error) {
	text = stripCodeFence(text)

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, ErrMalformedResponse
	}
	text = text[start:]

	var records []rawCombo
	if text[0] == '[' {
		if err := json.NewDecoder(strings.NewReader(text)).Decode(&records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	} else {
		var wrapper struct {
			Combos []rawCombo `json:"combos"`
		}
		if err := json.NewDecoder(strings.NewReader(text)).Decode(&wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		records = wrapper.Combos
	}

	out := make([]combos.SuggestedCombo, 0, len(records))
	for _, r := range records {
		out = append(out, r.suggestion())
	}
	return out, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}
