package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/groupweaver/internal/apperror"
	"github.com/matheus3301/groupweaver/internal/model"
	"go.uber.org/zap"
)

// Provider names the upstream text service in status responses.
const Provider = "anthropic"

// Analysis characterizes a set of common members.
type Analysis struct {
	Analysis      string `json:"analysis"`
	SuggestedName string `json:"suggestedName"`
	Confidence    string `json:"confidence"`
}

// NameSuggestions proposes names for a list.
type NameSuggestions struct {
	Suggestions []string `json:"suggestions"`
	BestPick    string   `json:"bestPick"`
	Reasoning   string   `json:"reasoning"`
}

// Insights summarizes patterns across lists.
type Insights struct {
	Insights       []string `json:"insights"`
	Recommendation string   `json:"recommendation"`
}

func defaultNames() NameSuggestions {
	return NameSuggestions{
		Suggestions: []string{"New List", "My Contacts", "Broadcast Group"},
		BestPick:    "New List",
		Reasoning:   "Default suggestions",
	}
}

func defaultInsights() Insights {
	return Insights{
		Insights:       []string{"Lists are well organized"},
		Recommendation: "Continue current approach",
	}
}

// Analyst runs the optional AI features. A nil completer means the service is
// not configured and every feature fails with apperror.ErrServiceNotConfigured.
type Analyst struct {
	completer Completer
	model     string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAnalyst creates an analyst. completer may be nil.
func NewAnalyst(completer Completer, model string, timeout time.Duration, logger *zap.Logger) *Analyst {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyst{completer: completer, model: model, timeout: timeout, logger: logger}
}

// Configured reports whether the upstream service can be called.
func (a *Analyst) Configured() bool {
	return a.completer != nil
}

// Model returns the configured model name.
func (a *Analyst) Model() string {
	return a.model
}

// AnalyzeCommonMembers asks what the common members have in common.
func (a *Analyst) AnalyzeCommonMembers(ctx context.Context, lists []model.BroadcastList, common []model.Contact) (Analysis, error) {
	text, err := a.complete(ctx, analysisPrompt(lists, common))
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze common members: %w", err)
	}
	var out Analysis
	if !a.decode(text, &out) {
		return Analysis{Analysis: text, SuggestedName: "Common Members", Confidence: "medium"}, nil
	}
	return out, nil
}

// SuggestListName proposes names for a list holding members.
func (a *Analyst) SuggestListName(ctx context.Context, members []model.Contact, existing []string) (NameSuggestions, error) {
	text, err := a.complete(ctx, namePrompt(members, existing))
	if err != nil {
		return NameSuggestions{}, fmt.Errorf("suggest list name: %w", err)
	}
	var out NameSuggestions
	if !a.decode(text, &out) {
		return defaultNames(), nil
	}
	return out, nil
}

// Insights comments on how lists are organized.
func (a *Analyst) Insights(ctx context.Context, lists []model.BroadcastList) (Insights, error) {
	text, err := a.complete(ctx, insightsPrompt(lists))
	if err != nil {
		return Insights{}, fmt.Errorf("insights: %w", err)
	}
	var out Insights
	if !a.decode(text, &out) {
		return defaultInsights(), nil
	}
	return out, nil
}

func (a *Analyst) complete(ctx context.Context, prompt string) (string, error) {
	if a.completer == nil {
		return "", apperror.ErrServiceNotConfigured
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.completer.Complete(ctx, prompt)
}

// decode parses the JSON object embedded in text into v. It reports false,
// logging the malformed reply, when there is nothing usable.
func (a *Analyst) decode(text string, v any) bool {
	cause := fmt.Errorf("%w: no JSON object in reply", apperror.ErrMalformedUpstreamResponse)
	if obj, ok := extractObject(text); ok {
		err := json.Unmarshal([]byte(obj), v)
		if err == nil {
			return true
		}
		cause = fmt.Errorf("%w: %w", apperror.ErrMalformedUpstreamResponse, err)
	}
	a.logger.Warn("falling back to default AI payload", zap.Error(cause))
	return false
}

// extractObject returns the text between the first '{' and the last '}'.
func extractObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}
