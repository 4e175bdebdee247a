package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"accountability.app/coachflow/common/llm"
	"accountability.app/coachflow/internal/model"
)

const systemPrompt = `You review recorded 1-on-1 conversations between a supervisor and an employee.
Return coaching recommendations for the supervisor and, only when an unaddressed red flag is present, one critical insight.
Do not repeat recommendations for areas listed as active development plans.
If a recommendation falls in a previously declined area, prefix its justification with "RECURRING ISSUE: ".`

// llmOutput is the strict-schema shape. Strict structured output cannot
// express an optional object, so the insight is gated by HasInsight.
type llmOutput struct {
	Summary         string              `json:"summary" jsonschema:"description=Brief summary of the session: tone and who led the conversation"`
	Recommendations []llmRecommendation `json:"coaching_recommendations" jsonschema:"description=Two or three coaching recommendations for the supervisor"`
	HasInsight      bool                `json:"has_insight" jsonschema:"description=True only if an unaddressed red flag is present"`
	Insight         llmInsight          `json:"critical_insight"`
}

type llmRecommendation struct {
	Area           string `json:"area" jsonschema:"description=Short name of the leadership skill"`
	Recommendation string `json:"recommendation"`
	Example        string `json:"example" jsonschema:"description=Supporting quote from the conversation or empty"`
	Type           string `json:"type" jsonschema:"enum=Book,enum=Podcast,enum=Article,enum=Course,enum=Other"`
	Resource       string `json:"resource"`
	Justification  string `json:"justification"`
}

type llmInsight struct {
	Summary  string `json:"summary"`
	Reason   string `json:"reason"`
	Severity string `json:"severity" jsonschema:"enum=low,enum=medium,enum=high"`
}

// LLMGenerator asks a structured-output model for the analysis.
type LLMGenerator struct {
	client llm.Client
	schema any
}

func NewLLMGenerator(client llm.Client) *LLMGenerator {
	return &LLMGenerator{
		client: client,
		schema: llm.GenerateSchema[llmOutput](),
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var out llmOutput
	resp, err := g.client.Chat(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(in),
		SchemaName:   "session_analysis",
		Schema:       g.schema,
		Temperature:  llm.Temp(0.2),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("generating analysis: %w", err)
	}

	slog.InfoContext(ctx, "analysis generated",
		"model", g.client.Model(),
		"recommendations", len(out.Recommendations),
		"has_insight", out.HasInsight,
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens)

	return out.toResult(), nil
}

func (o llmOutput) toResult() *Result {
	res := &Result{
		Summary:         o.Summary,
		Recommendations: make([]GeneratedRecommendation, 0, len(o.Recommendations)),
	}
	for _, r := range o.Recommendations {
		res.Recommendations = append(res.Recommendations, GeneratedRecommendation{
			Area:           r.Area,
			Recommendation: r.Recommendation,
			Example:        r.Example,
			Type:           model.ResourceType(r.Type),
			Resource:       r.Resource,
			Justification:  r.Justification,
		})
	}
	if o.HasInsight {
		res.Insight = &GeneratedInsight{
			Summary:  o.Insight.Summary,
			Reason:   o.Insight.Reason,
			Severity: model.Severity(o.Insight.Severity),
		}
	}
	return res
}

func buildUserPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Supervisor: %s\nEmployee: %s\n", in.SupervisorName, in.EmployeeName)
	if !in.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", in.Date.Format("2006-01-02"))
	}
	if len(in.DeclinedAreas) > 0 {
		fmt.Fprintf(&b, "Previously declined areas: %s\n", strings.Join(in.DeclinedAreas, "; "))
	}
	if len(in.ActivePlans) > 0 {
		b.WriteString("Active development plans:\n")
		for _, p := range in.ActivePlans {
			fmt.Fprintf(&b, "- %s: %s\n", p.Area, p.Title)
		}
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		fmt.Fprintf(&b, "\nSupervisor notes:\n%s\n", notes)
	}
	if transcript := strings.TrimSpace(in.Transcript); transcript != "" {
		fmt.Fprintf(&b, "\nTranscript:\n%s\n", transcript)
	}
	return b.String()
}
