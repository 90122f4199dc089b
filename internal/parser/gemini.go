package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"qmoney/internal/core"
)

// Gemini calls the Gemini API in JSON response mode, constrained by
// resultSchema.
type Gemini struct {
	client *genai.Client
	model  string
	now    func() time.Time
}

// NewGemini builds a client authenticated with apiKey. A non-empty baseURL
// replaces the public endpoint, which lets tests use a local server.
func NewGemini(ctx context.Context, apiKey, model, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, now: time.Now}, nil
}

// resultSchema mirrors the fields of Result. Date is optional so the model
// may leave it out and the caller falls back to today.
func resultSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"amount": {Type: genai.TypeNumber, Description: "交易的具体金额数字。"},
			"category": {
				Type:        genai.TypeString,
				Description: "从以下类别中选择最合适的一个: " + strings.Join(core.CategoryNames(), ", ") + "。",
			},
			"type": {
				Type:        genai.TypeString,
				Enum:        []string{string(core.Expense), string(core.Income)},
				Description: "资金流向：支出(expense) 或 收入(income)。",
			},
			"note":  {Type: genai.TypeString, Description: "一段简短可爱的中文备注，描述这笔交易。"},
			"date":  {Type: genai.TypeString, Description: "YYYY-MM-DD 格式的日期。如果用户没说，默认为今天。"},
			"emoji": {Type: genai.TypeString, Description: "一个代表这笔交易的Emoji表情。"},
		},
		Required: []string{"amount", "category", "type", "note", "emoji"},
	}
}

func (g *Gemini) Parse(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    resultSchema(),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(Prompt(text, core.FormatDate(g.now()))), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}

	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && !p.Thought {
				b.WriteString(p.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return Decode(b.String())
}
