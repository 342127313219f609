package openai

import (
	"context"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"portfolioFrontier/internal/finance"
	"portfolioFrontier/internal/portfolio"
)

const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You are a portfolio analyst explaining the output of a Monte Carlo portfolio simulation to a non-specialist.
You receive three portfolios picked from the simulated set: maximum Sharpe ratio, minimum volatility and maximum return.
Each comes with annualized return, annualized volatility, Sharpe ratio (risk-free rate 0) and weights.

Write at most 150 words:
- one sentence per portfolio on what it favours and why
- one sentence on the trade-off between them

Do not recommend trades. Do not invent numbers that are not in the input. Plain text, no tables.`

// Commentator asks a chat model for a short plain-language comparison of an optimal set.
type Commentator struct {
	cli   oa.Client
	model string
}

func NewCommentator(apiKey, model string, opts ...option.RequestOption) *Commentator {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(opts...), model: model}
}

func (c *Commentator) Explain(ctx context.Context, tickers []string, set portfolio.OptimalSet) (string, error) {
	userPrompt := fmt.Sprintf("Assets: %s\n\n%s", strings.Join(tickers, ", "), finance.AllocationMarkdown(set))

	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(userPrompt),
		},
		MaxTokens: oa.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
