package rag

import (
	"context"
	"fmt"
	"strings"

	"fsi_kpi/pkg/core/agent"
	"fsi_kpi/pkg/core/prompt"
	"fsi_kpi/pkg/core/utils"
)

// QA answers free-form questions over the indexed statements.
type QA struct {
	Embedder Embedder
	Index    Index
	Prompter Prompter
	K        int     // default 10
	FetchK   int     // default 50
	Lambda   float64 // MMR trade-off, default 0.5
}

// Answer is the model's reply as markdown and rendered HTML.
type Answer struct {
	Text    string   `json:"text"`
	HTML    string   `json:"html"`
	Sources []string `json:"sources"`
}

// Ask retrieves diverse context with MMR and asks the qa provider at
// temperature 0.
func (q *QA) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	k, fetchK, lambda := q.K, q.FetchK, q.Lambda
	if k <= 0 {
		k = 10
	}
	if fetchK < k {
		fetchK = max(50, k)
	}
	if lambda <= 0 || lambda > 1 {
		lambda = 0.5
	}

	vec, err := embedOne(ctx, q.Embedder, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	hits, err := q.Index.SearchMMR(ctx, vec, k, fetchK, lambda)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	texts := make([]string, 0, len(hits))
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Text)
		ids = append(ids, h.ID)
	}

	system, user, err := prompt.Get().Render(prompt.QAAnalyst, prompt.Vars{
		"Context":  strings.Join(texts, "\n\n"),
		"Question": question,
	})
	if err != nil {
		return nil, err
	}
	raw, err := q.Prompter.ExecutePrompt(ctx, agent.TaskQA, user, system,
		map[string]interface{}{"temperature": 0.0})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	text := utils.CleanMarkdown(raw)
	html, err := utils.RenderHTML(text)
	if err != nil {
		return nil, err
	}
	return &Answer{Text: text, HTML: html, Sources: ids}, nil
}
