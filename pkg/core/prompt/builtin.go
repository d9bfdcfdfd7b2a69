package prompt

func builtins() []*PromptTemplate {
	return []*PromptTemplate{
		{
			ID:          QAAnalyst,
			Name:        "Financial analyst Q&A",
			Category:    "qa",
			Description: "Answers a question from retrieved statement chunks.",
			UserPromptTmpl: `You are a financial analyst assistant. Use the following financial data to answer the question.
Be concise, and if the information isn't available, say so.

Context: {{.Context}}
Question: {{.Question}}
Answer:
`,
			Variables: []PromptVariable{
				{Name: "Context", Description: "retrieved chunks, blank-line separated", Required: true},
				{Name: "Question", Required: true},
			},
			Version: "1",
		},
		{
			ID:          ExtractionLineItem,
			Name:        "Line item extraction",
			Category:    "extraction",
			Description: "Reads FY2024 and FY2023 amounts of one line item out of statement excerpts.",
			SystemPrompt: `You extract numbers from financial statements.
Reply with one JSON object {"fy_2024": <number or null>, "fy_2023": <number or null>} and nothing else.
Use null when a year is not stated. Do not convert units.`,
			UserPromptTmpl: "Company: {{.Company}}\nLine item: {{.Item}}\n\nExcerpts:\n{{range .Excerpts}}{{.}}\n---\n{{end}}",
			Variables: []PromptVariable{
				{Name: "Company", Required: true},
				{Name: "Item", Description: "canonical line item name", Required: true},
				{Name: "Excerpts", Description: "retrieved chunk texts", Required: true},
			},
			Version: "1",
		},
	}
}
