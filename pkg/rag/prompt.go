package rag

import "github.com/tmc/langchaingo/prompts"

const qaTemplate = `You are a helpful real estate research assistant. Use the provided context to answer questions accurately.
If the answer is not in the context, say "` + FallbackAnswer + `"
After the answer, write "Sources:" on its own line followed by the source URLs you used, one per line.

Context:
{{.summaries}}

Question: {{.question}}

Answer:`

const documentTemplate = "Content: {{.page_content}}\nSource: {{.source}}"

func newQAPrompt() prompts.PromptTemplate {
	return prompts.NewPromptTemplate(qaTemplate, []string{"summaries", "question"})
}

func newDocumentPrompt() prompts.PromptTemplate {
	return prompts.NewPromptTemplate(documentTemplate, []string{"page_content", "source"})
}
