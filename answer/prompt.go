package answer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/docqa/core"
)

const contextPromptTemplate = `You are a helpful assistant that answers questions based on the provided context%s. 

Context:
%s

Question: %s

Instructions:
- Answer the question based solely on the provided context
- If the context doesn't contain enough information to answer the question, respond with "` + Refusal + `"
- Be concise and accurate
- When possible, mention which source(s) your answer comes from

Answer:`

const noContextPromptTemplate = `You are a helpful assistant. The user asked a question but no relevant context was found.

Question: %s

Please respond with: "I don't have enough information to answer this question."

Answer:`

// BuildPrompt renders question and the ranked chunks into a grounded prompt.
// With no chunks it returns the no-context fallback prompt.
func BuildPrompt(question string, chunks []core.Chunk, collectionName string) string {
	if len(chunks) == 0 {
		return fmt.Sprintf(noContextPromptTemplate, question)
	}

	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = contextBlock(i+1, c)
	}

	collectionInfo := ""
	if collectionName != "" {
		collectionInfo = fmt.Sprintf(" from the '%s' collection", collectionName)
	}
	return fmt.Sprintf(contextPromptTemplate, collectionInfo, strings.Join(blocks, "\n\n"), question)
}

func contextBlock(n int, c core.Chunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Context %d: %s\n[Source: %s", n, c.Text, c.SourceFilename)
	if len(c.PageNumbers) > 0 {
		sb.WriteString(", Pages: ")
		sb.WriteString(FormatPages(c.PageNumbers))
	}
	if c.ArticleTitle != "" {
		sb.WriteString(", Title: ")
		sb.WriteString(c.ArticleTitle)
	}
	sb.WriteByte(']')
	return sb.String()
}

// FormatPages renders page numbers as "[1, 2]".
func FormatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
