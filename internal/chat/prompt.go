// Package chat answers questions grounded in retrieved travel content.
package chat

import (
	"fmt"
	"strings"

	"github.com/hyperjump/annai/internal/models"
)

// systemInstructions constrain the model to the retrieved context. The
// answer must not embed raw URLs; sources travel separately in the response.
const systemInstructions = `You are a helpful travel assistant. Answer the question using ONLY the context below.
If the context does not contain the answer, say you don't have that information.
Do not include URLs in your answer. Be concise and factual.`

// BuildPrompt renders the retrieved chunks into a grounded prompt, grouping
// consecutive chunks under their source heading.
func BuildPrompt(question string, rc *models.RetrievedContext) string {
	var b strings.Builder
	b.WriteString(systemInstructions)
	b.WriteString("\n\nContext:\n")

	lastSource := ""
	for _, chunk := range rc.Chunks {
		source := fmt.Sprintf("Source: %s (%s)", chunk.Title, chunk.URL)
		if source != lastSource {
			b.WriteString("\n")
			b.WriteString(source)
			b.WriteString("\n")
			lastSource = source
		}
		b.WriteString(chunk.Text)
		b.WriteString("\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
