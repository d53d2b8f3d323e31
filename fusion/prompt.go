package fusion

import (
	"fmt"
	"strings"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
)

const fusionSystem = `You are a helpful question-answering agent. Your task is to analyze and synthesize information from two sources: the top results from a similarity search (unstructured information) and relevant data from a graph database (structured information).`

const noEvidence = "(no relevant information was found in this source)"

func fusionPrompt(question string, structured, similarity *core.RetrievalResult, history []core.Turn) ai.Prompt {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.Question, turn.Answer)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Given the user's query: %s, provide a meaningful and efficient answer based on the insights derived from the following data:\n\n", question)
	fmt.Fprintf(&b, "Unstructured information: %s\n", evidence(similarity))
	fmt.Fprintf(&b, "Structured information: %s\n\n", evidence(structured))
	b.WriteString("Your response should be clear, concise, and directly address the user's question.\n")
	b.WriteString("If one source has no relevant information, answer from the other and do not speculate.\n")
	b.WriteString("If the information from both sources conflicts, note the discrepancy and state what each source says rather than choosing one.")
	return ai.Prompt{System: fusionSystem, User: b.String()}
}

func evidence(r *core.RetrievalResult) string {
	if !r.HasEvidence() {
		return noEvidence
	}
	return r.Answer
}
