package similarity

import (
	"fmt"
	"strings"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
)

const answerInstructions = `You are a data analyst who can answer questions only based on the context below.
* Answer the question STRICTLY based on the context provided.
* Do not assume or retrieve any information outside of the context.
* Use three sentences maximum and keep the answer concise.
* Think step by step before answering.
* Do not return helpful or extra text or apologies.
* Just return summary to the user. DO NOT start with Here is a summary.
* List the results in rich text format if there are more than one results.
* If the context is empty, just respond None.`

func answerPrompt(question string, passages []core.Passage) ai.Prompt {
	var b strings.Builder
	b.WriteString("<question>\n")
	b.WriteString(question)
	b.WriteString("\n</question>\n\nHere is the context:\n<context>\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, p.Text)
	}
	b.WriteString("</context>")
	return ai.Prompt{System: answerInstructions, User: b.String()}
}

// isEmptyReply reports whether the model declined to answer from the context.
func isEmptyReply(reply string) bool {
	s := strings.TrimSpace(reply)
	s = strings.TrimRight(s, ".")
	return s == "" || strings.EqualFold(s, "none")
}
