package structured

import (
	"fmt"
	"strings"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
)

// Example pairs a question with the statement that answers it. Examples are
// shown to the model before the question.
type Example struct {
	Question  string
	Statement string
}

// DefaultExamples returns the statements used for SEC filing graphs.
func DefaultExamples() []Example {
	return []Example{
		{
			Question:  "How many Managers own Companies?",
			Statement: "MATCH (m:Manager)-[:OWNS_STOCK_IN]->(c:Company)\nRETURN count(DISTINCT m)",
		},
		{
			Question:  "How many companies in the filings?",
			Statement: "MATCH (c:Company)\nRETURN count(DISTINCT c)",
		},
		{
			Question: "Which companies are vulnerable to lithium shortage?",
			Statement: "MATCH (co:Company)-[fi]-(f:Form)-[po]-(c:Chunk)\n" +
				"WHERE toLower(c.text) CONTAINS \"lithium\"\n" +
				"RETURN DISTINCT count(c) as chunks, co.name ORDER BY chunks desc",
		},
		{
			Question: "Which companies are in the poultry business?",
			Statement: "MATCH (co:Company)-[fi]-(f:Form)-[po]-(c:Chunk)\n" +
				"WHERE toLower(c.text) CONTAINS \"chicken\"\n" +
				"RETURN DISTINCT count(c) as chunks, co.name ORDER BY chunks desc",
		},
	}
}

const generationInstructions = `Task: Generate a Cypher statement to query a graph database.
Instructions:
Use only the provided relationship types and properties in the schema.
Do not use any other relationship types or properties that are not provided.
Schema:
%s
Note: Do not include any explanations or apologies in your responses.
Do not respond to any questions that might ask anything else than for you to construct a Cypher statement.
Do not include any text except the generated Cypher statement.`

func generationPrompt(graphSchema *core.GraphSchema, examples []Example, question string) ai.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, generationInstructions, graphSchema.String())
	if len(examples) > 0 {
		b.WriteString("\nExamples: Here are a few examples of generated Cypher statements for particular questions:\n")
		for _, ex := range examples {
			fmt.Fprintf(&b, "\n# %s\n%s\n", ex.Question, ex.Statement)
		}
	}
	b.WriteString("\nThe question is:\n")
	b.WriteString(question)
	return ai.Prompt{User: b.String()}
}

const narrationInstructions = `You are an assistant that helps to form nice and human understandable answers.
The information part contains the provided information that you must use to construct an answer.
The provided information is authoritative, you must never doubt it or try to use your internal knowledge to correct it.
Make the answer sound as a response to the question. Do not mention that you based the result on the given information.
If the provided information is empty, say that you don't know the answer.`

func narrationPrompt(question, information string) ai.Prompt {
	return ai.Prompt{
		System: narrationInstructions,
		User:   "Information:\n" + information + "\n\nQuestion: " + question + "\nHelpful Answer:",
	}
}
