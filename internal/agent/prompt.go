package agent

import (
	"fmt"
	"strings"
)

const promptPrefix = `You are an agent designed to interact with a SQL database.
Given an input question, create a syntactically correct %s query to run, then look at the results of the query and return the answer.
Unless the user specifies a specific number of examples they wish to obtain, always limit your query to at most %d results.
You can order the results by a relevant column to return the most interesting examples in the database.
Never query for all the columns from a specific table, only ask for the relevant columns given the question.
You have access to tools for interacting with the database.
Only use the below tools. Only use the information returned by the below tools to construct your final answer.
You MUST double check your query before executing it. If you get an error while executing a query, rewrite the query and try again.
%s
When the answer is a list of rows, give the query result exactly as the tool returned it as the Final Answer.

If the question does not seem related to the database, just return "I don't know" as the answer.

`

const readOnlyRule = `
DO NOT make any DML statements (INSERT, UPDATE, DELETE, DROP etc.) to the database.
`

const formatInstructions = `Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [%s]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question

`

const promptSuffix = `Begin!

Question: %s
Thought: I should look at the tables in the database to see what I can query.  Then I should query the schema of the most relevant tables.
%s`

// buildPrompt renders the zero-shot prompt with the scratchpad appended.
func buildPrompt(dialect string, topK int, allowWrites bool, tools []Tool, question, scratchpad string) string {
	rule := readOnlyRule
	if allowWrites {
		rule = ""
	}
	names := make([]string, len(tools))
	var desc strings.Builder
	for i, t := range tools {
		names[i] = t.Name
		desc.WriteString(t.Name + ": " + t.Description + "\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, promptPrefix, dialect, topK, rule)
	b.WriteString(desc.String())
	b.WriteString("\n")
	fmt.Fprintf(&b, formatInstructions, strings.Join(names, ", "))
	fmt.Fprintf(&b, promptSuffix, question, scratchpad)
	return b.String()
}
