package agent

import (
	"regexp"
	"strings"
)

const (
	finalAnswerPrefix = "Final Answer:"
	observationStop   = "\nObservation:"
)

var actionRe = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)

// step is one parsed model turn: either an action or a final answer.
type step struct {
	Action      string
	ActionInput string
	Final       string
	IsFinal     bool
	Log         string
}

// parseError is fed back to the model as the observation.
type parseError struct {
	observation string
}

func (e *parseError) Error() string { return e.observation }

const (
	missingAction      = "Invalid Format: Missing 'Action:' after 'Thought:'"
	missingActionInput = "Invalid Format: Missing 'Action Input:' after 'Action:'"
	bothActionAndFinal = "Parsing LLM output produced both a final answer and a parse-able action. Give either an Action or a Final Answer, not both."
)

var actionOnlyRe = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)`)

// parseOutput reads the model's text in the Thought/Action/Action Input or
// Final Answer format.
func parseOutput(text string) (step, error) {
	hasFinal := strings.Contains(text, finalAnswerPrefix)
	if m := actionRe.FindStringSubmatch(text); m != nil {
		if hasFinal {
			return step{}, &parseError{observation: bothActionAndFinal}
		}
		input := strings.Trim(strings.TrimSpace(m[2]), `"`)
		return step{
			Action:      strings.TrimSpace(m[1]),
			ActionInput: input,
			Log:         text,
		}, nil
	}
	if hasFinal {
		parts := strings.Split(text, finalAnswerPrefix)
		return step{Final: strings.TrimSpace(parts[len(parts)-1]), IsFinal: true, Log: text}, nil
	}
	if !actionOnlyRe.MatchString(text) {
		return step{}, &parseError{observation: missingAction}
	}
	return step{}, &parseError{observation: missingActionInput}
}

// truncateAtStop cuts text at the first stop sequence; servers may ignore it.
func truncateAtStop(text string) string {
	if i := strings.Index(text, observationStop); i >= 0 {
		return text[:i]
	}
	return text
}
