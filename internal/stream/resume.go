package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Answer is the user's response to a clarify question. Exactly one of the
// fields should be populated, matching the question's expected type.
type Answer struct {
	// Text holds free text or the chosen enumerated option.
	Text string
	// Bool answers a boolean question.
	Bool *bool
	// FileRefs holds the opaque references returned by a prior evidence
	// upload, for image[] questions.
	FileRefs []string
}

// Yes and No are convenience boolean answers.
func Yes() Answer { v := true; return Answer{Bool: &v} }
func No() Answer  { v := false; return Answer{Bool: &v} }

// Text answers with free text or an enumerated option.
func Text(s string) Answer { return Answer{Text: s} }

// Evidence answers an image[] question with uploaded file references.
func Evidence(refs []string) Answer { return Answer{FileRefs: refs} }

// EncodeAnswer converts an answer into its wire form for the resume request.
//
// Booleans normalize to the literal strings "yes"/"no". image[] questions
// require at least one file reference and encode as a JSON list; calling
// resume for an image[] question without a prior upload is an error.
// Enumerated answers pass through as the literal option string; membership
// in the option set is the presenting layer's responsibility. Free text is
// trimmed; an empty trimmed answer is still submittable.
func EncodeAnswer(expected string, ans Answer) (string, error) {
	switch expected {
	case "boolean":
		if ans.Bool != nil {
			if *ans.Bool {
				return "yes", nil
			}
			return "no", nil
		}
		switch strings.ToLower(strings.TrimSpace(ans.Text)) {
		case "yes", "y", "true", "1":
			return "yes", nil
		case "no", "n", "false", "0":
			return "no", nil
		}
		return "", fmt.Errorf("boolean question needs a yes/no answer, got %q", ans.Text)

	case "image[]", "string[]":
		if len(ans.FileRefs) == 0 {
			return "", ErrNoEvidence
		}
		encoded, err := json.Marshal(ans.FileRefs)
		if err != nil {
			return "", fmt.Errorf("encode file references: %w", err)
		}
		return string(encoded), nil

	default:
		return strings.TrimSpace(ans.Text), nil
	}
}
