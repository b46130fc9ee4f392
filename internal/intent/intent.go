// Package intent maps free-form user utterances onto the fixed set of
// deployment intents the agent understands. The language model is asked to
// answer with a single function-call expression; this package owns the prompt
// that frames that request, the parser that reads the reply back into a typed
// value, and the conversation transcript both are built from.
package intent

import (
	"fmt"
	"sort"
	"strings"
)

// Recognized intent names. The dispatcher switches on these; anything else is
// treated as out of scope.
const (
	NameTypeSelection = "user_intent_ec2_type_selection"
	NameConfirm       = "user_intent_confirm"
	NameAutoscaling   = "user_intent_enable_autoscaling"
	NameDisplayConfig = "user_intent_display_current_deployment_config"
	NameModifyEC2     = "user_intent_modify_ec2_config"
	NameModifyScaling = "user_intent_modify_as_config"
	NameOutOfScope    = "user_intent_out_of_scope"
)

// Intent is one classified user request: the intent name plus whatever keyword
// arguments the model extracted. Argument values are int, float64, string,
// bool, []any, or nil. A nil value means the model explicitly marked the
// parameter as not mentioned; consumers must leave the corresponding field
// untouched.
type Intent struct {
	Name string
	Args map[string]any
}

// Call renders the intent back into the call-expression form it was parsed
// from, with arguments in sorted key order. This is what gets recorded as the
// agent's transcript turn, so the model sees its own previous answers in the
// dialect it emits them in.
func (i Intent) Call() string {
	if len(i.Args) == 0 {
		return i.Name + "()"
	}
	keys := make([]string, 0, len(i.Args))
	for k := range i.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatArg(i.Args[k]))
	}
	return i.Name + "(" + strings.Join(parts, ", ") + ")"
}

func formatArg(v any) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return "'" + v + "'"
	case []any:
		elems := make([]string, 0, len(v))
		for _, e := range v {
			elems = append(elems, formatArg(e))
		}
		return "[" + strings.Join(elems, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

// OutOfScope is the fallback produced whenever the model's reply cannot be
// read as a recognizable call. Classification never fails a turn; it degrades
// to this.
func OutOfScope() Intent {
	return Intent{Name: NameOutOfScope, Args: map[string]any{}}
}

// Role tags a transcript turn with its speaker.
type Role string

const (
	RoleUser  Role = "human"
	RoleAgent Role = "bot"
)

// Turn is one entry of the append-only conversation transcript.
type Turn struct {
	Role Role
	Text string
}

// Wire renders the turn in the speaker-tagged form the model was trained on.
func (t Turn) Wire() string {
	return "<" + string(t.Role) + "> " + t.Text + " <" + string(t.Role) + "_end>"
}

// FormatTranscript renders turns as newline-separated speaker-tagged lines.
func FormatTranscript(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Wire())
	}
	return strings.Join(lines, "\n")
}
