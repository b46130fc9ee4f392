package intent

import (
	"reflect"
	"testing"
)

func TestParseCall_Valid(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantArgs map[string]any
	}{
		{
			name:     "mixed literal types",
			input:    "foo(a=1, b=2.5, c='x')",
			wantName: "foo",
			wantArgs: map[string]any{"a": 1, "b": 2.5, "c": "x"},
		},
		{
			name:     "no arguments",
			input:    "user_intent_confirm()",
			wantName: "user_intent_confirm",
			wantArgs: map[string]any{},
		},
		{
			name:     "attribute path uses last segment",
			input:    "agent.user_intent_confirm()",
			wantName: "user_intent_confirm",
			wantArgs: map[string]any{},
		},
		{
			name:     "none maps to unset",
			input:    "user_intent_modify_ec2_config(MinCount=3, MaxCount=None)",
			wantName: "user_intent_modify_ec2_config",
			wantArgs: map[string]any{"MinCount": 3, "MaxCount": nil},
		},
		{
			name:     "booleans both casings",
			input:    "f(a=True, b=false)",
			wantName: "f",
			wantArgs: map[string]any{"a": true, "b": false},
		},
		{
			name:     "negative and double quoted",
			input:    `f(n=-4, s="t3.large")`,
			wantName: "f",
			wantArgs: map[string]any{"n": -4, "s": "t3.large"},
		},
		{
			name:     "string list",
			input:    "user_intent_modify_as_config(AvailabilityZones=['us-east-1a', 'us-east-1b'])",
			wantName: "user_intent_modify_as_config",
			wantArgs: map[string]any{"AvailabilityZones": []any{"us-east-1a", "us-east-1b"}},
		},
		{
			name:     "unparseable value kept as source text",
			input:    "f(x=b(), y=2)",
			wantName: "f",
			wantArgs: map[string]any{"x": "b()", "y": 2},
		},
		{
			name:     "bare identifier value kept as source text",
			input:    "f(zone=us_east_1a)",
			wantName: "f",
			wantArgs: map[string]any{"zone": "us_east_1a"},
		},
		{
			name:     "surrounding whitespace",
			input:    "  foo( a = 1 )  ",
			wantName: "foo",
			wantArgs: map[string]any{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args, ok := ParseCall(tt.input)
			if !ok {
				t.Fatalf("ParseCall(%q) returned ok=false", tt.input)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %#v, want %#v", args, tt.wantArgs)
			}
		})
	}
}

func TestParseCall_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a call", "not a call"},
		{"multiple statements", "a(); b()"},
		{"positional argument", "a(b())"},
		{"positional literal", "a(5)"},
		{"empty input", ""},
		{"only whitespace", "   "},
		{"missing close paren", "foo(a=1"},
		{"leading junk", "Sure! foo(a=1)"},
		{"trailing junk", "foo(a=1) trailing"},
		{"non-identifier name", "123(a=1)"},
		{"dangling dot in name", "foo.(a=1)"},
		{"unterminated string", "foo(a='x)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := ParseCall(tt.input); ok {
				t.Errorf("ParseCall(%q) = ok, want failure", tt.input)
			}
		})
	}
}

func TestParseCall_DuplicateKeyLastWins(t *testing.T) {
	_, args, ok := ParseCall("f(a=1, a=2)")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if args["a"] != 2 {
		t.Errorf("a = %v, want 2", args["a"])
	}
}
