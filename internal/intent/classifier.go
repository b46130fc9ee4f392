package intent

import (
	"context"

	"github.com/shipmate-cli/shipmate/internal/logging"
)

// Generator is the opaque language-model call: prompt text in, generated text
// out. Transport failures surface as errors and are fatal to the session;
// unusable generations are handled here instead.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier turns a user utterance plus conversation history into one of the
// recognized intents.
type Classifier struct {
	gen Generator
}

func NewClassifier(gen Generator) *Classifier {
	return &Classifier{gen: gen}
}

// Classify sends the catalog-framed prompt for the given utterance. The
// transcript is expected to already contain the utterance as its final turn;
// it is rendered as history with that final turn dropped and the utterance
// presented separately as the current query. Any reply that does not parse as
// a single recognized call degrades to the out-of-scope intent; only the
// model call itself can fail.
func (c *Classifier) Classify(ctx context.Context, utterance string, transcript []Turn) (Intent, error) {
	history := transcript
	if len(history) > 0 {
		history = history[:len(history)-1]
	}

	logging.Info("query sent for function call generation: %s", utterance)

	reply, err := c.gen.Generate(ctx, BuildPrompt(utterance, history))
	if err != nil {
		return Intent{}, err
	}
	logging.Info("function call response string: %s", reply)

	parsed := c.toIntent(reply)
	logging.Info("parsed function call: %s args=%v", parsed.Name, parsed.Args)
	return parsed, nil
}

// Reflect re-classifies the utterance over the entire transcript, including
// the agent's just-recorded classification, so the model can second-guess the
// first pass. Its result replaces the first classification outright.
func (c *Classifier) Reflect(ctx context.Context, utterance string, transcript []Turn) (Intent, error) {
	logging.Info("query sent for reflection: %s", utterance)

	reply, err := c.gen.Generate(ctx, BuildPrompt(utterance, transcript))
	if err != nil {
		return Intent{}, err
	}
	logging.Info("reflection response string: %s", reply)

	parsed := c.toIntent(reply)
	logging.Info("parsed reflection call: %s args=%v", parsed.Name, parsed.Args)
	return parsed, nil
}

func (c *Classifier) toIntent(reply string) Intent {
	name, args, ok := ParseCall(reply)
	if !ok {
		logging.Info("model reply not a single parseable call, treating as out of scope")
		return OutOfScope()
	}
	return Intent{Name: name, Args: args}
}
