// Package agent owns the dialogue session: the deployment configs being
// negotiated, the conversation transcript, and the dispatch from classified
// intents to state transitions. All other components are collaborators behind
// small interfaces so the session logic tests without a model or a cloud.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shipmate-cli/shipmate/internal/catalog"
	"github.com/shipmate-cli/shipmate/internal/deployment"
	"github.com/shipmate-cli/shipmate/internal/intent"
	"github.com/shipmate-cli/shipmate/internal/logging"
)

const (
	msgDidNotUnderstand = "Sorry, I didn't understand that. Please try again."
	msgHowDoesThisLook  = "How does this look?"
	msgWhatNext         = "What would you like to do next?"
	msgDeploying        = "Deploying the current configuration."
)

// UserIO is the terminal-facing collaborator.
type UserIO interface {
	PromptForRequirements() (string, error)
	GetUserResponse(question string) (string, error)
	LogToUser(message string)
	DisplayConfig(title string, order []string, fields map[string]any)
}

// Classifier maps an utterance plus transcript onto an intent. Reflect is the
// optional second pass over the full transcript; its result replaces the
// first classification.
type Classifier interface {
	Classify(ctx context.Context, utterance string, transcript []intent.Turn) (intent.Intent, error)
	Reflect(ctx context.Context, utterance string, transcript []intent.Turn) (intent.Intent, error)
}

// Finder resolves instance-type requirements against the pricing catalog.
type Finder interface {
	FindBestInstance(ctx context.Context, cpu *int, ram *float64) (catalog.Result, error)
}

// Provisioner executes deployments. Deploy reports its outcome through the
// process log rather than an error return, so a failed launch never kills the
// conversation.
type Provisioner interface {
	EnsureNetwork(ctx context.Context) error
	SubnetID() string
	Deploy(ctx context.Context, inst deployment.InstanceConfig, scaling deployment.ScalingGroupConfig, autoscalingEnabled bool)
	WhoAmI(ctx context.Context) (string, error)
}

// Agent drives one single-user, turn-by-turn deployment session.
type Agent struct {
	io         UserIO
	classifier Classifier
	finder     Finder
	prov       Provisioner
	reflect    bool

	instCfg            *deployment.InstanceConfig
	scalCfg            *deployment.ScalingGroupConfig
	autoscalingEnabled bool
	transcript         []intent.Turn
}

// New creates a session with default configs. When reflect is set, every
// classification gets a second pass over the full transcript.
func New(io UserIO, classifier Classifier, finder Finder, prov Provisioner, reflect bool) *Agent {
	return &Agent{
		io:         io,
		classifier: classifier,
		finder:     finder,
		prov:       prov,
		reflect:    reflect,
		instCfg:    deployment.NewInstanceConfig(),
		scalCfg:    deployment.NewScalingGroupConfig(),
	}
}

// Run is the turn loop. It ends quietly when the input side signals
// end-of-input; any other error shows a single top-level "Error: ..." message
// and aborts the session with no partial-turn recovery.
func (a *Agent) Run(ctx context.Context) error {
	a.preflight(ctx)

	utterance, err := a.io.PromptForRequirements()
	for {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			a.io.LogToUser("Error: " + err.Error())
			return err
		}
		question, herr := a.handleTurn(ctx, utterance)
		if herr != nil {
			a.io.LogToUser("Error: " + herr.Error())
			return herr
		}
		utterance, err = a.io.GetUserResponse(question)
	}
}

// preflight resolves the caller identity and prepares the network so the
// scaling config can point at a real subnet. Failures here are logged and the
// session continues; deploy repeats the network setup anyway.
func (a *Agent) preflight(ctx context.Context) {
	if arn, err := a.prov.WhoAmI(ctx); err != nil {
		logging.Error("caller identity preflight failed: %v", err)
	} else {
		logging.Info("session opened as %s", arn)
	}
	if err := a.prov.EnsureNetwork(ctx); err != nil {
		logging.Error("network setup failed: %v", err)
		return
	}
	if id := a.prov.SubnetID(); id != "" {
		a.scalCfg.Apply(map[string]any{"VPCZoneIdentifier": id}, func(msg string) {
			logging.Error("seeding scaling config: %s", msg)
		})
	}
}

// handleTurn appends the utterance, classifies it (reflecting if enabled),
// records the classification as the agent's transcript turn, and dispatches.
// It returns the question that solicits the next utterance.
func (a *Agent) handleTurn(ctx context.Context, utterance string) (string, error) {
	a.transcript = append(a.transcript, intent.Turn{Role: intent.RoleUser, Text: utterance})

	it, err := a.classifier.Classify(ctx, utterance, a.transcript)
	if err != nil {
		return "", fmt.Errorf("classification failed: %w", err)
	}
	a.transcript = append(a.transcript, intent.Turn{Role: intent.RoleAgent, Text: it.Call()})

	if a.reflect {
		revised, err := a.classifier.Reflect(ctx, utterance, a.transcript)
		if err != nil {
			return "", fmt.Errorf("reflection failed: %w", err)
		}
		a.transcript[len(a.transcript)-1] = intent.Turn{Role: intent.RoleAgent, Text: revised.Call()}
		it = revised
	}

	return a.HandleIntent(ctx, it)
}

// HandleIntent routes one classified intent to its state transition. Intents
// are independent; confirm deploys whatever configuration currently exists.
func (a *Agent) HandleIntent(ctx context.Context, it intent.Intent) (string, error) {
	logging.Info("%s called with arguments %v", it.Name, it.Args)

	switch it.Name {
	case intent.NameTypeSelection:
		res, err := a.finder.FindBestInstance(ctx, intArg(it.Args, "cpu"), floatArg(it.Args, "ram"))
		if err != nil {
			return "", err
		}
		if !res.Found {
			a.io.LogToUser(res.Message)
			return msgWhatNext, nil
		}
		a.instCfg.Apply(map[string]any{"InstanceType": res.APIName}, a.io.LogToUser)
		a.displayConfigs()
		return msgHowDoesThisLook, nil

	case intent.NameConfirm:
		a.io.LogToUser(msgDeploying)
		a.prov.Deploy(ctx, *a.instCfg, *a.scalCfg, a.autoscalingEnabled)
		return msgWhatNext, nil

	case intent.NameAutoscaling:
		a.autoscalingEnabled = true
		a.displayConfigs()
		return msgHowDoesThisLook, nil

	case intent.NameDisplayConfig:
		a.displayConfigs()
		return msgHowDoesThisLook, nil

	case intent.NameModifyEC2:
		a.instCfg.Apply(it.Args, a.io.LogToUser)
		a.displayConfigs()
		return msgHowDoesThisLook, nil

	case intent.NameModifyScaling:
		a.scalCfg.Apply(it.Args, a.io.LogToUser)
		a.displayConfigs()
		return msgHowDoesThisLook, nil

	default:
		a.io.LogToUser(msgDidNotUnderstand)
		return msgWhatNext, nil
	}
}

// displayConfigs shows the instance config, and the scaling config once
// autoscaling has been enabled.
func (a *Agent) displayConfigs() {
	a.io.DisplayConfig("Current EC2 configuration", deployment.InstanceFieldOrder, a.instCfg.Fields())
	if a.autoscalingEnabled {
		a.io.DisplayConfig("Current autoscaling configuration", deployment.ScalingFieldOrder, a.scalCfg.Fields())
	}
}

// intArg reads an optional integer argument. The parser yields ints for
// integer literals, but a model may phrase a count as a float.
func intArg(args map[string]any, key string) *int {
	switch n := args[key].(type) {
	case int:
		return &n
	case float64:
		i := int(n)
		return &i
	}
	return nil
}

func floatArg(args map[string]any, key string) *float64 {
	switch n := args[key].(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}
