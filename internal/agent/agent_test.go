package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shipmate-cli/shipmate/internal/catalog"
	"github.com/shipmate-cli/shipmate/internal/deployment"
	"github.com/shipmate-cli/shipmate/internal/intent"
	"github.com/shipmate-cli/shipmate/internal/logging"
)

// scriptedIO feeds canned utterances and records everything shown.
type scriptedIO struct {
	inputs    []string
	questions []string
	messages  []string
	displays  []string
}

func (s *scriptedIO) next() (string, error) {
	if len(s.inputs) == 0 {
		return "", io.EOF
	}
	in := s.inputs[0]
	s.inputs = s.inputs[1:]
	return in, nil
}

func (s *scriptedIO) PromptForRequirements() (string, error) { return s.next() }

func (s *scriptedIO) GetUserResponse(question string) (string, error) {
	s.questions = append(s.questions, question)
	return s.next()
}

func (s *scriptedIO) LogToUser(message string) { s.messages = append(s.messages, message) }

func (s *scriptedIO) DisplayConfig(title string, order []string, fields map[string]any) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:", title)
	for _, name := range order {
		if v, ok := fields[name]; ok {
			fmt.Fprintf(&b, " %s=%v", name, v)
		}
	}
	s.displays = append(s.displays, b.String())
}

func (s *scriptedIO) sawMessage(want string) bool {
	for _, m := range s.messages {
		if strings.Contains(m, want) {
			return true
		}
	}
	return false
}

// scriptedClassifier returns intents in order; Reflect answers from a second
// script when present.
type scriptedClassifier struct {
	intents     []intent.Intent
	reflections []intent.Intent
	err         error

	classifyCalls []string
	reflectCalls  []string
	transcripts   [][]intent.Turn
}

func (c *scriptedClassifier) Classify(ctx context.Context, utterance string, transcript []intent.Turn) (intent.Intent, error) {
	c.classifyCalls = append(c.classifyCalls, utterance)
	c.transcripts = append(c.transcripts, append([]intent.Turn(nil), transcript...))
	if c.err != nil {
		return intent.Intent{}, c.err
	}
	it := c.intents[0]
	c.intents = c.intents[1:]
	return it, nil
}

func (c *scriptedClassifier) Reflect(ctx context.Context, utterance string, transcript []intent.Turn) (intent.Intent, error) {
	c.reflectCalls = append(c.reflectCalls, utterance)
	it := c.reflections[0]
	c.reflections = c.reflections[1:]
	return it, nil
}

type stubFinder struct {
	result catalog.Result
	err    error
	cpu    *int
	ram    *float64
}

func (f *stubFinder) FindBestInstance(ctx context.Context, cpu *int, ram *float64) (catalog.Result, error) {
	f.cpu, f.ram = cpu, ram
	return f.result, f.err
}

type stubProvisioner struct {
	subnet      string
	deployed    bool
	deployInst  deployment.InstanceConfig
	deployScal  deployment.ScalingGroupConfig
	deployAS    bool
	networkErr  error
	identityErr error
}

func (p *stubProvisioner) EnsureNetwork(ctx context.Context) error { return p.networkErr }
func (p *stubProvisioner) SubnetID() string                        { return p.subnet }
func (p *stubProvisioner) WhoAmI(ctx context.Context) (string, error) {
	return "arn:aws:iam::000000000000:user/test", p.identityErr
}

func (p *stubProvisioner) Deploy(ctx context.Context, inst deployment.InstanceConfig, scaling deployment.ScalingGroupConfig, autoscalingEnabled bool) {
	p.deployed = true
	p.deployInst = inst
	p.deployScal = scaling
	p.deployAS = autoscalingEnabled
}

func newTestAgent(term *scriptedIO, cls *scriptedClassifier, reflect bool) (*Agent, *stubFinder, *stubProvisioner) {
	finder := &stubFinder{}
	prov := &stubProvisioner{subnet: "subnet-seeded"}
	return New(term, cls, finder, prov, reflect), finder, prov
}

func intentOf(name string, args map[string]any) intent.Intent {
	if args == nil {
		args = map[string]any{}
	}
	return intent.Intent{Name: name, Args: args}
}

func TestTypeSelectionAppliesBestMatch(t *testing.T) {
	term := &scriptedIO{}
	a, finder, _ := newTestAgent(term, nil, false)
	finder.result = catalog.Result{Found: true, APIName: "m5.xlarge"}

	q, err := a.HandleIntent(context.Background(), intentOf(intent.NameTypeSelection,
		map[string]any{"cpu": 4, "ram": 16.0}))
	if err != nil {
		t.Fatalf("HandleIntent: %v", err)
	}
	if a.instCfg.InstanceType != "m5.xlarge" {
		t.Errorf("InstanceType = %q, want m5.xlarge", a.instCfg.InstanceType)
	}
	if finder.cpu == nil || *finder.cpu != 4 {
		t.Errorf("cpu arg not forwarded: %v", finder.cpu)
	}
	if finder.ram == nil || *finder.ram != 16.0 {
		t.Errorf("ram arg not forwarded: %v", finder.ram)
	}
	if q != msgHowDoesThisLook {
		t.Errorf("question = %q", q)
	}
	if len(term.displays) != 1 {
		t.Errorf("expected one config display, got %v", term.displays)
	}
}

func TestTypeSelectionMissRelaysMessageVerbatim(t *testing.T) {
	term := &scriptedIO{}
	a, finder, _ := newTestAgent(term, nil, false)
	finder.result = catalog.Result{Found: false, Message: "No instance type found with at least 64 vCPUs and 512 GiB of memory."}

	_, err := a.HandleIntent(context.Background(), intentOf(intent.NameTypeSelection, nil))
	if err != nil {
		t.Fatalf("HandleIntent: %v", err)
	}
	if a.instCfg.InstanceType != "" {
		t.Errorf("config must not change on a miss, got %q", a.instCfg.InstanceType)
	}
	if !term.sawMessage("No instance type found with at least 64 vCPUs and 512 GiB of memory.") {
		t.Errorf("miss message not relayed: %v", term.messages)
	}
}

func TestConfirmDeploysCurrentState(t *testing.T) {
	term := &scriptedIO{}
	a, _, prov := newTestAgent(term, nil, false)
	a.instCfg.InstanceType = "t3.large"
	a.autoscalingEnabled = true

	if _, err := a.HandleIntent(context.Background(), intentOf(intent.NameConfirm, nil)); err != nil {
		t.Fatalf("HandleIntent: %v", err)
	}
	if !prov.deployed {
		t.Fatal("Deploy not invoked")
	}
	if prov.deployInst.InstanceType != "t3.large" {
		t.Errorf("deployed InstanceType = %q", prov.deployInst.InstanceType)
	}
	if !prov.deployAS {
		t.Error("autoscaling flag not forwarded")
	}
}

func TestEnableAutoscalingShowsBothConfigs(t *testing.T) {
	term := &scriptedIO{}
	a, _, _ := newTestAgent(term, nil, false)

	if _, err := a.HandleIntent(context.Background(), intentOf(intent.NameAutoscaling, nil)); err != nil {
		t.Fatalf("HandleIntent: %v", err)
	}
	if !a.autoscalingEnabled {
		t.Error("autoscaling flag not set")
	}
	if len(term.displays) != 2 {
		t.Fatalf("expected instance and scaling displays, got %v", term.displays)
	}
	if !strings.Contains(term.displays[1], "autoscaling") {
		t.Errorf("second display should be the scaling config: %q", term.displays[1])
	}
}

func TestDisplayBeforeAutoscalingShowsOnlyInstanceConfig(t *testing.T) {
	term := &scriptedIO{}
	a, _, _ := newTestAgent(term, nil, false)

	if _, err := a.HandleIntent(context.Background(), intentOf(intent.NameDisplayConfig, nil)); err != nil {
		t.Fatalf("HandleIntent: %v", err)
	}
	if len(term.displays) != 1 {
		t.Fatalf("expected one display, got %v", term.displays)
	}
}

func TestModifyEC2RejectionsGoToUser(t *testing.T) {
	term := &scriptedIO{}
	a, _, _ := newTestAgent(term, nil, false)

	_, err := a.HandleIntent(context.Background(), intentOf(intent.NameModifyEC2,
		map[string]any{"MinCount": 5, "FlavorText": "spicy"}))
	if err != nil {
		t.Fatalf("HandleIntent: %v", err)
	}
	if !term.sawMessage("FlavorText") {
		t.Errorf("unknown field rejection not shown: %v", term.messages)
	}
	// MinCount 5 alone violates MinCount <= MaxCount (1), so nothing commits.
	if a.instCfg.MinCount != 1 {
		t.Errorf("MinCount = %d, want rollback to 1", a.instCfg.MinCount)
	}
}

func TestModifyScalingCommits(t *testing.T) {
	term := &scriptedIO{}
	a, _, _ := newTestAgent(term, nil, false)

	_, err := a.HandleIntent(context.Background(), intentOf(intent.NameModifyScaling,
		map[string]any{"MaxSize": 10, "DesiredCapacity": 5, "MinSize": nil}))
	if err != nil {
		t.Fatalf("HandleIntent: %v", err)
	}
	if a.scalCfg.MaxSize != 10 || a.scalCfg.DesiredCapacity != 5 || a.scalCfg.MinSize != 1 {
		t.Errorf("scaling config = %+v", *a.scalCfg)
	}
}

func TestOutOfScopeEmitsFixedMessage(t *testing.T) {
	term := &scriptedIO{}
	a, _, _ := newTestAgent(term, nil, false)

	if _, err := a.HandleIntent(context.Background(), intent.OutOfScope()); err != nil {
		t.Fatalf("HandleIntent: %v", err)
	}
	if !term.sawMessage(msgDidNotUnderstand) {
		t.Errorf("fixed message missing: %v", term.messages)
	}
}

func TestHandleIntentLogsDispatch(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "shipmate.log")
	if err := logging.Setup(logPath, 1<<20, 2); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	term := &scriptedIO{}
	a, _, _ := newTestAgent(term, nil, false)
	if _, err := a.HandleIntent(context.Background(), intentOf(intent.NameModifyEC2,
		map[string]any{"MinCount": 1})); err != nil {
		t.Fatalf("HandleIntent: %v", err)
	}
	logging.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), intent.NameModifyEC2+" called with arguments") {
		t.Errorf("dispatch not logged: %s", data)
	}
}

func TestFinderErrorAbortsTurn(t *testing.T) {
	term := &scriptedIO{}
	a, finder, _ := newTestAgent(term, nil, false)
	finder.err = errors.New("catalog unavailable")

	_, err := a.HandleIntent(context.Background(), intentOf(intent.NameTypeSelection, nil))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRunEndsQuietlyOnEOF(t *testing.T) {
	term := &scriptedIO{inputs: []string{"show config"}}
	cls := &scriptedClassifier{intents: []intent.Intent{intentOf(intent.NameDisplayConfig, nil)}}
	a, _, _ := newTestAgent(term, cls, false)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(term.displays) != 1 {
		t.Errorf("turn not dispatched before EOF: %v", term.displays)
	}
	if term.sawMessage("Error:") {
		t.Errorf("EOF must end quietly: %v", term.messages)
	}
}

func TestRunAppendsTranscriptAndRecordsClassification(t *testing.T) {
	term := &scriptedIO{inputs: []string{"I need 2 cpus", "show config"}}
	cls := &scriptedClassifier{intents: []intent.Intent{
		intentOf(intent.NameTypeSelection, map[string]any{"cpu": 2, "ram": nil}),
		intentOf(intent.NameDisplayConfig, nil),
	}}
	a, finder, _ := newTestAgent(term, cls, false)
	finder.result = catalog.Result{Found: true, APIName: "t3.micro"}

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Second classification sees both turns of the first exchange.
	if len(cls.transcripts) != 2 {
		t.Fatalf("classify calls = %d, want 2", len(cls.transcripts))
	}
	second := cls.transcripts[1]
	if len(second) != 3 {
		t.Fatalf("second transcript has %d turns, want 3", len(second))
	}
	if second[0].Text != "I need 2 cpus" || second[0].Role != intent.RoleUser {
		t.Errorf("turn 0 = %+v", second[0])
	}
	if second[1].Role != intent.RoleAgent || !strings.Contains(second[1].Text, intent.NameTypeSelection) {
		t.Errorf("turn 1 should record the classification, got %+v", second[1])
	}
	if second[1].Text != "user_intent_ec2_type_selection(cpu=2, ram=None)" {
		t.Errorf("recorded call = %q", second[1].Text)
	}
}

func TestRunReflectionReplacesClassification(t *testing.T) {
	term := &scriptedIO{inputs: []string{"hmm"}}
	cls := &scriptedClassifier{
		intents:     []intent.Intent{intentOf(intent.NameDisplayConfig, nil)},
		reflections: []intent.Intent{intent.OutOfScope()},
	}
	a, _, _ := newTestAgent(term, cls, true)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(cls.reflectCalls) != 1 {
		t.Fatalf("reflect calls = %d, want 1", len(cls.reflectCalls))
	}
	// The reflected intent wins: no display, fixed fallback message instead.
	if len(term.displays) != 0 {
		t.Errorf("first classification dispatched despite reflection: %v", term.displays)
	}
	if !term.sawMessage(msgDidNotUnderstand) {
		t.Errorf("reflected out-of-scope not dispatched: %v", term.messages)
	}
	if got := a.transcript[1].Text; got != "user_intent_out_of_scope()" {
		t.Errorf("transcript keeps unreflected call: %q", got)
	}
}

func TestRunClassifierErrorAbortsWithTopLevelMessage(t *testing.T) {
	term := &scriptedIO{inputs: []string{"deploy something"}}
	cls := &scriptedClassifier{err: errors.New("endpoint down")}
	a, _, _ := newTestAgent(term, cls, false)

	err := a.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !term.sawMessage("Error:") {
		t.Errorf("top-level error message missing: %v", term.messages)
	}
}

func TestPreflightSeedsVPCZoneIdentifier(t *testing.T) {
	term := &scriptedIO{}
	cls := &scriptedClassifier{}
	a, _, _ := newTestAgent(term, cls, false)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.scalCfg.VPCZoneIdentifier != "subnet-seeded" {
		t.Errorf("VPCZoneIdentifier = %q, want subnet-seeded", a.scalCfg.VPCZoneIdentifier)
	}
}

func TestPreflightNetworkFailureIsNotFatal(t *testing.T) {
	term := &scriptedIO{}
	cls := &scriptedClassifier{}
	finder := &stubFinder{}
	prov := &stubProvisioner{networkErr: errors.New("no cloud today")}
	a := New(term, cls, finder, prov, false)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run should survive preflight failure: %v", err)
	}
	if a.scalCfg.VPCZoneIdentifier != "subnet-test-1" {
		t.Errorf("VPCZoneIdentifier = %q, want untouched default", a.scalCfg.VPCZoneIdentifier)
	}
}
