package recovery

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"remedy/internal/classify"
	"remedy/internal/config"
	"remedy/internal/proc"
)

// ErrAttemptsExhausted is returned when the test command still fails after
// the maximum number of recovery attempts.
var ErrAttemptsExhausted = errors.New("recovery attempts exhausted")

// Attempt records one full cycle of test-run, classify, remediate.
type Attempt struct {
	Number         int                     `json:"number"`
	Classification classify.Classification `json:"classification"`
	Strategies     []StrategyResult        `json:"strategies"`
}

// Summary is the final outcome of a recovery run. The orchestrator
// exclusively owns the attempt list and the termination decision.
type Summary struct {
	RunID    string    `json:"run_id"`
	Scope    string    `json:"scope,omitempty"`
	Passed   bool      `json:"passed"`
	TestRuns int       `json:"test_runs"`
	Attempts []Attempt `json:"attempts"`

	// Reasons is the set of distinct failure reasons ever observed,
	// in first-seen order.
	Reasons []string `json:"reasons,omitempty"`
}

// Orchestrator drives the recovery state machine:
// Idle → Testing → (Passed | Diagnosing) → Recovering → Testing → … →
// Exhausted | Passed.
type Orchestrator struct {
	cfg         *config.Config
	rc          *Context
	classifier  *classify.Classifier
	catalog     []Strategy
	executor    *Executor
	logger      *zap.Logger
	maxAttempts int
	testTimeout time.Duration
}

// NewOrchestrator wires the orchestrator from config and a prepared strategy
// Context. The catalog is injectable for tests; pass Catalog() in production.
func NewOrchestrator(rc *Context, classifier *classify.Classifier, catalog []Strategy) (*Orchestrator, error) {
	pause, err := rc.Config.Recovery.StrategyPauseDuration()
	if err != nil {
		return nil, err
	}
	testTimeout, err := rc.Config.Recovery.TestTimeoutDuration()
	if err != nil {
		return nil, err
	}
	logger := rc.Logger
	if logger == nil {
		logger = zap.NewNop()
		rc.Logger = logger
	}
	return &Orchestrator{
		cfg:         rc.Config,
		rc:          rc,
		classifier:  classifier,
		catalog:     catalog,
		executor:    NewExecutor(pause, logger),
		logger:      logger,
		maxAttempts: rc.Config.Recovery.MaxAttempts,
		testTimeout: testTimeout,
	}, nil
}

// Run executes the recovery loop for the given scope (a configured package
// name/path, or empty for the whole suite). It returns ErrAttemptsExhausted
// when the attempt budget is spent; every other failure mode is folded into
// the loop.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	if o.rc.Scope != nil {
		summary.Scope = o.rc.Scope.Name
	}
	seen := map[string]bool{}

	o.rc.Console.Header("Test recovery")
	if summary.Scope != "" {
		o.rc.Console.Info("scope: %s", summary.Scope)
	} else {
		o.rc.Console.Info("scope: full suite")
	}

	for {
		res := o.runTests(ctx)
		summary.TestRuns++

		if testsPassed(res) {
			summary.Passed = true
			o.rc.Console.Success("tests passed after %d run(s)", summary.TestRuns)
			return summary, nil
		}

		attemptNumber := len(summary.Attempts) + 1
		if attemptNumber > o.maxAttempts {
			o.reportExhausted(summary)
			return summary, ErrAttemptsExhausted
		}

		o.rc.Console.Fail("test run %d failed, diagnosing (attempt %d/%d)",
			summary.TestRuns, attemptNumber, o.maxAttempts)

		cls := o.classifier.Classify(res.Output)
		for _, reason := range cls.Reasons() {
			o.rc.Console.Info("detected: %s", reason)
			if !seen[reason] {
				seen[reason] = true
				summary.Reasons = append(summary.Reasons, reason)
			}
		}

		applicable := Applicable(o.catalog, cls.MaxSeverity())
		o.logger.Info("starting recovery attempt",
			zap.Int("attempt", attemptNumber),
			zap.Int("max_severity", int(cls.MaxSeverity())),
			zap.Int("strategies", len(applicable)))

		summary.Attempts = append(summary.Attempts, Attempt{
			Number:         attemptNumber,
			Classification: cls,
			Strategies:     o.executor.RunAll(ctx, applicable, o.rc),
		})

		if ctx.Err() != nil {
			o.reportExhausted(summary)
			return summary, ctx.Err()
		}
	}
}

// runTests invokes the configured test command for the scope, capturing
// combined output. Infrastructure failures produce a failing Result and feed
// the classifier like any other output.
func (o *Orchestrator) runTests(ctx context.Context) *proc.Result {
	argv := o.cfg.Manager.TestE2E
	dir := o.rc.Root()
	timeout := o.testTimeout

	if o.rc.Scope != nil {
		argv = o.cfg.Manager.Test
		dir = o.rc.packageDir(*o.rc.Scope)
		if d, err := o.rc.Scope.TimeoutDuration(); err == nil {
			timeout = d
		}
	}

	if len(argv) == 0 {
		return &proc.Result{ExitCode: -1, Err: "no test command configured"}
	}

	o.rc.Console.Step("running %s", strings.Join(argv, " "))
	res, err := o.rc.Runner.Run(ctx, proc.Command{
		Binary:         argv[0],
		Args:           argv[1:],
		Dir:            dir,
		Timeout:        timeout,
		MaxOutputBytes: o.cfg.Recovery.MaxOutputBytes,
	})
	if err != nil {
		return &proc.Result{ExitCode: -1, Err: err.Error()}
	}
	return res
}

var (
	passRe = regexp.MustCompile(`(?i)\bpass(ed|ing)?\b`)
	failRe = regexp.MustCompile(`(?i)\bfail(ed|ing|ure)?s?\b`)
)

// testsPassed decides the Testing→Passed transition. A clean exit wins
// outright; otherwise success markers in the output (a checkmark or the word
// "pass" with no failure marker) rescue runners that exit non-zero on
// warnings.
func testsPassed(res *proc.Result) bool {
	if res.Err != "" || res.Killed {
		return false
	}
	if res.ExitCode == 0 {
		return true
	}
	if strings.Contains(res.Output, "✅") || strings.Contains(res.Output, "✓") {
		return !failRe.MatchString(res.Output)
	}
	return passRe.MatchString(res.Output) && !failRe.MatchString(res.Output)
}

// reportExhausted emits the terminal failure summary: attempts used, every
// distinct reason observed, and concrete manual next steps.
func (o *Orchestrator) reportExhausted(summary *Summary) {
	c := o.rc.Console
	c.Header("Recovery exhausted")
	c.Fail("tests still failing after %d attempt(s) (%d test runs)",
		len(summary.Attempts), summary.TestRuns)
	if len(summary.Reasons) > 0 {
		c.Info("failure reasons observed:")
		for _, r := range summary.Reasons {
			c.Detail("- %s", r)
		}
	}
	c.Info("suggested next steps:")
	c.Detail("- remedy fix --diagnose-only    (inspect without changing anything)")
	c.Detail("- remedy diagnose               (per-package breakdown)")
	c.Detail("- check that local services and the validator are healthy")
	c.Detail("- free the service ports manually: %v", o.cfg.Ports)
}
