package gogine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/GoCodeAlone/gogine/config"
)

// Static error variables for BDD tests
var (
	errStateNotCreated       = errors.New("application state was not created")
	errUnknownSubsystem      = errors.New("unknown subsystem in scenario")
	errExpectedRunFailure    = errors.New("expected run to fail")
	errUnexpectedRunFailure  = errors.New("expected run to succeed")
	errRunDidNotReturn       = errors.New("run did not return")
	errRunnerNeverWaited     = errors.New("runner never started waiting for shutdown")
	errOrderMismatch         = errors.New("lifecycle order mismatch")
	errWrongSubsystem        = errors.New("error names the wrong subsystem")
	errSubsystemStarted      = errors.New("subsystem should not have started")
	errMissingShutdownErrors = errors.New("expected collected shutdown errors")
)

// BDDTestContext holds the state of one lifecycle scenario
type BDDTestContext struct {
	state      *State
	runner     *Runner
	log        *callLog
	subsystems map[string]*recordingSubsystem
	runErr     error
}

func (c *BDDTestContext) resetContext() {
	c.state = nil
	c.runner = nil
	c.log = &callLog{}
	c.subsystems = make(map[string]*recordingSubsystem)
	c.runErr = nil
}

func (c *BDDTestContext) iHaveAFreshApplicationState() error {
	state, err := Initialize(config.Default())
	if err != nil {
		return err
	}
	c.state = state
	return nil
}

func (c *BDDTestContext) iRegisterSubsystems(names string) error {
	if c.state == nil {
		return errStateNotCreated
	}
	for _, name := range splitNames(names) {
		sub := newRecording(name, c.log)
		c.subsystems[name] = sub
		if err := c.state.RegisterSystem(name, sub); err != nil {
			return err
		}
	}
	return nil
}

func (c *BDDTestContext) subsystemFailsOnStartup(name string) error {
	sub, ok := c.subsystems[name]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownSubsystem, name)
	}
	sub.startupErr = errStartupRefused
	return nil
}

func (c *BDDTestContext) subsystemFailsOnShutdown(name string) error {
	sub, ok := c.subsystems[name]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownSubsystem, name)
	}
	sub.shutdownErr = errShutdownRefused
	return nil
}

func (c *BDDTestContext) subsystemIsDisabled(name string) error {
	return c.state.SetSystemEnabled(name, false)
}

func (c *BDDTestContext) iRunTheApplication() error {
	c.runner = NewRunner(c.state, WithInterruptSource(blockingInterrupt))
	c.runErr = c.runner.Run(context.Background())
	return nil
}

func (c *BDDTestContext) iRunTheApplicationAndTriggerShutdown() error {
	c.runner = NewRunner(c.state, WithInterruptSource(blockingInterrupt))
	done := make(chan error, 1)
	go func() {
		done <- c.runner.Run(context.Background())
	}()

	waitUntil := time.Now().Add(2 * time.Second)
	for c.state.Shutdown().SubscriberCount() == 0 {
		if time.Now().After(waitUntil) {
			return errRunnerNeverWaited
		}
		time.Sleep(time.Millisecond)
	}
	c.state.Shutdown().Trigger()

	select {
	case c.runErr = <-done:
		return nil
	case <-time.After(5 * time.Second):
		return errRunDidNotReturn
	}
}

func (c *BDDTestContext) theRunShouldSucceed() error {
	if c.runErr != nil {
		return fmt.Errorf("%w: %w", errUnexpectedRunFailure, c.runErr)
	}
	return nil
}

func (c *BDDTestContext) theRunShouldFailNamingSubsystem(name string) error {
	if c.runErr == nil {
		return errExpectedRunFailure
	}
	var subErr *SubsystemError
	if !errors.As(c.runErr, &subErr) || subErr.Name != name || !errors.Is(c.runErr, ErrSubsystemStartup) {
		return fmt.Errorf("%w: %v", errWrongSubsystem, c.runErr)
	}
	return nil
}

func (c *BDDTestContext) startupShouldBeCalledInOrder(names string) error {
	return compareOrder(OpStartup, splitNames(names), c.log.op(OpStartup))
}

func (c *BDDTestContext) shutdownShouldBeCalledInOrder(names string) error {
	return compareOrder(OpShutdown, splitNames(names), c.log.op(OpShutdown))
}

func (c *BDDTestContext) subsystemShouldNeverStart(name string) error {
	if slices.Contains(c.log.op(OpStartup), name) {
		return fmt.Errorf("%w: %s", errSubsystemStarted, name)
	}
	return nil
}

func (c *BDDTestContext) theShutdownErrorsShouldNameSubsystem(name string) error {
	err := c.runner.ShutdownErr()
	if err == nil {
		return errMissingShutdownErrors
	}
	var subErr *SubsystemError
	if !errors.As(err, &subErr) || subErr.Name != name {
		return fmt.Errorf("%w: %v", errWrongSubsystem, err)
	}
	return nil
}

func compareOrder(op string, want, got []string) error {
	if !slices.Equal(want, got) {
		return fmt.Errorf("%w: %s want %v, got %v", errOrderMismatch, op, want, got)
	}
	return nil
}

func splitNames(names string) []string {
	var out []string
	for _, n := range strings.Split(names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// InitializeScenario wires the lifecycle steps
func InitializeScenario(ctx *godog.ScenarioContext) {
	testCtx := &BDDTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.resetContext()
		return ctx, nil
	})

	ctx.Step(`^I have a fresh application state$`, testCtx.iHaveAFreshApplicationState)
	ctx.Step(`^I register subsystems "([^"]*)"$`, testCtx.iRegisterSubsystems)
	ctx.Step(`^subsystem "([^"]*)" fails on startup$`, testCtx.subsystemFailsOnStartup)
	ctx.Step(`^subsystem "([^"]*)" fails on shutdown$`, testCtx.subsystemFailsOnShutdown)
	ctx.Step(`^subsystem "([^"]*)" is disabled$`, testCtx.subsystemIsDisabled)

	ctx.Step(`^I run the application$`, testCtx.iRunTheApplication)
	ctx.Step(`^I run the application and trigger shutdown$`, testCtx.iRunTheApplicationAndTriggerShutdown)

	ctx.Step(`^the run should succeed$`, testCtx.theRunShouldSucceed)
	ctx.Step(`^the run should fail naming subsystem "([^"]*)"$`, testCtx.theRunShouldFailNamingSubsystem)
	ctx.Step(`^startup should be called in order "([^"]*)"$`, testCtx.startupShouldBeCalledInOrder)
	ctx.Step(`^shutdown should be called in order "([^"]*)"$`, testCtx.shutdownShouldBeCalledInOrder)
	ctx.Step(`^subsystem "([^"]*)" should never start$`, testCtx.subsystemShouldNeverStart)
	ctx.Step(`^the shutdown errors should name subsystem "([^"]*)"$`, testCtx.theShutdownErrorsShouldNameSubsystem)
}

func TestSubsystemLifecycleFeature(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/lifecycle.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
