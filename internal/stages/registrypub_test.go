package stages

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/vk/shipline/internal/config"
)

func stubRegistryCommand(t *testing.T, fn func(ctx context.Context, name string, args ...string) *exec.Cmd) {
	t.Helper()
	orig := commandContext
	commandContext = fn
	t.Cleanup(func() { commandContext = orig })
}

func TestCommandRegistrar_RunsConfiguredCommand(t *testing.T) {
	// --- Arrange ---
	var gotName string
	var gotArgs []string
	stubRegistryCommand(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotName = name
		gotArgs = args
		return exec.CommandContext(ctx, "true")
	})
	registrar := NewCommandRegistrar(config.RegistrySettings{
		Command: "cargo",
		Args:    []string{"publish", "--no-verify"},
		Timeout: time.Minute,
	})

	// --- Act ---
	err := registrar.PublishPackage(context.Background())

	// --- Assert ---
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if gotName != "cargo" {
		t.Errorf("command = %q, want cargo", gotName)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "publish" || gotArgs[1] != "--no-verify" {
		t.Errorf("args = %v", gotArgs)
	}
}

func TestCommandRegistrar_FailureIsNotRetried(t *testing.T) {
	calls := 0
	stubRegistryCommand(t, func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		calls++
		return exec.CommandContext(ctx, "false")
	})
	registrar := NewCommandRegistrar(config.RegistrySettings{Command: "cargo", Args: []string{"publish"}})

	err := registrar.PublishPackage(context.Background())

	if err == nil {
		t.Fatal("expected the publish to fail")
	}
	if calls != 1 {
		t.Errorf("command invoked %d times, want exactly 1", calls)
	}
}
