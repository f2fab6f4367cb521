package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"vectex/internal/core"
)

const fakeSVG = `<?xml version='1.0' encoding='UTF-8'?>
<svg version='1.1' xmlns='http://www.w3.org/2000/svg'>
<path d='M0 0'/>
<rect x='0' y='0' height='1' width='1'/>
</svg>
`

// stubRunner fakes a working latex/dvisvgm pair. failTool, when set, exits
// with status 1 for that program.
type stubRunner struct {
	failTool string
	calls    []string
}

func (s *stubRunner) Run(_ context.Context, dir, name string, args ...string) (*core.ExecutionResult, error) {
	s.calls = append(s.calls, name)
	if name == s.failTool {
		return &core.ExecutionResult{ExitCode: 1, Stderr: []byte(name + " failed")}, nil
	}
	last := args[len(args)-1]
	switch name {
	case "latex":
		stem := strings.TrimSuffix(last, ".tex")
		for _, ext := range []string{".dvi", ".aux", ".log"} {
			if err := os.WriteFile(filepath.Join(dir, stem+ext), nil, 0o644); err != nil {
				return nil, err
			}
		}
	case "dvisvgm":
		if err := os.WriteFile(filepath.Join(dir, last), []byte(fakeSVG), 0o644); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unexpected tool %q", name)
	}
	return &core.ExecutionResult{}, nil
}

func testEnv(t *testing.T, runner core.ToolRunner, stdin string) (Env, *bytes.Buffer) {
	t.Helper()
	var stderr bytes.Buffer
	return Env{
		WorkDir: t.TempDir(),
		Stdin:   strings.NewReader(stdin),
		Stdout:  &bytes.Buffer{},
		Stderr:  &stderr,
		Runner:  runner,
	}, &stderr
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "vectex.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestExecute_WritesColorizedOutput(t *testing.T) {
	env, _ := testEnv(t, &stubRunner{}, "x^2\n")

	res, err := Execute(context.Background(), CLIInvocation{BaseName: "out", Color: "#123456"}, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != ExitSuccess {
		t.Fatalf("exit code %d", res.ExitCode)
	}
	outPath := filepath.Join(env.WorkDir, "out")
	if res.Output == nil || res.Output.OutputPath != outPath {
		t.Fatalf("unexpected result: %#v", res.Output)
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(b), core.PathAttrs("#123456")) || !strings.Contains(string(b), core.RectAttrs("#123456")) {
		t.Fatalf("output not colorized:\n%s", b)
	}
}

func TestExecute_ColorFallsBackToConfig(t *testing.T) {
	env, _ := testEnv(t, &stubRunner{}, "x")
	cfgPath := writeConfig(t, env.WorkDir, `color = "teal"`)

	if _, err := Execute(context.Background(), CLIInvocation{BaseName: "out", ConfigPath: cfgPath}, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(env.WorkDir, "out"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(b), `fill="teal"`) {
		t.Fatalf("configured color not applied:\n%s", b)
	}
}

func TestExecute_ToolFailure(t *testing.T) {
	runner := &stubRunner{failTool: "latex"}
	env, _ := testEnv(t, runner, "\\oops")

	res, err := Execute(context.Background(), CLIInvocation{BaseName: "out"}, env)
	if err == nil {
		t.Fatalf("expected error")
	}
	if res.ExitCode != ExitToolError {
		t.Fatalf("exit code %d, want %d", res.ExitCode, ExitToolError)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("converter should not run after a typeset failure: %v", runner.calls)
	}
	if _, err := os.Stat(filepath.Join(env.WorkDir, "out")); !os.IsNotExist(err) {
		t.Fatalf("output must not exist after failure, stat err=%v", err)
	}
}

func TestExecute_ConfigErrors(t *testing.T) {
	cases := map[string]struct {
		config   string
		logLevel string
	}{
		"missing file":      {config: "does-not-exist.toml"},
		"unknown key":       {config: "@bogus = 1"},
		"bad scale":         {config: "@scale = 0"},
		"bad log level arg": {logLevel: "loud"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			runner := &stubRunner{}
			env, _ := testEnv(t, runner, "x")
			inv := CLIInvocation{BaseName: "out", LogLevel: tc.logLevel}
			switch {
			case strings.HasPrefix(tc.config, "@"):
				inv.ConfigPath = writeConfig(t, env.WorkDir, strings.TrimPrefix(tc.config, "@"))
			case tc.config != "":
				inv.ConfigPath = filepath.Join(env.WorkDir, tc.config)
			}

			res, err := Execute(context.Background(), inv, env)
			if err == nil {
				t.Fatalf("expected error")
			}
			if res.ExitCode != ExitConfigError || ExitCode(err) != ExitConfigError {
				t.Fatalf("exit code %d / %d, want %d", res.ExitCode, ExitCode(err), ExitConfigError)
			}
			if len(runner.calls) != 0 {
				t.Fatalf("no tool should run on a config error: %v", runner.calls)
			}
		})
	}
}

func TestExecute_LogLevelOverride(t *testing.T) {
	env, stderr := testEnv(t, &stubRunner{}, "x")

	if _, err := Execute(context.Background(), CLIInvocation{BaseName: "out", LogLevel: "debug"}, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logs := stderr.String()
	for _, want := range []string{"stage started", "stage=typeset", "wrote svg"} {
		if !strings.Contains(logs, want) {
			t.Fatalf("debug log missing %q:\n%s", want, logs)
		}
	}
}

func TestExecute_QuietByDefault(t *testing.T) {
	env, stderr := testEnv(t, &stubRunner{}, "x")

	if _, err := Execute(context.Background(), CLIInvocation{BaseName: "out"}, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected no log output at the default level, got:\n%s", stderr.String())
	}
}

func TestExecute_WritesTraceEvenOnFailure(t *testing.T) {
	env, _ := testEnv(t, &stubRunner{failTool: "dvisvgm"}, "x")
	cfgPath := writeConfig(t, env.WorkDir, `trace_path = "trace.json"`)

	res, err := Execute(context.Background(), CLIInvocation{BaseName: "out", ConfigPath: cfgPath}, env)
	if err == nil || res.ExitCode != ExitToolError {
		t.Fatalf("expected tool failure, got exit %d err %v", res.ExitCode, err)
	}

	b, err := os.ReadFile(filepath.Join(env.WorkDir, "trace.json"))
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if !bytes.HasPrefix(b, []byte(`{"output":"out","events":[`)) {
		t.Fatalf("unexpected trace layout: %s", b)
	}
	var decoded struct {
		Events []struct {
			Kind   string `json:"kind"`
			Stage  string `json:"stage"`
			Reason string `json:"reason"`
		} `json:"events"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	last := decoded.Events[len(decoded.Events)-1]
	if last.Kind != "StageFailed" || last.Stage != string(core.StageConvert) || last.Reason != "ExternalTool" {
		t.Fatalf("unexpected final event: %#v", last)
	}
}

func TestExecute_ScratchDirFromConfig(t *testing.T) {
	env, _ := testEnv(t, &stubRunner{}, "x")
	scratch := t.TempDir()
	cfgPath := writeConfig(t, env.WorkDir, "scratch_dir = '"+scratch+"'\nkeep_scratch = true\n")

	if _, err := Execute(context.Background(), CLIInvocation{BaseName: "out", ConfigPath: cfgPath}, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch root: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "vectex-") {
		t.Fatalf("expected one kept scratch directory, got %v", entries)
	}
}
