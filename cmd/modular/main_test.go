package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Emilio-01-T/Modular-2/internal/tt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"gopkg.in/yaml.v3"
)

const cliYAML = `
logging:
  level: error
llms:
  - name: local
    provider: ollama
    model: llama3
tools:
  - name: calc
    type: math
agents:
  - name: helper
    llm: local
    tools: [calc]
output_parsers:
  - name: json
    type: json
chains:
  - name: main
    steps:
      - name: compute
        type: tool
        component: calc
  - name: broken
    steps:
      - name: parse
        type: parser
        component: json
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, mock *tt.MockLLM, args ...string) (string, string, error) {
	t.Helper()
	opts := cliOptions{}
	if mock != nil {
		opts.models = map[string]llms.Model{"local": mock}
	}
	cmd := newRootCmd(opts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunCommand(t *testing.T) {
	path := writeConfig(t, cliYAML)

	tests := []struct {
		name     string
		args     []string
		expected struct {
			stdout []string
			err    string
		}
	}{
		{
			name: "text output",
			args: []string{"run", "main", "2", "+", "3"},
			expected: struct {
				stdout []string
				err    string
			}{stdout: []string{"5\n"}},
		},
		{
			name: "trace adds history",
			args: []string{"run", "main", "6 / 3", "--trace"},
			expected: struct {
				stdout []string
				err    string
			}{stdout: []string{"2\n", "History:", "compute: 2"}},
		},
		{
			name: "failure reports step",
			args: []string{"run", "broken", "no json here"},
			expected: struct {
				stdout []string
				err    string
			}{stdout: []string{"Errors:", "parse [execution]"}, err: `failed at step "parse"`},
		},
		{
			name: "unknown target",
			args: []string{"run", "ghost"},
			expected: struct {
				stdout []string
				err    string
			}{err: "unknown chain or pipeline"},
		},
		{
			name: "bad output format",
			args: []string{"run", "main", "1", "-o", "xml"},
			expected: struct {
				stdout []string
				err    string
			}{err: `unknown output format "xml"`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stdout, _, err := execute(t, nil, append(tc.args, "--config", path)...)
			if tc.expected.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expected.err)
			} else {
				require.NoError(t, err)
			}
			for _, s := range tc.expected.stdout {
				assert.Contains(t, stdout, s)
			}
		})
	}
}

func TestRunCommand_StructuredOutput(t *testing.T) {
	path := writeConfig(t, cliYAML)

	stdout, _, err := execute(t, nil, "run", "main", "4 * 5", "--config", path, "-o", "json", "--trace")
	require.NoError(t, err)
	var res struct {
		RunID   string  `json:"run_id"`
		Output  float64 `json:"output"`
		History []struct {
			Step string `json:"step"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 20.0, res.Output)
	require.Len(t, res.History, 1)
	assert.Equal(t, "compute", res.History[0].Step)

	stdout, _, err = execute(t, nil, "run", "main", "1 + 1", "--config", path, "-o", "yaml")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "main", doc["target"])
	assert.EqualValues(t, 2, doc["output"])
	assert.NotContains(t, doc, "history")
}

func TestRunCommand_VerboseTranscript(t *testing.T) {
	path := writeConfig(t, cliYAML)
	_, stderr, err := execute(t, nil, "run", "main", "1 + 2", "--config", path, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, stderr, "CHAIN main STARTED")
	assert.Contains(t, stderr, "CHAIN main ENDED")
}

func TestAskCommand(t *testing.T) {
	path := writeConfig(t, cliYAML)
	mock := tt.NewMockLLM().AddResponse("hi there")

	stdout, _, err := execute(t, mock, "ask", "helper", "say", "hello", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "hi there\n", stdout)
	assert.Equal(t, []string{"say hello"}, mock.Prompts)
}

func TestCheckCommand(t *testing.T) {
	valid := writeConfig(t, cliYAML+`
  - name: orphan
    steps:
      - name: s
        type: tool
        component: nowhere
`)
	stdout, _, err := execute(t, nil, "check", "--config", valid)
	require.NoError(t, err)
	assert.Contains(t, stdout, `component "nowhere" is not declared`)
	assert.Contains(t, stdout, "is valid: 3 chains, 0 pipelines, 1 agents")

	invalid := writeConfig(t, `
chains:
  - name: a
    steps:
      - name: s
        type: chain
        component: a
`)
	_, _, err = execute(t, nil, "check", "--config", invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")

	_, _, err = execute(t, nil, "check", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestListCommand(t *testing.T) {
	path := writeConfig(t, cliYAML)
	stdout, _, err := execute(t, tt.NewMockLLM(), "list", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "agent: helper\nchain: broken, main\nllm: local\nparser: json\ntool: calc\n", stdout)
}

func TestChatSession(t *testing.T) {
	path := writeConfig(t, cliYAML)
	mock := tt.NewMockLLM().AddResponse("first answer").AddResponse("second answer")

	cmd := newRootCmd(cliOptions{models: map[string]llms.Model{"local": mock}})
	flags := &globalFlags{configPath: path, logLevel: "error"}
	a, err := flags.load(cmd, cliOptions{models: map[string]llms.Model{"local": mock}})
	require.NoError(t, err)
	defer a.runtime.Close()

	agent, err := pickAgent(a, nil)
	require.NoError(t, err)
	assert.Equal(t, "helper", agent)

	var out bytes.Buffer
	s := newChatSession(a.runtime, agent, &out)
	ctx := context.Background()

	assert.False(t, s.handle(ctx, "hello"))
	assert.False(t, s.handle(ctx, "  "))
	assert.False(t, s.handle(ctx, "again"))
	assert.False(t, s.handle(ctx, "/history"))
	assert.Contains(t, out.String(), "first answer")
	assert.Contains(t, out.String(), "user: hello\nassistant: first answer\nuser: again\nassistant: second answer")

	out.Reset()
	assert.False(t, s.handle(ctx, "/reset"))
	assert.False(t, s.handle(ctx, "/history"))
	assert.Contains(t, out.String(), "(empty)")

	out.Reset()
	assert.False(t, s.handle(ctx, "/modules"))
	assert.Contains(t, out.String(), "agent: helper\n")

	assert.True(t, s.handle(ctx, "/exit"))
	assert.True(t, s.handle(ctx, "quit"))
	assert.Equal(t, 2, mock.CallCount())
}

type scriptedReader struct {
	lines []string
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", context.Canceled
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func TestChatSession_Loop(t *testing.T) {
	path := writeConfig(t, cliYAML)
	mock := tt.NewMockLLM().AddResponse("pong")
	opts := cliOptions{models: map[string]llms.Model{"local": mock}}
	a, err := (&globalFlags{configPath: path}).load(newRootCmd(opts), opts)
	require.NoError(t, err)
	defer a.runtime.Close()

	var out bytes.Buffer
	s := newChatSession(a.runtime, "helper", &out)
	require.NoError(t, s.loop(context.Background(), &scriptedReader{lines: []string{"ping", "/exit", "never"}}))
	assert.Contains(t, out.String(), "pong")
	assert.Contains(t, out.String(), "Goodbye!")
	assert.Equal(t, 1, mock.CallCount())

	err = s.loop(context.Background(), &scriptedReader{})
	assert.ErrorIs(t, err, context.Canceled)
}
