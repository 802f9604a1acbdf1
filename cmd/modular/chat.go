package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Emilio-01-T/Modular-2/builder"
	"github.com/Emilio-01-T/Modular-2/memory"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
)

const chatSessionKey = "chat"

func newChatCmd(flags *globalFlags, opts cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [agent]",
		Short: "Chat with an agent interactively",
		Long:  `Starts a REPL with the named agent, or the first configured agent. Type /help for commands.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.load(cmd, opts)
			if err != nil {
				return err
			}
			defer a.runtime.Close()

			agent, err := pickAgent(a, args)
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          colorCyan + "you> " + colorReset,
				InterruptPrompt: "^C",
				EOFPrompt:       "/exit",
				Stdin:           opts.stdin,
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			session := newChatSession(a.runtime, agent, cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "%sChatting with %s. Type /help for commands.%s\n", colorGreen, agent, colorReset)
			return session.loop(cmd.Context(), rl)
		},
	}
}

func pickAgent(a *app, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if len(a.cfg.Agents) == 0 {
		return "", errors.New("no agents configured")
	}
	return a.cfg.Agents[0].Name, nil
}

// chatSession is one REPL conversation with an agent.
type chatSession struct {
	runtime *builder.Runtime
	agent   string
	history memory.Store
	out     io.Writer
}

func newChatSession(rt *builder.Runtime, agent string, out io.Writer) *chatSession {
	return &chatSession{
		runtime: rt,
		agent:   agent,
		history: memory.NewConversation(),
		out:     out,
	}
}

// lineReader is the part of readline.Instance the loop uses.
type lineReader interface {
	Readline() (string, error)
}

func (s *chatSession) loop(ctx context.Context, rl lineReader) error {
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Fprintf(s.out, "%sGoodbye!%s\n", colorGreen, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if quit := s.handle(ctx, line); quit {
			fmt.Fprintf(s.out, "%sGoodbye!%s\n", colorGreen, colorReset)
			return nil
		}
	}
}

// handle processes one input line and reports whether the session ends.
// Agent failures are printed and do not end the session.
func (s *chatSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "":
		return false
	case "/exit", "/quit", "exit", "quit", "q":
		return true
	case "/help":
		fmt.Fprintln(s.out, "Commands: /modules, /history, /reset, /exit")
		return false
	case "/modules":
		writeModules(s.out, s.runtime.Modules())
		return false
	case "/history":
		msgs, err := s.history.Messages(ctx, chatSessionKey)
		if err != nil {
			fmt.Fprintf(s.out, "%sError: %v%s\n", colorRed, err, colorReset)
			return false
		}
		if len(msgs) == 0 {
			fmt.Fprintf(s.out, "%s(empty)%s\n", colorDim, colorReset)
			return false
		}
		fmt.Fprintln(s.out, memory.Transcript(msgs))
		return false
	case "/reset":
		_ = s.history.Clear(ctx, chatSessionKey)
		fmt.Fprintf(s.out, "%sHistory cleared.%s\n", colorYellow, colorReset)
		return false
	}

	answer, err := s.runtime.Ask(ctx, s.agent, line)
	if err != nil {
		fmt.Fprintf(s.out, "%sError: %v%s\n", colorRed, err, colorReset)
		return false
	}
	now := time.Now()
	_ = s.history.Append(ctx, chatSessionKey, memory.Message{Role: memory.RoleUser, Content: line, Time: now})
	_ = s.history.Append(ctx, chatSessionKey, memory.Message{Role: memory.RoleAssistant, Content: answer, Time: now})
	fmt.Fprintf(s.out, "%s%s>%s %s\n", colorGreen, s.agent, colorReset, answer)
	return false
}
