// Package chat drives a session from a line based terminal.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/store"
)

const help = `commands:
  /status                 show wizard progress
  /complete [step]        complete a step (default: the active one)
  /goto <step>            jump to a step
  /set <step> k=v ...     record answers for a step
  /upload <file> ...      attach documents by name
  /sessions               list your sessions
  /stats                  show session statistics
  /clear                  clear the conversation
  /exit                   leave the wizard
  /quit                   quit`

type Repl struct {
	actions *store.Actions
	in      *bufio.Scanner
	out     io.Writer
	// lastId is the last message written to out.
	lastId string
}

func NewRepl(actions *store.Actions, in io.Reader, out io.Writer) *Repl {
	return &Repl{
		actions: actions,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

// Run starts a session, guided by wizardType when it is set, and reads
// commands until /quit or end of input.
func (r *Repl) Run(ctx context.Context, wizardType model.WizardType) error {
	var err error
	if wizardType != "" {
		err = r.actions.StartWizard(ctx, wizardType)
	} else {
		_, err = r.actions.StartSession(ctx, "", "", "")
	}
	if err != nil {
		return err
	}
	r.render()
	fmt.Fprintln(r.out, "type /help for commands")
	for {
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}
		if err := r.handle(ctx, line); err != nil {
			fmt.Fprintf(r.out, "! %s\n", api.DisplayError(err))
		}
		r.render()
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (r *Repl) handle(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		return r.actions.SendMessage(ctx, line, nil)
	}
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/help":
		fmt.Fprintln(r.out, help)
	case "/status":
		r.status()
	case "/complete":
		stepId := ""
		if len(args) > 0 {
			stepId = args[0]
		} else if w := r.actions.Store().GetState().Wizard; w != nil {
			stepId = w.CurrentStepId
		}
		return r.actions.CompleteStep(ctx, stepId)
	case "/goto":
		if len(args) != 1 {
			return fmt.Errorf("usage: /goto <step>")
		}
		return r.actions.GoToStep(args[0])
	case "/set":
		if len(args) < 2 {
			return fmt.Errorf("usage: /set <step> key=value ...")
		}
		data, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		return r.actions.UpdateStepData(args[0], data)
	case "/upload":
		if len(args) == 0 {
			return fmt.Errorf("usage: /upload <file> ...")
		}
		return r.actions.UploadDocuments(ctx, attachments(args), "")
	case "/sessions":
		if err := r.actions.LoadSessions(ctx); err != nil {
			return err
		}
		for _, s := range r.actions.Store().GetState().Sessions {
			fmt.Fprintf(r.out, "  %s  %s\n", s.Id, s.Name)
		}
	case "/stats":
		stats, err := r.actions.SessionStats()
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%d messages (%d from you, %d replies, %d notices), %d attachments, %.0f min\n",
			stats.TotalMessages, stats.UserMessages, stats.AssistantMessages, stats.SystemMessages,
			stats.TotalAttachments, stats.SessionDurationMinutes)
	case "/clear":
		if err := r.actions.ClearSession(ctx); err != nil {
			return err
		}
		r.lastId = ""
	case "/exit":
		r.actions.ExitWizard()
	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
	return nil
}

// render writes the messages that arrived since the last call. When the
// last written message was local and the history has since been replaced
// by the remote one, everything after the last user message is new.
func (r *Repl) render() {
	msgs := r.actions.Store().GetState().Messages
	start := 0
	if r.lastId != "" {
		start = -1
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Id == r.lastId {
				start = i + 1
				break
			}
		}
		if start < 0 {
			start = 0
			for i := len(msgs) - 1; i >= 0; i-- {
				if msgs[i].Role == model.ROLE_USER {
					start = i + 1
					break
				}
			}
		}
	}
	for _, m := range msgs[start:] {
		switch m.Role {
		case model.ROLE_USER:
			continue
		case model.ROLE_SYSTEM:
			fmt.Fprintf(r.out, "* %s\n", m.Content)
		default:
			fmt.Fprintf(r.out, "%s\n", m.Content)
		}
	}
	if len(msgs) > 0 {
		r.lastId = msgs[len(msgs)-1].Id
	}
}

func (r *Repl) status() {
	state := r.actions.Store().GetState()
	w := state.Wizard
	if w == nil {
		fmt.Fprintf(r.out, "no wizard (%s)\n", state.Phase)
		return
	}
	fmt.Fprintf(r.out, "%s %d%% (%s)\n", w.WizardType, w.CompletionPercentage, state.Phase)
	for i, step := range w.Steps {
		mark := " "
		if step.IsCompleted {
			mark = "x"
		}
		pointer := " "
		if step.IsActive {
			pointer = ">"
		}
		fmt.Fprintf(r.out, "%s [%s] %d. %s (%s)\n", pointer, mark, i+1, step.Title, step.Id)
	}
}

// parseAssignments turns key=value pairs into a fragment. Values that
// parse as numbers or booleans keep that type.
func parseAssignments(args []string) (map[string]any, error) {
	data := make(map[string]any, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			data[k] = f
		} else if b, err := strconv.ParseBool(v); err == nil {
			data[k] = b
		} else {
			data[k] = v
		}
	}
	return data, nil
}

func attachments(names []string) []model.Attachment {
	files := make([]model.Attachment, len(names))
	for i, name := range names {
		mimeType := mime.TypeByExtension(filepath.Ext(name))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		files[i] = model.Attachment{FileName: filepath.Base(name), MimeType: mimeType}
	}
	return files
}
