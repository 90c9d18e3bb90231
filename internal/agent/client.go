// Package agent wraps the external openclaw CLI. The agent is handed a
// natural-language instruction, manipulates the board through its own API
// access, and replies with the IDs of what it created.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/arctek/blaze/internal/db"
)

// sessionID keeps agent invocations in one named conversation so the CLI can
// reuse context across calls.
const sessionID = "blaze-agent"

// Client runs the openclaw CLI for natural-language board operations.
type Client struct {
	bin     string
	timeout time.Duration
	audit   *db.AuditStore
	logger  *slog.Logger
}

// NewClient creates a CLI-backed agent client. audit may be nil to skip
// invocation logging.
func NewClient(bin string, timeout time.Duration, audit *db.AuditStore, logger *slog.Logger) *Client {
	if path, err := exec.LookPath(bin); err == nil {
		bin = path
	}
	return &Client{
		bin:     bin,
		timeout: timeout,
		audit:   audit,
		logger:  logger,
	}
}

// envelope is the CLI's --json output format.
type envelope struct {
	Status string `json:"status"`
	Result struct {
		Payloads []struct {
			Text string `json:"text"`
		} `json:"payloads"`
	} `json:"result"`
}

// idPattern matches the 12-char lowercase hex IDs the board allocates.
var idPattern = regexp.MustCompile(`\b[a-f0-9]{12}\b`)

// templateFuncs provides custom functions for prompt templates.
var templateFuncs = template.FuncMap{
	"title": cases.Title(language.English).String,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join":  strings.Join,
}

var (
	createCardsTmpl = template.Must(template.New("create-cards").Funcs(templateFuncs).Parse(
		`Create kanban cards for the following request. Use the board API to create each card{{if .Column}} in the {{.Column}} column{{end}}.

Request:
{{.Prompt}}

When you are done, reply with ONLY a JSON array of the created card IDs, for example ["a1b2c3d4e5f6"]. No other text.`))

	createPlanTmpl = template.Must(template.New("create-plan").Funcs(templateFuncs).Parse(
		`Create a project plan for the following product idea. Use the board API to create one plan with a short title and attach the planning documents (such as plan.md and architecture.md) as plan files.

Idea:
{{.Idea}}

When you are done, reply with ONLY the created plan ID, for example a1b2c3d4e5f6. No other text.`))

	generateCardsTmpl = template.Must(template.New("generate-cards").Funcs(templateFuncs).Parse(
		`Read plan {{.PlanID}} through the board API and break it down into implementation cards. Create each card in the backlog column with acceptance criteria, and mark cards suitable for autonomous work as agent-assignable.
{{if .ExtraContext}}
Additional context:
{{.ExtraContext}}
{{end}}
When you are done, reply with ONLY a JSON array of the created card IDs, for example ["a1b2c3d4e5f6"]. No other text.`))
)

// promptData feeds the prompt templates.
type promptData struct {
	Prompt       string
	Column       string
	Idea         string
	PlanID       string
	ExtraContext string
}

// CreateCardsFromPrompt asks the agent to turn a free-form request into cards
// and returns the created card IDs.
func (c *Client) CreateCardsFromPrompt(ctx context.Context, prompt, column string) ([]string, error) {
	rendered, err := renderPrompt(createCardsTmpl, promptData{Prompt: prompt, Column: column})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, "create_cards", rendered)
}

// CreatePlanFromIdea asks the agent to turn a product idea into a plan and
// returns the created plan ID.
func (c *Client) CreatePlanFromIdea(ctx context.Context, idea string) (string, error) {
	rendered, err := renderPrompt(createPlanTmpl, promptData{Idea: idea})
	if err != nil {
		return "", err
	}
	ids, err := c.invoke(ctx, "create_plan", rendered)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// GenerateCardsFromPlan asks the agent to break an existing plan into
// implementation cards and returns the created card IDs.
func (c *Client) GenerateCardsFromPlan(ctx context.Context, planID, extraContext string) ([]string, error) {
	rendered, err := renderPrompt(generateCardsTmpl, promptData{PlanID: planID, ExtraContext: extraContext})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, "generate_cards", rendered)
}

func renderPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// invoke runs one agent call end to end and records it in the audit log.
func (c *Client) invoke(ctx context.Context, operation, prompt string) ([]string, error) {
	start := time.Now()
	response, err := c.run(ctx, prompt)
	if err == nil {
		var ids []string
		ids, err = extractIDs(response)
		if err == nil {
			c.recordAudit(operation, prompt, ids, nil, time.Since(start))
			return ids, nil
		}
	}
	c.logger.Error("agent invocation failed", "operation", operation, "error", err)
	c.recordAudit(operation, prompt, nil, err, time.Since(start))
	return nil, err
}

// run executes the CLI with the rendered prompt and returns the agent's text
// reply.
func (c *Client) run(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{
		"agent",
		"--session-id", sessionID,
		"--message", prompt,
		"--json",
		"--timeout", strconv.Itoa(int(c.timeout.Seconds())),
	}
	cmd := exec.CommandContext(ctx, c.bin, args...) // #nosec G204 -- bin is from startup config

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// The CLI spawns children of its own. On timeout the whole process
	// group is killed so nothing keeps mutating the board after the
	// request has failed.
	setProcAttr(cmd)

	c.logger.Info("invoking agent", "bin", c.bin, "timeout", c.timeout)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("agent timed out after %s", c.timeout)
		}
		return "", fmt.Errorf("agent exited with error: %w: %s", err, trim(stderr.String(), 200))
	}

	var env envelope
	if err := json.Unmarshal(stdout.Bytes(), &env); err != nil {
		return "", fmt.Errorf("failed to parse agent output: %w: %s", err, trim(stdout.String(), 200))
	}
	if env.Status == "error" {
		return "", fmt.Errorf("agent reported failure: %s", trim(payloadText(env), 200))
	}
	return payloadText(env), nil
}

func payloadText(env envelope) string {
	var parts []string
	for _, p := range env.Result.Payloads {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// extractIDs pulls the created-entity IDs out of the agent's reply. Tried in
// order: a strict JSON array of IDs, a bare single ID, then any 12-char hex
// tokens found in the surrounding prose. An answer with no recognizable IDs
// is a hard error.
func extractIDs(response string) ([]string, error) {
	trimmed := strings.TrimSpace(response)

	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			var ids []string
			if err := json.Unmarshal([]byte(trimmed[start:end+1]), &ids); err == nil {
				valid := ids[:0]
				for _, id := range ids {
					if idPattern.MatchString(id) {
						valid = append(valid, id)
					}
				}
				if len(valid) > 0 {
					return valid, nil
				}
			}
		}
	}

	if idPattern.MatchString(trimmed) && len(trimmed) == 12 {
		return []string{trimmed}, nil
	}

	if found := idPattern.FindAllString(trimmed, -1); len(found) > 0 {
		seen := make(map[string]bool, len(found))
		ids := found[:0]
		for _, id := range found {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	return nil, fmt.Errorf("no entity IDs in agent response: %s", trim(trimmed, 200))
}

func (c *Client) recordAudit(operation, prompt string, ids []string, invokeErr error, duration time.Duration) {
	if c.audit == nil {
		return
	}
	status := "success"
	errMsg := ""
	if invokeErr != nil {
		status = "error"
		errMsg = invokeErr.Error()
	}
	if err := c.audit.Record(operation, prompt, status, ids, errMsg, duration); err != nil {
		c.logger.Error("failed to record agent audit entry", "error", err)
	}
}

// trim caps s for inclusion in error messages.
func trim(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
