// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enhance turns raw markdown into AI-rewritten markdown and derives
// descriptive filenames for it. The completion service itself is an injected
// capability so tests (and offline runs) can supply a fake.
package enhance

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/marksnips/pkg/types"
)

// Completer is the injected "complete text" capability: one prompt in,
// one response out. Implementations fail with a *ServiceError on
// transport, quota, or auth problems.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ServiceError marks a completion-service failure. Callers use it to
// distinguish "the AI is unreachable" from local I/O errors.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion service: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// contentMarker is the placeholder substituted in prompt templates.
const contentMarker = "{content}"

// unsafeChars are characters never emitted in a generated filename.
var unsafeChars = strings.NewReplacer(
	`\`, "-", "/", "-", ":", "-", "*", "-",
	"?", "-", `"`, "-", "<", "-", ">", "-", "|", "-",
)

// separatorRuns matches runs of hyphens, underscores, and whitespace.
var separatorRuns = regexp.MustCompile(`[-_\s]+`)

// Enhancer applies the configured prompt templates through a Completer.
type Enhancer struct {
	completer Completer
	prompts   types.PromptsConfig

	// now is the clock; tests pin it for deterministic date prefixes.
	now func() time.Time
}

// New creates an Enhancer over the given completion capability.
func New(completer Completer, prompts types.PromptsConfig) *Enhancer {
	return &Enhancer{
		completer: completer,
		prompts:   prompts,
		now:       time.Now,
	}
}

// EnhanceContent rewrites markdownText through the enhancement prompt
// and strips the fenced-code wrapper the service tends to add around
// whole-document responses.
func (e *Enhancer) EnhanceContent(ctx context.Context, markdownText string) (string, error) {
	prompt := strings.ReplaceAll(e.prompts.EnhancementPrompt, contentMarker, markdownText)
	resp, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("enhancing content: %w", err)
	}
	return stripFence(resp), nil
}

// stripFence removes a single leading and trailing code-fence line.
// Only a leading ``` (optionally ```markdown) and a trailing ``` are
// touched; fences inside the document are preserved.
func stripFence(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		if first == "```" || first == "```markdown" {
			lines = lines[1:]
		}
	}
	if len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if last == "```" {
			lines = lines[:len(lines)-1]
		}
	}
	return strings.Join(lines, "\n")
}

// GenerateFilename asks the service for a descriptive name for
// markdownText, then normalizes it: trimmed, ".md" suffix, current date
// prefix, and no filesystem-unsafe characters. When the service fails
// it falls back to a deterministic name derived from originalPath; the
// fallback never touches the network.
func (e *Enhancer) GenerateFilename(ctx context.Context, markdownText, originalPath string) string {
	prompt := strings.ReplaceAll(e.prompts.FilenamePrompt, contentMarker, markdownText)
	resp, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return e.FallbackFilename(originalPath)
	}

	name := strings.TrimSpace(resp)
	if name == "" {
		return e.FallbackFilename(originalPath)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".md") {
		name += ".md"
	}
	name = unsafeChars.Replace(name)
	return e.datePrefix() + name
}

// FallbackFilename derives a deterministic name from the original
// filename: the MarkSnips_ prefix is dropped, runs of separators
// collapse to single hyphens, and the current date is prepended. Same
// input and same calendar date always yield the same output.
func (e *Enhancer) FallbackFilename(originalPath string) string {
	base := filepath.Base(originalPath)
	base = strings.TrimPrefix(base, "MarkSnips_")
	base = strings.TrimSuffix(base, filepath.Ext(base))

	base = unsafeChars.Replace(base)
	base = separatorRuns.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "note"
	}
	return e.datePrefix() + base + ".md"
}

func (e *Enhancer) datePrefix() string {
	return e.now().Format("2006-01-02") + "-"
}
