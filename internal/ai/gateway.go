package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/good-yellow-bee/devroom/internal/metrics"
	"github.com/good-yellow-bee/devroom/internal/models"
)

// Kind classifies a generation failure.
type Kind int

const (
	// TransportError means the generator call itself failed.
	TransportError Kind = iota + 1
	// SchemaViolation means the output parsed but lacks what the request needs.
	SchemaViolation
	// ParseFailure means the output could not be repaired into JSON.
	ParseFailure
)

func (k Kind) String() string {
	switch k {
	case TransportError:
		return "transport_error"
	case SchemaViolation:
		return "schema_violation"
	case ParseFailure:
		return "parse_failure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// maxRawInError bounds how much raw output is echoed in error messages.
const maxRawInError = 2000

// Error is a failed generation. Raw holds the generator output, if any.
type Error struct {
	Kind    Kind
	Message string
	Raw     string
	Err     error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrTransport       = &Error{Kind: TransportError}
	ErrSchemaViolation = &Error{Kind: SchemaViolation}
	ErrParseFailure    = &Error{Kind: ParseFailure}
)

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case TransportError:
		b.WriteString("generation failed")
	case ParseFailure:
		b.WriteString("parsing failed")
	default:
		b.WriteString("invalid response")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Raw != "" {
		raw := e.Raw
		if len(raw) > maxRawInError {
			cut := maxRawInError
			for cut > 0 && !utf8.RuneStart(raw[cut]) {
				cut--
			}
			raw = raw[:cut] + "..."
		}
		b.WriteString(". Raw response: ")
		b.WriteString(raw)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Raw == "" && t.Err == nil && t.Kind == e.Kind
}

// creationVerb matches the creation verbs and their present-tense inflections
// as whole words, so "makefile" or "builder" do not count.
var creationVerb = regexp.MustCompile(`(?i)\b(creat(e|es|ing)|build(s|ing)?|mak(e|es|ing)|generat(e|es|ing)|writ(e|es|ing)|implement(s|ing)?|scaffold(s|ing)?)\b`)

// wantsFiles reports whether the prompt asks for code rather than an explanation.
func wantsFiles(prompt string) bool {
	return creationVerb.MatchString(prompt)
}

// Gateway wraps a Generator with the prompt envelope and output validation.
// It makes exactly one generator call per Generate.
type Gateway struct {
	gen    Generator
	system string
}

// NewGateway creates a gateway over gen.
func NewGateway(gen Generator) *Gateway {
	return &Gateway{gen: gen, system: SystemPrompt()}
}

// Generate produces a structured reply for prompt. Failures are *Error.
func (g *Gateway) Generate(ctx context.Context, prompt string) (*models.StructuredReply, error) {
	start := time.Now()
	reply, err := g.generate(ctx, prompt)
	metrics.AIGenerationDuration.Observe(time.Since(start).Seconds())

	outcome := "ok"
	var genErr *Error
	if errors.As(err, &genErr) {
		outcome = genErr.Kind.String()
	}
	metrics.AIGenerationsTotal.WithLabelValues(outcome).Inc()
	return reply, err
}

func (g *Gateway) generate(ctx context.Context, prompt string) (*models.StructuredReply, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, &Error{Kind: SchemaViolation, Message: "empty prompt"}
	}

	raw, err := g.gen.Complete(ctx, g.system, prompt)
	if err != nil {
		log.Printf("ai generate: generator call failed: %v", err)
		return nil, &Error{Kind: TransportError, Err: err}
	}

	reply, err := parseReply(raw)
	if err != nil {
		log.Printf("ai generate: %v", err)
		return nil, err
	}

	if len(reply.Files) == 0 && wantsFiles(prompt) {
		return nil, &Error{Kind: SchemaViolation, Message: "no files returned for a code request", Raw: raw}
	}
	return reply, nil
}

type wireReply struct {
	Theory   *string                `json:"theory"`
	Example  string                 `json:"example"`
	Language string                 `json:"language"`
	Files    []models.GeneratedFile `json:"files"`
	Error    string                 `json:"error"`
}

// parseReply repairs, decodes and validates raw generator output.
func parseReply(raw string) (*models.StructuredReply, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &Error{Kind: ParseFailure, Message: "empty response"}
	}

	data := repairJSON(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &Error{Kind: ParseFailure, Err: err, Raw: raw}
	}

	// Some prompts wrap the reply as {"response": {...}}.
	body := data
	if inner, ok := top["response"]; ok {
		body = inner
	}

	var wire wireReply
	if err := json.Unmarshal(body, &wire); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &Error{Kind: ParseFailure, Err: err, Raw: raw}
		}
		return nil, &Error{Kind: SchemaViolation, Err: err, Raw: raw}
	}

	if wire.Error != "" {
		return nil, &Error{Kind: SchemaViolation, Message: "generator reported: " + wire.Error, Raw: raw}
	}
	if wire.Theory == nil || strings.TrimSpace(*wire.Theory) == "" {
		return nil, &Error{Kind: SchemaViolation, Message: "missing theory", Raw: raw}
	}

	lang := models.Language(strings.ToLower(strings.TrimSpace(wire.Language)))
	if lang != "" && !lang.Valid() {
		return nil, &Error{Kind: SchemaViolation, Message: fmt.Sprintf("unsupported language %q", wire.Language), Raw: raw}
	}
	for i, f := range wire.Files {
		if strings.TrimSpace(f.Name) == "" {
			return nil, &Error{Kind: SchemaViolation, Message: fmt.Sprintf("file %d has no name", i), Raw: raw}
		}
	}

	return &models.StructuredReply{
		Theory:   *wire.Theory,
		Example:  wire.Example,
		Language: lang,
		Files:    wire.Files,
	}, nil
}
