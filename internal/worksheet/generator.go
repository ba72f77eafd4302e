package worksheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/michaelssavage/spanish-worksheets/internal/llm"
	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
)

// Outcome classifies a generation attempt that did not fail.
type Outcome string

const (
	// OutcomeCreated means a new worksheet was stored.
	OutcomeCreated Outcome = "created"
	// OutcomeDuplicate means the content already existed; nothing was written.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeMalformed means no valid worksheet could be recovered.
	OutcomeMalformed Outcome = "malformed"
	// OutcomeValid is returned by Preview for content that passed
	// validation but was not stored.
	OutcomeValid Outcome = "valid"
)

// Result is the outcome of one generation. Only OutcomeCreated carries a
// Worksheet.
type Result struct {
	Outcome   Outcome
	Worksheet *store.Worksheet
	Content   Content
	Themes    []string
	// Raw is the last model reply, kept for diagnostics.
	Raw string
	// Repaired reports whether the repair request was made.
	Repaired bool
	// Reason explains a duplicate or malformed outcome.
	Reason string
}

// Generator runs the worksheet pipeline: rotate themes, build the prompt,
// call the model, extract, validate and commit.
type Generator struct {
	provider   llm.Provider
	rotator    *Rotator
	worksheets store.WorksheetRepo
	repairer   *Repairer
	validator  *Validator
	version    SchemaVersion
	config     Config
	log        *logger.Logger
}

// NewGenerator wires a Generator. cfg must pass Validate.
func NewGenerator(provider llm.Provider, cursor CursorStore, worksheets store.WorksheetRepo, cfg Config, log *logger.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	version, err := LookupVersion(cfg.SchemaVersion)
	if err != nil {
		return nil, err
	}
	rotator, err := NewRotator(cursor, cfg.Pools)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{
		provider:   provider,
		rotator:    rotator,
		worksheets: worksheets,
		repairer:   NewRepairer(provider, cfg),
		validator:  NewValidator(version),
		version:    version,
		config:     cfg,
		log:        log.With("component", "worksheet", "schema_version", version.Name),
	}, nil
}

// Version returns the active schema version.
func (g *Generator) Version() SchemaVersion {
	return g.version
}

// GenerateFor produces and stores a new worksheet for user. Duplicate and
// malformed results are returned with a nil error. The theme cursor is
// advanced even when a later step fails.
func (g *Generator) GenerateFor(ctx context.Context, user store.User) (*Result, error) {
	log := g.log.With("user_id", user.ID)

	themes, err := g.rotator.Next(ctx)
	if err != nil {
		return nil, err
	}
	forbidden, err := g.forbidden(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	res, err := g.run(ctx, themes, forbidden)
	if err != nil {
		return nil, err
	}
	if res.Outcome == OutcomeMalformed {
		log.Warn("worksheet output malformed", "reason", res.Reason, "repaired", res.Repaired, "themes", themes)
		return res, nil
	}

	ws, err := g.worksheets.Commit(ctx, store.NewWorksheet{
		UserID:        user.ID,
		Content:       res.Raw,
		Themes:        themes,
		SchemaVersion: g.version.Name,
	})
	if errors.Is(err, store.ErrDuplicate) {
		res.Outcome = OutcomeDuplicate
		res.Reason = "content hash already stored"
		log.Warn("worksheet duplicate", "hash", store.ContentHash(res.Raw))
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	res.Outcome = OutcomeCreated
	res.Worksheet = ws
	log.Info("worksheet created", "worksheet_id", ws.ID, "themes", themes, "repaired", res.Repaired)
	return res, nil
}

// Preview runs the pipeline up to validation without persisting. Empty
// themes draw from the rotation.
func (g *Generator) Preview(ctx context.Context, themes []string) (*Result, error) {
	themes, err := g.themesOrNext(ctx, themes)
	if err != nil {
		return nil, err
	}
	return g.run(ctx, themes, nil)
}

// Passthrough sends the generation prompt and returns the model's reply
// untouched. Empty themes draw from the rotation.
func (g *Generator) Passthrough(ctx context.Context, themes []string) (string, []string, error) {
	themes, err := g.themesOrNext(ctx, themes)
	if err != nil {
		return "", nil, err
	}
	prompt := BuildPrompt(g.version, themes, nil)
	resp, err := g.provider.Generate(llm.WithPurpose(ctx, PurposePassthrough), g.request(prompt))
	if err != nil {
		return "", themes, fmt.Errorf("generate: %w", err)
	}
	return resp.Text, themes, nil
}

// run calls the model and recovers validated content. On success the
// result's Raw field holds the extracted JSON text that will be stored.
func (g *Generator) run(ctx context.Context, themes, forbidden []string) (*Result, error) {
	res := &Result{Themes: themes}

	prompt := BuildPrompt(g.version, themes, forbidden)
	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	res.Raw = raw

	text, strategy, ok := ExtractWithStrategy(raw)
	if !ok && g.config.Repair {
		res.Repaired = true
		repaired, err := g.repairer.Repair(ctx, g.version, raw)
		if err != nil {
			return nil, err
		}
		res.Raw = repaired
		text, strategy, ok = ExtractWithStrategy(repaired)
	}
	if !ok {
		res.Outcome = OutcomeMalformed
		res.Reason = "no JSON object found in model output"
		return res, nil
	}

	content, err := g.validator.Validate(text)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			res.Outcome = OutcomeMalformed
			res.Reason = verr.Error()
			return res, nil
		}
		return nil, err
	}

	g.log.Debug("worksheet extracted", "strategy", strategy)
	res.Raw = text
	res.Content = content
	res.Outcome = OutcomeValid
	return res, nil
}

// generate makes the single generation request. A structured-output reply
// the provider rejected is handed on as text so the extractor and the
// validator decide its fate.
func (g *Generator) generate(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := g.provider.Generate(llm.WithPurpose(ctx, PurposeGenerate), g.request(prompt))
	if err == nil {
		return resp.Text, nil
	}
	if text, ok := llm.ReplyText(err); ok {
		return text, nil
	}
	return "", fmt.Errorf("generate: %w", err)
}

func (g *Generator) request(prompt Prompt) llm.Request {
	req := llm.Request{
		System:      prompt.System,
		Messages:    prompt.Messages(),
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}
	if g.config.StructuredOutput {
		req.Schema = g.version.OutputSchema()
	}
	return req
}

func (g *Generator) themesOrNext(ctx context.Context, themes []string) ([]string, error) {
	if len(themes) > 0 {
		return themes, nil
	}
	return g.rotator.Next(ctx)
}

// forbidden collects up to ForbiddenSentences sentences from the user's
// current worksheet.
func (g *Generator) forbidden(ctx context.Context, userID int) ([]string, error) {
	if g.config.ForbiddenSentences == 0 {
		return nil, nil
	}
	ws, err := g.worksheets.Latest(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load current worksheet: %w", err)
	}
	if ws == nil {
		return nil, nil
	}
	content, err := ParseContent(ws.Content)
	if err != nil {
		// Stored content predating the current layout is not fatal here.
		return nil, nil
	}
	version, err := LookupVersion(ws.SchemaVersion)
	if err != nil {
		version = g.version
	}
	return content.Sentences(version, g.config.ForbiddenSentences), nil
}
