package draft

import (
	"context"
	"strings"
	"time"

	"github.com/dkeye/Counsel/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

type Kind int

const (
	// KindReply drafts an answer to a fresh client message.
	KindReply Kind = iota
	// KindRefine re-derives the draft from the retained client message and
	// a counselor instruction.
	KindRefine
)

func (k Kind) String() string {
	if k == KindRefine {
		return "refine"
	}
	return "reply"
}

// Request carries everything a job needs; the pipeline never reads room state.
type Request struct {
	Room domain.RoomCode
	Seq  uint64
	Kind Kind

	Utterance   string
	Instruction string
	RevisedBy   string
}

type Result struct {
	Request
	Draft domain.Draft
	Err   error
}

type Config struct {
	Timeout            time.Duration
	Prompts            Prompts
	ReplyErrorMessage  string
	RefineErrorMessage string
}

const (
	defaultReplyError  = "Could not generate an AI draft. Please try again."
	defaultRefineError = "Could not revise the AI draft. Please try again."
)

type Pipeline struct {
	gen Generator
	cfg Config
	wg  conc.WaitGroup
	now func() time.Time
}

func NewPipeline(gen Generator, cfg Config) *Pipeline {
	if cfg.ReplyErrorMessage == "" {
		cfg.ReplyErrorMessage = defaultReplyError
	}
	if cfg.RefineErrorMessage == "" {
		cfg.RefineErrorMessage = defaultRefineError
	}
	return &Pipeline{gen: gen, cfg: cfg, now: time.Now}
}

// Start runs req on a tracked goroutine and hands the outcome to deliver.
func (p *Pipeline) Start(ctx context.Context, req Request, deliver func(Result)) {
	p.wg.Go(func() {
		deliver(p.Run(ctx, req))
	})
}

// Run generates synchronously. Provider errors, timeouts, panics and blank
// output all come back as a *GenerationError.
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	logger := log.With().
		Str("module", "app.draft").
		Str("room", string(req.Room)).
		Str("kind", req.Kind.String()).
		Uint64("seq", req.Seq).
		Logger()

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	started := p.now()
	var (
		text string
		err  error
		pc   panics.Catcher
	)
	pc.Try(func() {
		text, err = p.gen.Generate(ctx, p.cfg.Prompts.Turns(req))
	})
	if rec := pc.Recovered(); rec != nil {
		err = rec.AsError()
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = ErrEmptyOutput
	}
	if err != nil {
		logger.Debug().Err(err).Dur("took", p.now().Sub(started)).Msg("generation failed")
		return Result{Request: req, Err: &GenerationError{Kind: req.Kind, Err: err}}
	}

	logger.Debug().Dur("took", p.now().Sub(started)).Int("chars", len(text)).Msg("draft generated")
	return Result{
		Request: req,
		Draft: domain.Draft{
			Text:      text,
			At:        p.now(),
			RevisedBy: req.RevisedBy,
		},
	}
}

// ErrorMessage is the generic counselor-facing text for a failed job.
func (p *Pipeline) ErrorMessage(kind Kind) string {
	if kind == KindRefine {
		return p.cfg.RefineErrorMessage
	}
	return p.cfg.ReplyErrorMessage
}

// Wait blocks until every started job has delivered.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
