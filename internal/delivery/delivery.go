// Package delivery turns generated worksheets into email: it runs the
// worksheet pipeline for a user, sends the result to the user and their
// recipients, and resends the current worksheet on request.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/mail"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

var (
	// ErrNoWorksheet is returned by Resend when the user has no worksheet.
	ErrNoWorksheet = errors.New("no worksheet to send")

	// ErrSendFailed wraps failures of the mail provider itself, as opposed
	// to loading or rendering the worksheet.
	ErrSendFailed = errors.New("email delivery failed")
)

// Sender delivers one email. *mail.Client implements it.
type Sender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Generator is the part of *worksheet.Generator the service drives.
type Generator interface {
	GenerateFor(ctx context.Context, user store.User) (*worksheet.Result, error)
	Passthrough(ctx context.Context, themes []string) (string, []string, error)
	Version() worksheet.SchemaVersion
}

// Result is a generation plus what happened to its email.
type Result struct {
	*worksheet.Result
	// Emailed reports that the worksheet was sent.
	Emailed bool
	// EmailErr is the send failure, if any. It never fails the generation.
	EmailErr error
}

// Service wires the generator to storage and mail.
type Service struct {
	generator  Generator
	recipients store.RecipientRepo
	worksheets store.WorksheetRepo
	sender     Sender
	log        *logger.Logger
}

// NewService returns a Service.
func NewService(gen Generator, recipients store.RecipientRepo, worksheets store.WorksheetRepo, sender Sender, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		generator:  gen,
		recipients: recipients,
		worksheets: worksheets,
		sender:     sender,
		log:        log.With("component", "delivery"),
	}
}

// Generate runs the pipeline for user and, when a worksheet was created,
// emails it. Email failures are logged and reported on the result.
func (s *Service) Generate(ctx context.Context, user store.User) (*Result, error) {
	res, err := s.generator.GenerateFor(ctx, user)
	if err != nil {
		return nil, err
	}
	out := &Result{Result: res}
	if res.Outcome != worksheet.OutcomeCreated {
		return out, nil
	}

	if err := s.Send(ctx, user, res.Worksheet); err != nil {
		out.EmailErr = err
		s.log.Error("worksheet email failed", "user_id", user.ID, "worksheet_id", res.Worksheet.ID, "error", err)
		return out, nil
	}
	out.Emailed = true
	return out, nil
}

// Resend emails the user's current worksheet again. It returns
// ErrNoWorksheet when there is none. Mail provider failures wrap
// ErrSendFailed; any other error is a load or render failure.
func (s *Service) Resend(ctx context.Context, user store.User) (*store.Worksheet, error) {
	ws, err := s.worksheets.Latest(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load worksheet: %w", err)
	}
	if ws == nil {
		return nil, ErrNoWorksheet
	}
	if err := s.Send(ctx, user, ws); err != nil {
		return ws, err
	}
	return ws, nil
}

// Latest returns the user's current worksheet or ErrNoWorksheet.
func (s *Service) Latest(ctx context.Context, user store.User) (*store.Worksheet, error) {
	ws, err := s.worksheets.Latest(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load worksheet: %w", err)
	}
	if ws == nil {
		return nil, ErrNoWorksheet
	}
	return ws, nil
}

// Passthrough returns the model's raw reply for themes.
func (s *Service) Passthrough(ctx context.Context, themes []string) (string, []string, error) {
	return s.generator.Passthrough(ctx, themes)
}

// Send renders ws and mails it to the user and their recipients.
func (s *Service) Send(ctx context.Context, user store.User, ws *store.Worksheet) error {
	version, err := worksheet.LookupVersion(ws.SchemaVersion)
	if err != nil {
		version = s.generator.Version()
	}
	msg, err := mail.RenderWorksheet(version, ws.Content)
	if err != nil {
		return err
	}

	extra, err := s.recipients.List(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}
	addrs := make([]string, len(extra))
	for i, r := range extra {
		addrs[i] = r.Email
	}
	msg.To = mail.Recipients(user.Email, addrs...)

	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: worksheet %d: %w", ErrSendFailed, ws.ID, err)
	}
	s.log.Info("worksheet emailed", "user_id", user.ID, "worksheet_id", ws.ID, "recipients", len(msg.To))
	return nil
}
