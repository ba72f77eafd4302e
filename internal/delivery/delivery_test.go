package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelssavage/spanish-worksheets/internal/llm"
	"github.com/michaelssavage/spanish-worksheets/internal/mail"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

// fakeSender records messages and fails when err is set.
type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fixture struct {
	store  *store.Store
	mock   *llm.MockProvider
	sender *fakeSender
	svc    *Service
}

func newFixture(t *testing.T, responses ...llm.MockResponse) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(context.Background(), store.Config{
		Driver: store.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mock := llm.NewMockProvider(responses...)
	gen, err := worksheet.NewGenerator(mock, s.Configs(), s.Worksheets(), worksheet.DefaultConfig(), nil)
	require.NoError(t, err)

	sender := &fakeSender{}
	return &fixture{
		store:  s,
		mock:   mock,
		sender: sender,
		svc:    NewService(gen, s.Recipients(), s.Worksheets(), sender, nil),
	}
}

func (f *fixture) user(t *testing.T, email string, recipients ...string) store.User {
	t.Helper()
	u, err := f.store.Users().Create(context.Background(), email, nil)
	require.NoError(t, err)
	for _, r := range recipients {
		_, err := f.store.Recipients().Add(context.Background(), u.ID, r, "")
		require.NoError(t, err)
	}
	return *u
}

const validV2 = `{"past": ["Ayer ____ (ir) al mercado."], "present": ["Hoy ____ (tener) frío."], "future": ["Mañana ____ (salir) temprano."], "vocab": ["El andén estaba lleno."]}`

func TestGenerateEmailsCreatedWorksheet(t *testing.T) {
	f := newFixture(t, llm.MockResponse{Text: validV2})
	u := f.user(t, "ana@example.com", "tutor@example.com", "ANA@example.com")

	res, err := f.svc.Generate(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, worksheet.OutcomeCreated, res.Outcome)
	assert.True(t, res.Emailed)
	assert.NoError(t, res.EmailErr)

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, []string{"ana@example.com", "tutor@example.com"}, msg.To)
	assert.Equal(t, mail.Subject, msg.Subject)
	assert.Contains(t, msg.Text, "Ayer ____ (ir) al mercado.")
}

func TestGenerateEmailFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, llm.MockResponse{Text: validV2})
	f.sender.err = &mail.ErrSend{Status: 500, Body: "boom"}
	u := f.user(t, "ana@example.com")

	res, err := f.svc.Generate(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, worksheet.OutcomeCreated, res.Outcome)
	assert.False(t, res.Emailed)
	assert.Error(t, res.EmailErr)

	n, err := f.store.Worksheets().CountByUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "worksheet stays stored when email fails")
}

func TestGenerateMalformedSendsNothing(t *testing.T) {
	f := newFixture(t, llm.MockResponse{Text: "nada"}, llm.MockResponse{Text: "nada"})
	u := f.user(t, "ana@example.com")

	res, err := f.svc.Generate(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, worksheet.OutcomeMalformed, res.Outcome)
	assert.Empty(t, f.sender.sent)
}

func TestResend(t *testing.T) {
	f := newFixture(t, llm.MockResponse{Text: validV2})
	u := f.user(t, "ana@example.com")

	_, err := f.svc.Resend(context.Background(), u)
	assert.ErrorIs(t, err, ErrNoWorksheet)

	_, err = f.svc.Generate(context.Background(), u)
	require.NoError(t, err)

	ws, err := f.svc.Resend(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, validV2, ws.Content)
	assert.Len(t, f.sender.sent, 2)

	f.sender.err = errors.New("connection refused")
	_, err = f.svc.Resend(context.Background(), u)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.NotErrorIs(t, err, ErrNoWorksheet)
}

func TestResendLoadFailureIsNotSendFailure(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ana@example.com")
	require.NoError(t, f.store.DB().Close())

	_, err := f.svc.Resend(context.Background(), u)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSendFailed)
	assert.NotErrorIs(t, err, ErrNoWorksheet)
	assert.Empty(t, f.sender.sent)
}

func TestLatest(t *testing.T) {
	f := newFixture(t, llm.MockResponse{Text: validV2})
	u := f.user(t, "ana@example.com")

	_, err := f.svc.Latest(context.Background(), u)
	assert.ErrorIs(t, err, ErrNoWorksheet)

	_, err = f.svc.Generate(context.Background(), u)
	require.NoError(t, err)
	ws, err := f.svc.Latest(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, store.ContentHash(validV2), ws.ContentHash)
}
