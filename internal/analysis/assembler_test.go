package analysis

import (
	"SafetyAnalyst/internal/config"
	"SafetyAnalyst/internal/metrics"
	"SafetyAnalyst/internal/service/image"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type call struct {
	text     string
	imageURL string
}

// fakeClient записывает вызовы и отвечает заданным результатом.
type fakeClient struct {
	mu     sync.Mutex
	calls  []call
	answer string
	err    error
	panic  any
	wait   bool
}

func (f *fakeClient) SendRequest(ctx context.Context, text string, imageURL string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{text: text, imageURL: imageURL})
	f.mu.Unlock()
	if f.panic != nil {
		panic(f.panic)
	}
	if f.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func (f *fakeClient) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.OpenAI.APIKey = "sk-test"
	return cfg
}

func newTestAssembler(t *testing.T, cfg *config.Config, client *fakeClient) *Assembler {
	t.Helper()
	return New(cfg, client, zaptest.NewLogger(t).Sugar())
}

func mustPayload(t *testing.T, filename string, data []byte) *image.Payload {
	t.Helper()
	p, err := image.NewPayload(filename, data)
	require.NoError(t, err)
	return p
}

func TestAnalyze_SuccessIsVerbatim(t *testing.T) {
	client := &fakeClient{answer: "## Hazard: missing hard hat"}
	a := newTestAssembler(t, testConfig(), client)

	res := a.Analyze(context.Background(), Request{
		Mode:  ModeGeneral,
		Image: mustPayload(t, "site.jpg", []byte{0xff, 0xd8, 0xff}),
	})

	require.True(t, res.OK())
	assert.Equal(t, "## Hazard: missing hard hat", res.Text)
	assert.Equal(t, "## Hazard: missing hard hat", res.Display())
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, ModeGeneral, res.Mode)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, Template(ModeGeneral), calls[0].text)
	assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff}), calls[0].imageURL)
}

func TestAnalyze_PNGStillTaggedJPEG(t *testing.T) {
	client := &fakeClient{answer: "ok"}
	a := newTestAssembler(t, testConfig(), client)

	res := a.Analyze(context.Background(), Request{
		Mode:  ModePPEChecklist,
		Image: mustPayload(t, "worker.png", []byte{0x89, 0x50, 0x4e, 0x47}),
	})
	require.True(t, res.OK())

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0].imageURL, "data:image/jpeg;base64,"))
}

func TestAnalyze_UserTextRequiresShowDetails(t *testing.T) {
	tests := []struct {
		name        string
		showDetails bool
		userText    string
		wantPrompt  string
	}{
		{
			name:        "details on",
			showDetails: true,
			userText:    "working at height on scaffold",
			wantPrompt:  Template(ModePPEChecklist) + "\n\nUser-supplied additional context:\nworking at height on scaffold",
		},
		{
			name:        "details off",
			showDetails: false,
			userText:    "working at height on scaffold",
			wantPrompt:  Template(ModePPEChecklist),
		},
		{
			name:        "blank text",
			showDetails: true,
			userText:    "  \n ",
			wantPrompt:  Template(ModePPEChecklist),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{answer: "ok"}
			a := newTestAssembler(t, testConfig(), client)

			res := a.Analyze(context.Background(), Request{
				Mode:        ModePPEChecklist,
				Image:       mustPayload(t, "a.jpg", []byte{1}),
				ShowDetails: tt.showDetails,
				UserText:    tt.userText,
			})
			require.True(t, res.OK())
			calls := client.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantPrompt, calls[0].text)
		})
	}
}

func TestAnalyze_MissingImageMakesNoCall(t *testing.T) {
	client := &fakeClient{answer: "ok"}
	a := newTestAssembler(t, testConfig(), client)

	res := a.Analyze(context.Background(), Request{Mode: ModePPEChecklist, ShowDetails: true, UserText: "x"})

	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, ErrMissingInput)
	assert.Equal(t, "TBM 이미지를 업로드해주세요.", res.Display())
	assert.Empty(t, client.Calls())
}

func TestAnalyze_MissingCredentialMakesNoCall(t *testing.T) {
	client := &fakeClient{answer: "ok"}
	cfg := config.Defaults()
	a := newTestAssembler(t, cfg, client)

	res := a.Analyze(context.Background(), Request{Mode: ModeGeneral, Image: mustPayload(t, "a.jpg", []byte{1})})

	assert.ErrorIs(t, res.Err, ErrMissingCredential)
	assert.Equal(t, "유효한 OpenAI API 키를 제공해 주세요.", res.Display())
	assert.Empty(t, client.Calls())
}

func TestAnalyze_UnknownMode(t *testing.T) {
	client := &fakeClient{answer: "ok"}
	a := newTestAssembler(t, testConfig(), client)

	res := a.Analyze(context.Background(), Request{Mode: "other", Image: mustPayload(t, "a.jpg", []byte{1})})

	assert.ErrorIs(t, res.Err, ErrUnknownMode)
	assert.Empty(t, client.Calls())
}

func TestAnalyze_RemoteFailureIsDisplayed(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limit exceeded")}
	a := newTestAssembler(t, testConfig(), client)

	res := a.Analyze(context.Background(), Request{Mode: ModeGeneral, Image: mustPayload(t, "a.jpg", []byte{1})})

	require.False(t, res.OK())
	var remote *RemoteError
	require.ErrorAs(t, res.Err, &remote)
	assert.Contains(t, res.Display(), "rate limit exceeded")
	assert.Equal(t, "오류 발생: rate limit exceeded", res.Display())
	assert.Empty(t, res.Text)
	assert.Len(t, client.Calls(), 1)
}

func TestAnalyze_PanicIsContained(t *testing.T) {
	client := &fakeClient{panic: "boom"}
	a := newTestAssembler(t, testConfig(), client)

	var res Result
	require.NotPanics(t, func() {
		res = a.Analyze(context.Background(), Request{Mode: ModeGeneral, Image: mustPayload(t, "a.jpg", []byte{1})})
	})

	var remote *RemoteError
	require.ErrorAs(t, res.Err, &remote)
	assert.Contains(t, res.Display(), "boom")
}

func TestAnalyze_TimeoutIsRemoteFailure(t *testing.T) {
	client := &fakeClient{wait: true}
	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	a := newTestAssembler(t, cfg, client)

	res := a.Analyze(context.Background(), Request{Mode: ModeGeneral, Image: mustPayload(t, "a.jpg", []byte{1})})

	var remote *RemoteError
	require.ErrorAs(t, res.Err, &remote)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Contains(t, res.Display(), "inference request timeout")
}

func TestAnalyze_SequentialCallsAreIndependent(t *testing.T) {
	client := &fakeClient{answer: "ok"}
	a := newTestAssembler(t, testConfig(), client)

	first := a.Analyze(context.Background(), Request{Mode: ModeGeneral, Image: mustPayload(t, "a.jpg", []byte{1, 2})})
	second := a.Analyze(context.Background(), Request{Mode: ModeGeneral, Image: mustPayload(t, "b.jpg", []byte{3, 4})})
	third := a.Analyze(context.Background(), Request{Mode: ModeGeneral, Image: mustPayload(t, "b.jpg", []byte{3, 4})})

	calls := client.Calls()
	require.Len(t, calls, 3)
	assert.NotEqual(t, calls[0].imageURL, calls[1].imageURL)
	assert.Equal(t, calls[1].imageURL, calls[2].imageURL)
	assert.NotEqual(t, first.RequestID, second.RequestID)
	assert.NotEqual(t, second.RequestID, third.RequestID)
}

func TestAnalyze_UnknownModeWithoutCredentialAddsNoSeries(t *testing.T) {
	client := &fakeClient{answer: "ok"}
	a := newTestAssembler(t, config.Defaults(), client)

	before := testutil.CollectAndCount(metrics.AnalysesTotal)
	res := a.Analyze(context.Background(), Request{Mode: "random-label-value", Image: mustPayload(t, "a.jpg", []byte{1})})

	assert.ErrorIs(t, res.Err, ErrUnknownMode)
	assert.NotErrorIs(t, res.Err, ErrMissingCredential)
	assert.Equal(t, before, testutil.CollectAndCount(metrics.AnalysesTotal))
	assert.Empty(t, client.Calls())
}

func TestAnalyze_BlankContextLoggedAsAbsent(t *testing.T) {
	tests := []struct {
		name     string
		userText string
		want     bool
	}{
		{name: "whitespace", userText: " \n\t ", want: false},
		{name: "text", userText: "scaffold", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			client := &fakeClient{answer: "ok"}
			a := New(testConfig(), client, zap.New(core).Sugar())

			res := a.Analyze(context.Background(), Request{
				Mode:        ModeGeneral,
				Image:       mustPayload(t, "a.jpg", []byte{1}),
				ShowDetails: true,
				UserText:    tt.userText,
			})
			require.True(t, res.OK())

			entries := logs.FilterMessage("Отправка изображения на анализ").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].ContextMap()["with_context"])
		})
	}
}
