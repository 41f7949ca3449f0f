package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/legalease/internal/cache"
	"github.com/yoockh/legalease/internal/extract"
	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/utils"
	"github.com/yoockh/legalease/internal/workspace"
)

const rentText = "Rent is $1000/month, payable on the 1st."

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeLLM serves both the report and the chat side.
type fakeLLM struct {
	mu       sync.Mutex
	prompts  []string
	chats    [][]models.Turn
	genErr   error
	chatErrs []error
	reply    func(prompt string) string
	release  chan struct{}
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.genErr != nil {
		return "", f.genErr
	}
	if f.reply != nil {
		return f.reply(prompt), nil
	}
	return fmt.Sprintf("report #%d", len(f.prompts)), nil
}

func (f *fakeLLM) Chat(_ context.Context, history []models.Turn, onChunk func(string)) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, history)
	i := len(f.chats) - 1
	if i < len(f.chatErrs) && f.chatErrs[i] != nil {
		return "", f.chatErrs[i]
	}
	reply := "The monthly rent is $1000."
	if onChunk != nil {
		onChunk(reply)
	}
	return reply, nil
}

func (f *fakeLLM) generateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeConversations struct {
	mu        sync.Mutex
	exchanges []Exchange
}

func (f *fakeConversations) Record(_ context.Context, ex Exchange) ([]models.ConversationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, ex)
	return nil, nil
}

func (f *fakeConversations) ListBySession(context.Context, string, string, int) ([]models.ConversationLog, error) {
	return nil, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, []byte, string, models.Language) (string, float64, error) {
	return f.text, 0.9, f.err
}

type harness struct {
	llm    *fakeLLM
	convos *fakeConversations
	svc    AssistantService
}

func newHarness(t *testing.T, tr Transcriber) *harness {
	t.Helper()
	llm := &fakeLLM{}
	convos := &fakeConversations{}
	logger := quietLogger()

	svc := NewAssistantService(AssistantDeps{
		Store:         workspace.NewStore(models.LanguageEnglish),
		Manager:       workspace.NewManager(llm, nil, logger),
		Documents:     NewDocumentService(extract.New(logger), nil, nil, 1<<20, logger),
		Reports:       NewReportService(llm, cache.NewMemoryCache(0), 0, logger),
		Conversations: convos,
		Transcriber:   tr,
		Logger:        logger,
	})
	return &harness{llm: llm, convos: convos, svc: svc}
}

func upload(name, mime, body string) Upload {
	return Upload{FileName: name, MimeType: mime, Payload: []byte(body)}
}

func TestRentScenarioSummaryCachedPerLanguage(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.OnUpload(ctx, "u1", upload("doc.txt", "text/plain", rentText))
	require.NoError(t, err)

	english, err := h.svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, english.Content)
	assert.False(t, english.Cached)

	require.NoError(t, h.svc.OnLanguageChange(ctx, "u1", models.LanguageSpanish))
	spanish, err := h.svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, english.Content, spanish.Content)
	assert.Equal(t, models.LanguageSpanish, spanish.Language)

	require.NoError(t, h.svc.OnLanguageChange(ctx, "u1", "english"))
	again, err := h.svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, english.Content, again.Content)
	assert.True(t, again.Cached)
	assert.Equal(t, 2, h.llm.generateCalls())
}

func TestRentScenarioAskAddsTwoVisibleTurns(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.OnUpload(ctx, "u1", upload("doc.txt", "text/plain", rentText))
	require.NoError(t, err)
	before := len(slices.Collect(h.svc.VisibleHistory("u1")))

	reply, err := h.svc.OnUserMessage(ctx, "u1", models.TextTurn("What is the monthly rent?"), nil)
	require.NoError(t, err)
	assert.Contains(t, reply.Answer, "$1000")
	assert.NotEmpty(t, reply.SessionID)

	visible := slices.Collect(h.svc.VisibleHistory("u1"))
	require.Len(t, visible, before+2)
	assert.Equal(t, models.RoleAssistant, visible[len(visible)-1].Role)

	grounding := h.llm.chats[0][0].Text
	assert.Contains(t, grounding, rentText)

	require.Len(t, h.convos.exchanges, 1)
	assert.Equal(t, "What is the monthly rent?", h.convos.exchanges[0].Question.Text)
}

func TestComparisonFlagsClauseMissingFromSecondDocument(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	docA := "Term: 12 months. Termination: either party may terminate with 30 days notice."
	docB := "Term: 12 months. Payment: $500 per month."

	h.llm.reply = func(prompt string) string {
		first, second, _ := strings.Cut(prompt, "--- DOCUMENT 2 ---")
		if strings.Contains(first, "Termination") && !strings.Contains(second, "Termination") {
			return "| Termination | " + OnlyInDocument1 + " |"
		}
		return "no differences"
	}

	_, err := h.svc.OnUpload(ctx, "u1", upload("a.txt", "text/plain", docA))
	require.NoError(t, err)

	report, err := h.svc.Comparison(ctx, "u1", upload("b.txt", "text/plain", docB))
	require.NoError(t, err)
	assert.Equal(t, models.ReportComparison, report.Kind)
	assert.Contains(t, report.Content, "Termination")
	assert.Contains(t, report.Content, "Only in Document 1")

	prompt := h.llm.prompts[0]
	for _, c := range ComparisonCategories {
		assert.Contains(t, prompt, c)
	}
	assert.Contains(t, prompt, OnlyInDocument2)

	// the workspace document is unchanged
	assert.Equal(t, "a.txt", h.svc.Workspace("u1").Document.FileName)
}

func TestCompareUploadsDoesNotTouchWorkspace(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	report, err := h.svc.CompareUploads(ctx, "u1", upload("a.txt", "", "Confidentiality applies."), upload("b.txt", "", "No clauses."))
	require.NoError(t, err)
	assert.NotEmpty(t, report.Content)
	assert.Nil(t, h.svc.Workspace("u1").Document)
}

func TestReportsRequireDocument(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.Summary(ctx, "u1")
	assert.ErrorIs(t, err, utils.ErrNoDocument)
	_, err = h.svc.ClauseAnalysis(ctx, "u1")
	assert.ErrorIs(t, err, utils.ErrNoDocument)
	_, err = h.svc.OnUserMessage(ctx, "u1", models.TextTurn("hi"), nil)
	assert.ErrorIs(t, err, utils.ErrNoDocument)
	assert.Equal(t, 0, h.llm.generateCalls())
}

func TestEmptyDocumentIsPreconditionFailure(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.OnUpload(ctx, "u1", upload("blank.txt", "text/plain", "  \n "))
	require.NoError(t, err)

	_, err = h.svc.ClauseAnalysis(ctx, "u1")
	assert.ErrorIs(t, err, utils.ErrEmptyDocument)
	assert.True(t, utils.IsCode(err, utils.CodeFailedPrecondition))
	assert.Equal(t, 0, h.llm.generateCalls())
}

func TestFailedUploadKeepsPreviousDocument(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.OnUpload(ctx, "u1", upload("doc.txt", "text/plain", rentText))
	require.NoError(t, err)
	_, err = h.svc.OnUserMessage(ctx, "u1", models.TextTurn("q"), nil)
	require.NoError(t, err)
	sessionID := h.svc.Workspace("u1").SessionID

	_, err = h.svc.OnUpload(ctx, "u1", Upload{FileName: "bad.txt", MimeType: "text/plain", Payload: []byte{0xff, 0xfe}})
	assert.ErrorIs(t, err, utils.ErrEncoding)

	_, err = h.svc.OnUpload(ctx, "u1", upload("doc.docx", "application/msword", "x"))
	assert.ErrorIs(t, err, utils.ErrUnsupportedType)
	assert.Equal(t, 415, utils.HTTPStatus(err))

	view := h.svc.Workspace("u1")
	assert.Equal(t, "doc.txt", view.Document.FileName)
	assert.Equal(t, sessionID, view.SessionID)
	assert.Equal(t, 2, view.Turns)
}

func TestReuploadingSameFileKeepsConversation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.OnUpload(ctx, "u1", upload("doc.txt", "text/plain", rentText))
	require.NoError(t, err)
	first, err := h.svc.OnUserMessage(ctx, "u1", models.TextTurn("q"), nil)
	require.NoError(t, err)

	_, err = h.svc.OnUpload(ctx, "u1", upload("doc.txt", "text/plain", rentText))
	require.NoError(t, err)
	second, err := h.svc.OnUserMessage(ctx, "u1", models.TextTurn("q2"), nil)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	_, err = h.svc.OnUpload(ctx, "u1", upload("doc.txt", "text/plain", rentText+" Deposit is $500."))
	require.NoError(t, err)
	third, err := h.svc.OnUserMessage(ctx, "u1", models.TextTurn("q3"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, third.SessionID)
	assert.Len(t, slices.Collect(h.svc.VisibleHistory("u1")), 2)
}

func TestFailedQuestionCanBeRetried(t *testing.T) {
	h := newHarness(t, nil)
	h.llm.chatErrs = []error{errors.New("quota exhausted")}
	ctx := context.Background()

	_, err := h.svc.OnUpload(ctx, "u1", upload("doc.txt", "text/plain", rentText))
	require.NoError(t, err)

	_, err = h.svc.OnUserMessage(ctx, "u1", models.TextTurn("What is the monthly rent?"), nil)
	assert.ErrorIs(t, err, utils.ErrGeneration)
	assert.Equal(t, 503, utils.HTTPStatus(err))
	assert.Len(t, slices.Collect(h.svc.VisibleHistory("u1")), 1)
	assert.Empty(t, h.convos.exchanges)

	reply, err := h.svc.RetryLastMessage(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, "What is the monthly rent?", reply.Question.Text)
	assert.Len(t, slices.Collect(h.svc.VisibleHistory("u1")), 2)

	_, err = h.svc.RetryLastMessage(ctx, "u1", nil)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestAudioQuestionTranscript(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t, fakeTranscriber{text: "what is the rent"})
	_, err := h.svc.OnUpload(ctx, "u1", upload("doc.txt", "text/plain", rentText))
	require.NoError(t, err)
	reply, err := h.svc.OnUserMessage(ctx, "u1", models.AudioTurn([]byte("RIFF"), "audio/wav"), nil)
	require.NoError(t, err)
	assert.Equal(t, "what is the rent", reply.Question.DisplayText())

	sent := h.llm.chats[0]
	last := sent[len(sent)-1]
	assert.Equal(t, models.SpokenQuestionInstruction, last.Text)
	assert.True(t, last.IsAudio())

	h = newHarness(t, fakeTranscriber{err: errors.New("stt down")})
	_, err = h.svc.OnUpload(ctx, "u1", upload("doc.txt", "text/plain", rentText))
	require.NoError(t, err)
	reply, err = h.svc.OnUserMessage(ctx, "u1", models.AudioTurn([]byte("RIFF"), ""), nil)
	require.NoError(t, err)
	assert.Equal(t, "[User sent an audio question]", reply.Question.DisplayText())
}

func TestResetChatStartsFreshSession(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.OnUpload(ctx, "u1", upload("doc.txt", "text/plain", rentText))
	require.NoError(t, err)
	_, err = h.svc.OnUserMessage(ctx, "u1", models.TextTurn("q"), nil)
	require.NoError(t, err)

	h.svc.ResetChat(ctx, "u1")
	assert.Empty(t, slices.Collect(h.svc.VisibleHistory("u1")))
	assert.Empty(t, h.svc.Workspace("u1").SessionID)
}

func TestOnLanguageChangeRejectsUnknownLanguage(t *testing.T) {
	h := newHarness(t, nil)
	err := h.svc.OnLanguageChange(context.Background(), "u1", "Klingon")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	assert.Equal(t, models.LanguageEnglish, h.svc.Workspace("u1").Language)
}

func TestReportGenerationFailureLeavesNoReport(t *testing.T) {
	llm := &fakeLLM{genErr: context.DeadlineExceeded}
	svc := NewReportService(llm, cache.NewMemoryCache(0), 0, quietLogger())

	r, err := svc.Summary(context.Background(), rentText, models.LanguageEnglish)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, utils.ErrGeneration)
	assert.True(t, utils.IsCode(err, utils.CodeTimeout))

	llm.genErr = nil
	r, err = svc.Summary(context.Background(), rentText, models.LanguageEnglish)
	require.NoError(t, err)
	assert.False(t, r.Cached)
}

func TestConcurrentIdenticalReportsCallOnce(t *testing.T) {
	llm := &fakeLLM{release: make(chan struct{})}
	svc := NewReportService(llm, cache.NewMemoryCache(0), 0, quietLogger())

	var wg sync.WaitGroup
	results := make([]*models.Report, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.ClauseAnalysis(context.Background(), rentText, models.LanguageHindi)
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	close(llm.release)
	wg.Wait()

	assert.Equal(t, 1, llm.generateCalls())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "report #1", r.Content)
	}
}

// ctxLLM blocks until released and fails if its own context ends first.
type ctxLLM struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (f *ctxLLM) Generate(ctx context.Context, _ string) (string, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
	}
	select {
	case <-f.release:
		return "shared summary", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestAbandonedReportCallerDoesNotFailOthers(t *testing.T) {
	llm := &ctxLLM{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewReportService(llm, cache.NewMemoryCache(0), 0, quietLogger())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Summary(ctxA, rentText, models.LanguageEnglish)
		errA <- err
	}()
	<-llm.started

	type result struct {
		r   *models.Report
		err error
	}
	resB := make(chan result, 1)
	go func() {
		r, err := svc.Summary(context.Background(), rentText, models.LanguageEnglish)
		resB <- result{r, err}
	}()

	cancelA()
	err := <-errA
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	close(llm.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "shared summary", b.r.Content)
	assert.Equal(t, int32(1), llm.calls.Load())

	again, err := svc.Summary(context.Background(), rentText, models.LanguageEnglish)
	require.NoError(t, err)
	assert.True(t, again.Cached)
}

func TestReportCacheKey(t *testing.T) {
	a := ReportCacheKey(models.ReportComparison, models.LanguageEnglish, "ab", "c")
	b := ReportCacheKey(models.ReportComparison, models.LanguageEnglish, "a", "bc")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "report:comparison:english:"))
	assert.Equal(t, a, ReportCacheKey(models.ReportComparison, models.LanguageEnglish, "ab", "c"))
}

func TestDetectDocumentType(t *testing.T) {
	assert.Equal(t, models.DocumentTypePDF, DetectDocumentType("", "scan", []byte("%PDF-1.4\n")))
	assert.Equal(t, models.DocumentTypePlainText, DetectDocumentType("application/octet-stream", "notes", []byte("plain words")))
	assert.Equal(t, models.DocumentTypeUnsupported, DetectDocumentType("image/png", "x.png", []byte("\x89PNG")))
	assert.Equal(t, models.DocumentTypePlainText, DetectDocumentType("", "lease.txt", nil))
}

func TestDocumentIdentity(t *testing.T) {
	a := DocumentIdentity("doc.txt", []byte(rentText))
	assert.True(t, strings.HasPrefix(a, "doc.txt@"))
	assert.Len(t, strings.TrimPrefix(a, "doc.txt@"), 12)
	assert.Equal(t, a, DocumentIdentity("doc.txt", []byte(rentText)))
	assert.NotEqual(t, a, DocumentIdentity("doc.txt", []byte(rentText+".")))
}
