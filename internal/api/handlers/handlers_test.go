package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/api/option"

	"mindmate/internal/api"
	"mindmate/internal/api/handlers"
	"mindmate/internal/config"
	"mindmate/internal/gemini"
	"mindmate/internal/gemini/mock_gemini"
	"mindmate/internal/models"
	"mindmate/internal/study"
)

const twoQuestions = "What is 2+2?\nA. 3\nB. 4\nC. 5\nD. 6\nAnswer: B\n\n" +
	"Capital of France?\nA. Rome\nB. Oslo\nC. Paris\nD. Bern\nAnswer: C\n"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Text(r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	return f.text, f.err
}

type fakeUploader struct {
	calls int
	key   string
	err   error
}

func (f *fakeUploader) UploadReport(_ context.Context, sessionID uuid.UUID, filename string, body io.Reader) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	data, _ := io.ReadAll(body)
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return "", errors.New("not a pdf")
	}
	f.key = "reports/" + sessionID.String() + "/" + filename
	return "https://pub.example.r2.dev/" + f.key, nil
}

// client replays the session cookie between requests, like a browser would.
type client struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

type testEnv struct {
	*client
	gen      *mock_gemini.MockGenerator
	store    *study.MemoryStore
	handler  *handlers.Handler
	uploader *fakeUploader
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	gen := mock_gemini.NewMockGenerator(ctrl)
	store := study.NewMemoryStore()
	h := handlers.NewHandler(store, gen, fakeExtractor{text: "Mitochondria are the powerhouse of the cell."}, nil, 1<<20)

	router := gin.New()
	router.Use(sessions.Sessions("mindmate_session", cookie.NewStore([]byte("test-secret"))))
	api.SetupRoutes(router, h, []string{"http://localhost:5173"})

	return &testEnv{
		client:  &client{t: t, router: router, cookies: map[string]*http.Cookie{}},
		gen:     gen,
		store:   store,
		handler: h,
	}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) json(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(filename string, content []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = part.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) uploadAndGenerate(t *testing.T) models.QuizResponse {
	t.Helper()
	rec := e.upload("notes.pdf", []byte("%PDF-1.4 fake"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	e.gen.EXPECT().GenerateText(gomock.Any(), gomock.Any()).Return(twoQuestions, nil)
	rec = e.json(http.MethodPost, "/api/quiz", models.GenerateQuizRequest{NumQuestions: 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.QuizResponse](t, rec)
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	rec := e.json(http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UP", decode[models.HealthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get(api.RequestIDHeader))
}

func TestActionsRequireDocument(t *testing.T) {
	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/session", nil},
		{http.MethodPost, "/api/ask", models.AskRequest{Question: "What?"}},
		{http.MethodPost, "/api/quiz", models.GenerateQuizRequest{NumQuestions: 3}},
		{http.MethodGet, "/api/quiz", nil},
		{http.MethodPut, "/api/quiz/answers/0", models.AnswerRequest{Answer: "A"}},
		{http.MethodPost, "/api/quiz/submit", nil},
		{http.MethodGet, "/api/quiz/report", nil},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			e := newEnv(t)

			rec := e.json(tc.method, tc.path, tc.body)

			assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
			assert.Contains(t, decode[models.ErrorResponse](t, rec).Error, handlers.ErrNoDocument.Error())
		})
	}
}

func TestUploadDocument(t *testing.T) {
	e := newEnv(t)

	rec := e.upload("Biology Notes.PDF", []byte("%PDF-1.4 fake"))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[models.UploadResponse](t, rec)
	assert.Equal(t, "Biology Notes.PDF", resp.DocumentName)
	assert.Equal(t, len("Mitochondria are the powerhouse of the cell."), resp.Characters)
	assert.Equal(t, 1, e.store.Len())

	rec = e.json(http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[models.SessionResponse](t, rec)
	assert.Equal(t, resp.SessionID, sess.SessionID)
	assert.False(t, sess.HasQuiz)
	assert.False(t, sess.Submitted)
}

func TestUploadDocumentRejectsBadInput(t *testing.T) {
	t.Run("not a pdf", func(t *testing.T) {
		e := newEnv(t)
		rec := e.upload("notes.docx", []byte("hello"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		e := newEnv(t)
		rec := e.json(http.MethodPost, "/api/documents", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("extraction failure", func(t *testing.T) {
		e := newEnv(t)
		e.handler.Extractor = fakeExtractor{err: errors.New("boom")}
		rec := e.upload("notes.pdf", []byte("%PDF"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, 0, e.store.Len())
	})
}

func TestUploadReplacesSession(t *testing.T) {
	e := newEnv(t)
	first := e.uploadAndGenerate(t)
	require.Len(t, first.Questions, 2)

	rec := e.upload("other.pdf", []byte("%PDF-1.4 other"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.json(http.MethodGet, "/api/quiz", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, e.store.Len())
}

func TestAsk(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.upload("notes.pdf", []byte("%PDF")).Code)

	e.gen.EXPECT().GenerateText(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, prompt string) (string, error) {
		assert.Equal(t, "Use the following notes:\nMitochondria are the powerhouse of the cell.\n\nQuestion: What powers the cell?\nAnswer:", prompt)
		return "The mitochondria.", nil
	})

	rec := e.json(http.MethodPost, "/api/ask", models.AskRequest{Question: "What powers the cell?"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "The mitochondria.", decode[models.AskResponse](t, rec).Answer)
}

func TestAskErrors(t *testing.T) {
	t.Run("blank question", func(t *testing.T) {
		e := newEnv(t)
		require.Equal(t, http.StatusCreated, e.upload("notes.pdf", []byte("%PDF")).Code)
		rec := e.json(http.MethodPost, "/api/ask", models.AskRequest{Question: "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("model failure", func(t *testing.T) {
		e := newEnv(t)
		require.Equal(t, http.StatusCreated, e.upload("notes.pdf", []byte("%PDF")).Code)
		e.gen.EXPECT().GenerateText(gomock.Any(), gomock.Any()).Return("", errors.New("quota exceeded"))
		rec := e.json(http.MethodPost, "/api/ask", models.AskRequest{Question: "Why?"})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestGenerateQuiz(t *testing.T) {
	e := newEnv(t)

	resp := e.uploadAndGenerate(t)

	assert.Equal(t, 2, resp.Requested)
	require.Len(t, resp.Questions, 2)
	assert.Equal(t, "What is 2+2?\nA. 3\nB. 4\nC. 5\nD. 6", resp.Questions[0].Text)
	assert.Equal(t, []string{"A", "B", "C", "D"}, resp.Questions[0].Choices)
	assert.Empty(t, resp.Questions[0].Selected)
	assert.Empty(t, resp.Warning)

	rec := e.json(http.MethodGet, "/api/quiz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"correct"`)
}

func TestGenerateQuizCountMismatch(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.upload("notes.pdf", []byte("%PDF")).Code)
	e.gen.EXPECT().GenerateText(gomock.Any(), gomock.Any()).Return(twoQuestions, nil)

	rec := e.json(http.MethodPost, "/api/quiz", models.GenerateQuizRequest{NumQuestions: 5})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[models.QuizResponse](t, rec)
	assert.Len(t, resp.Questions, 2)
	assert.NotEmpty(t, resp.Warning)
}

func TestGenerateQuizValidation(t *testing.T) {
	for _, n := range []int{0, -1, 11} {
		e := newEnv(t)
		require.Equal(t, http.StatusCreated, e.upload("notes.pdf", []byte("%PDF")).Code)

		rec := e.json(http.MethodPost, "/api/quiz", map[string]int{"num_questions": n})

		assert.Equal(t, http.StatusBadRequest, rec.Code, "num_questions=%d", n)
	}
}

func TestSelectAnswer(t *testing.T) {
	e := newEnv(t)
	e.uploadAndGenerate(t)

	rec := e.json(http.MethodPut, "/api/quiz/answers/1", models.AnswerRequest{Answer: "c"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[models.QuizResponse](t, rec)
	assert.Empty(t, resp.Questions[0].Selected)
	assert.Equal(t, "c", resp.Questions[1].Selected)

	rec = e.json(http.MethodPut, "/api/quiz/answers/1", models.AnswerRequest{Answer: ""})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.QuizResponse](t, rec).Questions[1].Selected)

	for _, tc := range []struct {
		path   string
		answer string
	}{
		{"/api/quiz/answers/0", "E"},
		{"/api/quiz/answers/2", "A"},
		{"/api/quiz/answers/-1", "A"},
		{"/api/quiz/answers/first", "A"},
	} {
		rec := e.json(http.MethodPut, tc.path, models.AnswerRequest{Answer: tc.answer})
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.path)
	}
}

func TestSubmitQuizAndDownloadReport(t *testing.T) {
	e := newEnv(t)
	e.uploadAndGenerate(t)

	rec := e.json(http.MethodGet, "/api/quiz/report", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK, e.json(http.MethodPut, "/api/quiz/answers/1", models.AnswerRequest{Answer: "c"}).Code)

	rec = e.json(http.MethodPost, "/api/quiz/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[models.SubmitResponse](t, rec)
	assert.Equal(t, "1/1", resp.Score)
	assert.Equal(t, "Your Final Score: 1/1", resp.Summary)
	assert.Equal(t, []string{"Q1) You didn't answer this question."}, resp.Warnings)
	require.Len(t, resp.Outcomes, 2)
	assert.Equal(t, "unanswered", resp.Outcomes[0].Status)
	assert.Equal(t, "Q2) You chose c — Correct", resp.Outcomes[1].Message)
	assert.Empty(t, resp.ReportURL)

	rec = e.json(http.MethodGet, "/api/quiz/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "quiz_result.pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = e.json(http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[models.SessionResponse](t, rec)
	assert.True(t, sess.Submitted)
	assert.Equal(t, "1/1", sess.Score)
}

func TestSubmitWithoutQuiz(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.upload("notes.pdf", []byte("%PDF")).Code)

	rec := e.json(http.MethodPost, "/api/quiz/submit", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitArchivesReport(t *testing.T) {
	e := newEnv(t)
	e.handler.Reports = &fakeUploader{}
	quizResp := e.uploadAndGenerate(t)
	require.Len(t, quizResp.Questions, 2)

	rec := e.json(http.MethodPost, "/api/quiz/submit", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[models.SubmitResponse](t, rec)
	assert.Equal(t, "0/0", resp.Score)
	assert.Len(t, resp.Warnings, 2)
	assert.True(t, strings.HasSuffix(resp.ReportURL, "/quiz_result.pdf"), resp.ReportURL)
}

func TestSubmitArchiveFailureKeepsReport(t *testing.T) {
	e := newEnv(t)
	uploader := &fakeUploader{err: errors.New("bucket unavailable")}
	e.handler.Reports = uploader
	e.uploadAndGenerate(t)

	rec := e.json(http.MethodPost, "/api/quiz/submit", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.SubmitResponse](t, rec).ReportURL)
	assert.Equal(t, 1, uploader.calls)
	assert.Equal(t, http.StatusOK, e.json(http.MethodGet, "/api/quiz/report", nil).Code)
}

func TestUnknownSessionCookie(t *testing.T) {
	e := newEnv(t)
	rec := e.upload("notes.pdf", []byte("%PDF"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[models.UploadResponse](t, rec).SessionID
	require.NoError(t, e.store.Delete(context.Background(), id))

	rec = e.json(http.MethodGet, "/api/session", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

type failingSaveStore struct {
	*study.MemoryStore
}

func (failingSaveStore) Save(context.Context, *study.Session) error {
	return errors.New("database unavailable")
}

func TestUploadKeepsPreviousSessionWhenSaveFails(t *testing.T) {
	e := newEnv(t)
	rec := e.upload("first.pdf", []byte("%PDF"))
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[models.UploadResponse](t, rec).SessionID

	e.handler.Store = failingSaveStore{e.store}
	rec = e.upload("second.pdf", []byte("%PDF"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Save study session: internal server error", decode[models.ErrorResponse](t, rec).Error)

	e.handler.Store = e.store
	rec = e.json(http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[models.SessionResponse](t, rec)
	assert.Equal(t, first, sess.SessionID)
	assert.Equal(t, "first.pdf", sess.DocumentName)
}

func TestUploadTooLarge(t *testing.T) {
	e := newEnv(t)
	e.handler.MaxUploadBytes = 1 << 10

	rec := e.upload("big.pdf", bytes.Repeat([]byte("x"), 64<<10))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, e.store.Len())
}

func TestGenerateQuizModelTimeout(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.upload("notes.pdf", []byte("%PDF")).Code)
	e.gen.EXPECT().GenerateText(gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("failed to generate content (attempt 1): %w", context.DeadlineExceeded))

	rec := e.json(http.MethodPost, "/api/quiz", models.GenerateQuizRequest{NumQuestions: 3})

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "Generate quiz: model request timed out", decode[models.ErrorResponse](t, rec).Error)
}

func TestModelFailureDoesNotExposeAPIKey(t *testing.T) {
	const apiKey = "SECRET-GEMINI-KEY"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer cannot be hijacked")
			return
		}
		if conn, _, err := hj.Hijack(); err == nil {
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)

	client, err := gemini.NewClient(context.Background(), gemini.Options{
		APIKey:        apiKey,
		Model:         "m",
		Timeout:       5 * time.Second,
		MaxAttempts:   1,
		ClientOptions: []option.ClientOption{option.WithEndpoint(srv.URL)},
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	var logs bytes.Buffer
	config.Logger.SetOutput(&logs)
	t.Cleanup(func() { config.Logger.SetOutput(io.Discard) })

	e := newEnv(t)
	e.handler.Generator = client
	require.Equal(t, http.StatusCreated, e.upload("notes.pdf", []byte("%PDF")).Code)

	rec := e.json(http.MethodPost, "/api/ask", models.AskRequest{Question: "What powers the cell?"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Generate answer: model request failed", decode[models.ErrorResponse](t, rec).Error)
	assert.NotContains(t, rec.Body.String(), apiKey)
	assert.Contains(t, logs.String(), "request failed")
	assert.NotContains(t, logs.String(), apiKey)
}
