package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mindmate/internal/config"
	"mindmate/internal/models"
	"mindmate/internal/quiz"
	"mindmate/internal/report"
	"mindmate/internal/study"
)

// HandleGenerateQuiz asks the model for a multiple-choice quiz on the uploaded
// document and replaces the current quiz with it.
func (h *Handler) HandleGenerateQuiz(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.GenerateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Bind quiz request", err)
		return
	}

	sess, err := h.loadSession(c)
	if err != nil {
		h.handleError(c, 0, "Load study session", err)
		return
	}

	prompt, err := quiz.QuizPrompt(sess.DocumentText, req.NumQuestions)
	if err != nil {
		h.handleError(c, 0, "Build quiz prompt", err)
		return
	}

	text, err := h.Generator.GenerateText(ctx, prompt)
	if err != nil {
		h.handleError(c, modelStatus(err), "Generate quiz", err)
		return
	}

	items := quiz.Parse(text)
	log := config.WithContext(ctx).WithFields(logrus.Fields{
		"session_id": sess.ID,
		"requested":  req.NumQuestions,
		"parsed":     len(items),
	})
	if len(items) != req.NumQuestions {
		log.Warn("parsed question count differs from requested count")
	}

	sess.SetQuiz(req.NumQuestions, text, items)
	if err := h.Store.Save(ctx, sess); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Save study session", err)
		return
	}

	log.Info("quiz generated")
	c.JSON(http.StatusCreated, quizResponse(sess))
}

// HandleGetQuiz returns the current quiz and the caller's selections.
func (h *Handler) HandleGetQuiz(c *gin.Context) {
	sess, err := h.loadSession(c)
	if err != nil {
		h.handleError(c, 0, "Load study session", err)
		return
	}
	if !sess.HasQuiz() {
		h.handleError(c, 0, "Get quiz", study.ErrNoQuiz)
		return
	}

	c.JSON(http.StatusOK, quizResponse(sess))
}

// HandleSelectAnswer records the choice for one question.
func (h *Handler) HandleSelectAnswer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Parse question index", fmt.Errorf("%w: %q", study.ErrQuestionIndex, c.Param("index")))
		return
	}

	var req models.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Bind answer request", err)
		return
	}

	sess, err := h.loadSession(c)
	if err != nil {
		h.handleError(c, 0, "Load study session", err)
		return
	}

	if err := sess.SelectAnswer(index, req.Answer); err != nil {
		h.handleError(c, 0, "Select answer", err)
		return
	}
	if err := h.Store.Save(c.Request.Context(), sess); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Save study session", err)
		return
	}

	c.JSON(http.StatusOK, quizResponse(sess))
}

// HandleSubmitQuiz grades the current answers, renders the report and, when
// archiving is configured, uploads it.
func (h *Handler) HandleSubmitQuiz(c *gin.Context) {
	ctx := c.Request.Context()

	sess, err := h.loadSession(c)
	if err != nil {
		h.handleError(c, 0, "Load study session", err)
		return
	}

	res, err := sess.Submit()
	if err != nil {
		h.handleError(c, 0, "Submit quiz", err)
		return
	}

	pdf, err := report.Write(sess.QuizText, res.Summary())
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Render report", err)
		return
	}

	log := config.WithContext(ctx).WithFields(logrus.Fields{
		"session_id": sess.ID,
		"score":      res.Score(),
	})

	var reportURL string
	if h.Reports != nil {
		reportURL, err = h.Reports.UploadReport(ctx, sess.ID, report.Filename, bytes.NewReader(pdf))
		if err != nil {
			// The report stays downloadable from the session.
			log.WithError(err).Warn("failed to archive report")
			reportURL = ""
		}
	}
	sess.SetReport(pdf, reportURL)

	if err := h.Store.Save(ctx, sess); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Save study session", err)
		return
	}

	log.Info("quiz submitted")
	c.JSON(http.StatusOK, submitResponse(res, reportURL))
}

// HandleDownloadReport serves the last rendered report as a PDF attachment.
func (h *Handler) HandleDownloadReport(c *gin.Context) {
	sess, err := h.loadSession(c)
	if err != nil {
		h.handleError(c, 0, "Load study session", err)
		return
	}
	if len(sess.Report) == 0 {
		h.handleError(c, 0, "Download report", study.ErrNoReport)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, sess.Report)
}

func quizResponse(sess *study.Session) models.QuizResponse {
	resp := models.QuizResponse{
		Requested: sess.Requested,
		Questions: make([]models.Question, len(sess.Items)),
		Submitted: sess.Result != nil,
	}
	for i, item := range sess.Items {
		q := models.Question{
			Number:  i + 1,
			Text:    item.Question,
			Choices: quiz.Choices,
		}
		if i < len(sess.Answers) {
			q.Selected = sess.Answers[i]
		}
		resp.Questions[i] = q
	}
	if len(sess.Items) != sess.Requested {
		resp.Warning = fmt.Sprintf("The quiz has %d questions; %d were requested.", len(sess.Items), sess.Requested)
	}
	return resp
}

func submitResponse(res quiz.Result, reportURL string) models.SubmitResponse {
	resp := models.SubmitResponse{
		Outcomes:  make([]models.Outcome, len(res.Outcomes)),
		Warnings:  res.Warnings(),
		Correct:   res.Correct,
		Total:     res.Total,
		Score:     res.Score(),
		Summary:   res.Summary(),
		ReportURL: reportURL,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	for i, o := range res.Outcomes {
		resp.Outcomes[i] = models.Outcome{
			Number:   o.Number,
			Selected: o.Selected,
			Correct:  o.Correct,
			Status:   string(o.Status),
			Message:  o.Message(),
		}
	}
	return resp
}
