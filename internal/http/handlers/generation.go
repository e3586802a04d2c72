package handlers

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/orchestrator"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/runner"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/http/response"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/apierr"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/ctxutil"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/realtime"
)

// JobRunner is the part of runner.Runner the handler needs.
type JobRunner interface {
	Start(ctx context.Context, draft orchestrator.Draft) (*orchestrator.Result, error)
	Get(jobID uuid.UUID) (*orchestrator.Result, error)
	Cancel(jobID uuid.UUID) (*orchestrator.Result, error)
}

type GenerationHandler struct {
	log      *logger.Logger
	jobs     JobRunner
	hub      *realtime.SSEHub
	validate *validator.Validate
}

func NewGenerationHandler(log *logger.Logger, jobs JobRunner, hub *realtime.SSEHub) *GenerationHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &GenerationHandler{
		log:      log.With("handler", "GenerationHandler"),
		jobs:     jobs,
		hub:      hub,
		validate: v,
	}
}

type generationConfigRequest struct {
	PresentationSlideCount int    `json:"presentation_slide_count" validate:"omitempty,min=1,max=40"`
	ExamQuestionCount      int    `json:"exam_question_count" validate:"omitempty,min=1,max=50"`
	QuizQuestionCount      int    `json:"quiz_question_count" validate:"omitempty,min=1,max=50"`
	FlashcardCount         int    `json:"flashcard_count" validate:"omitempty,min=1,max=100"`
	TextInstructions       string `json:"text_instructions" validate:"max=4000"`
}

type createJobRequest struct {
	LessonID        string                   `json:"lesson_id" validate:"omitempty,uuid"`
	OwnerUserID     string                   `json:"owner_user_id" validate:"omitempty,uuid"`
	Title           string                   `json:"title" validate:"required_without=LessonID,max=300"`
	Subtitle        string                   `json:"subtitle" validate:"max=500"`
	Language        string                   `json:"language" validate:"omitempty,min=2,max=16"`
	ContextFileRefs []string                 `json:"context_file_refs" validate:"max=20,dive,required,max=1024"`
	Types           []string                 `json:"types" validate:"dive,oneof=text presentation quiz test exam podcast comic flashcards mindmap"`
	Config          *generationConfigRequest `json:"config"`
}

func (r createJobRequest) draft() (orchestrator.Draft, error) {
	d := orchestrator.Draft{
		Title:           r.Title,
		Subtitle:        r.Subtitle,
		Language:        r.Language,
		ContextFileRefs: r.ContextFileRefs,
	}
	if r.LessonID != "" {
		id, err := uuid.Parse(r.LessonID)
		if err != nil {
			return d, err
		}
		d.LessonID = id
	}
	if r.OwnerUserID != "" {
		id, err := uuid.Parse(r.OwnerUserID)
		if err != nil {
			return d, err
		}
		d.OwnerUserID = id
	}
	for _, raw := range r.Types {
		ct, err := lessons.ParseContentType(raw)
		if err != nil {
			return d, err
		}
		d.Types = append(d.Types, ct)
	}
	if r.Config != nil {
		d.Overrides = lessons.GenerationConfig{
			PresentationSlideCount: r.Config.PresentationSlideCount,
			ExamQuestionCount:      r.Config.ExamQuestionCount,
			QuizQuestionCount:      r.Config.QuizQuestionCount,
			FlashcardCount:         r.Config.FlashcardCount,
			TextInstructions:       strings.TrimSpace(r.Config.TextInstructions),
		}
	}
	return d, nil
}

// POST /api/generation/jobs
func (h *GenerationHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	draft, err := req.draft()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	job, err := h.jobs.Start(c.Request.Context(), draft)
	if err != nil {
		response.RespondAPIError(c, jobError(err), "start_job_failed")
		return
	}
	ctxutil.Scope(c.Request.Context()).SetJob(job.JobID, job.LessonID)
	response.RespondAccepted(c, gin.H{"job": job})
}

// GET /api/generation/jobs/:id
func (h *GenerationHandler) GetJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	job, err := h.jobs.Get(jobID)
	if err != nil {
		response.RespondAPIError(c, jobError(err), "get_job_failed")
		return
	}
	ctxutil.Scope(c.Request.Context()).SetJob(job.JobID, job.LessonID)
	response.RespondOK(c, gin.H{"job": job})
}

// DELETE /api/generation/jobs/:id
func (h *GenerationHandler) CancelJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	job, err := h.jobs.Cancel(jobID)
	if err != nil {
		response.RespondAPIError(c, jobError(err), "cancel_job_failed")
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}

// GET /api/generation/jobs/:id/events
//
// The stream replays the job log so far, then follows live events until the
// job's terminal event. The client subscribes before the snapshot is taken and
// skips live events the replay already covered.
func (h *GenerationHandler) StreamJobEvents(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	channel := realtime.JobChannel(jobID)

	client := h.hub.NewSSEClient(0)
	h.hub.AddChannel(client, channel)
	defer h.hub.CloseClient(client)

	job, err := h.jobs.Get(jobID)
	if err != nil {
		response.RespondAPIError(c, jobError(err), "get_job_failed")
		return
	}

	flusher, ok := realtime.PrepareStream(c.Writer)
	if !ok {
		response.RespondError(c, http.StatusInternalServerError, "streaming_unsupported", errors.New("streaming unsupported"))
		return
	}
	c.Status(http.StatusOK)

	last := 0
	for _, e := range job.Log {
		msg := realtime.SSEMessage{Channel: channel, Event: realtime.EventName(e), Data: e}
		if err := realtime.WriteMessage(c.Writer, flusher, msg); err != nil {
			h.log.Warn("SSE replay write failed", "job_id", jobID, "error", err)
			return
		}
		last = e.Seq
		if e.Terminal() {
			return
		}
	}

	h.hub.Stream(c.Writer, c.Request, client, realtime.StreamOptions{
		Skip: func(m realtime.SSEMessage) bool { return realtime.EventSeq(m) <= last },
		Stop: realtime.IsTerminal,
	})
}

func (h *GenerationHandler) jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return uuid.Nil, false
	}
	ctxutil.Scope(c.Request.Context()).SetJob(id, uuid.Nil)
	return id, true
}

func jobError(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrMissingTitle):
		return apierr.BadRequest("missing_title", err)
	case errors.Is(err, runner.ErrJobNotFound):
		return apierr.NotFound("job_not_found", err)
	case errors.Is(err, runner.ErrJobActive):
		return apierr.Conflict("job_active", err)
	case errors.Is(err, runner.ErrShuttingDown):
		return apierr.New(http.StatusServiceUnavailable, "shutting_down", err)
	}
	return err
}
