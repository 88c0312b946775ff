package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/ZaguanLabs/prismlate"
	"github.com/ZaguanLabs/prismlate/dom"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PageRequest carries an edit page and optional per-request overrides of
// the stored settings.
type PageRequest struct {
	HTML           string                  `json:"html" binding:"required"`
	RunID          string                  `json:"runId,omitempty"`
	SourceLanguage string                  `json:"sourceLanguage,omitempty"`
	TargetLanguage string                  `json:"targetLanguage,omitempty"`
	Context        string                  `json:"context,omitempty"`
	Options        *prismlate.FieldOptions `json:"options,omitempty"`
}

// TranslateResponse is the body of a successful translate call.
type TranslateResponse struct {
	*prismlate.RunResult
	HTML string `json:"html"`
}

// PreviewResponse is the body of a successful preview call.
type PreviewResponse struct {
	*prismlate.PreviewResult
	HTML string `json:"html"`
}

// SelectionRequest names a selection inside a page. For inputs and
// textareas Start and End are character offsets into the value; for
// rich text Text is the selected text inside the field. Requests sharing
// a PageID are serialized; a second one is rejected while the first runs.
type SelectionRequest struct {
	PageID         string `json:"pageId,omitempty"`
	HTML           string `json:"html" binding:"required"`
	FieldID        string `json:"fieldId" binding:"required"`
	Start          int    `json:"start"`
	End            int    `json:"end"`
	Text           string `json:"text,omitempty"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
	TargetLanguage string `json:"targetLanguage,omitempty"`
}

// SelectionResponse is the body of a successful selection call.
type SelectionResponse struct {
	*dom.SelectionResult
	HTML string `json:"html"`
}

func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": prismlate.Version})
}

func (s *Server) quota(c *gin.Context) {
	q, err := s.pipeline.Quota(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) translate(c *gin.Context) {
	var req PageRequest
	if !bindJSON(c, &req) {
		return
	}

	doc, err := dom.ParseString(req.HTML)
	if err != nil {
		_ = c.Error(badRequest("invalid html", err))
		return
	}

	run := prismlate.NewRunWithID(req.RunID)
	if !s.register(run) {
		_ = c.Error(&apiError{Status: http.StatusConflict, Code: "RUN_IN_PROGRESS", Message: "run " + run.ID() + " is already in progress"})
		return
	}
	defer s.unregister(run)

	runner := s.pipeline.Runner(req.TargetLanguage, pageOptions(req)...)
	res, err := runner.Translate(c.Request.Context(), run, doc, nil)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out, err := doc.BodyHTML()
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, TranslateResponse{RunResult: res, HTML: out})
}

func (s *Server) preview(c *gin.Context) {
	var req PageRequest
	if !bindJSON(c, &req) {
		return
	}

	doc, err := dom.ParseString(req.HTML)
	if err != nil {
		_ = c.Error(badRequest("invalid html", err))
		return
	}

	res, err := s.pipeline.Runner(req.TargetLanguage, pageOptions(req)...).Preview(doc)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out, err := doc.BodyHTML()
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, PreviewResponse{PreviewResult: res, HTML: out})
}

func (s *Server) selection(c *gin.Context) {
	var req SelectionRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.PageID != "" {
		release, ok := s.claimPage(req.PageID)
		if !ok {
			_ = c.Error(prismlate.ErrSelectionBusy)
			return
		}
		defer release()
	}

	doc, err := dom.ParseString(req.HTML)
	if err != nil {
		_ = c.Error(badRequest("invalid html", err))
		return
	}
	field, ok := doc.FieldByID(req.FieldID)
	if !ok {
		_ = c.Error(&apiError{Status: http.StatusNotFound, Code: "FIELD_NOT_FOUND", Message: "no element with id " + req.FieldID})
		return
	}

	var sel dom.Selection
	if field.Kind() == prismlate.ElementRichText {
		rng, err := doc.SelectText(field.Node(), req.Text)
		if err != nil {
			_ = c.Error(err)
			return
		}
		sel = &dom.RangeSelection{Range: rng}
	} else {
		sel = &dom.InputSelection{Field: field, Start: req.Start, End: req.End}
	}

	runner := s.pipeline.Runner(req.TargetLanguage)
	source := req.SourceLanguage
	if source == "" {
		source = runner.SourceLang()
	}
	translation := prismlate.Request{
		SourceLang: source,
		TargetLang: runner.TargetLang(),
		Context:    s.pipeline.Settings.Context,
		FieldHint:  field.Label(),
	}

	ctx := c.Request.Context()
	if d := s.pipeline.SelectionTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	res, err := doc.TranslateSelection(ctx, s.pipeline.Gateway, translation, sel)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out, err := doc.BodyHTML()
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, SelectionResponse{SelectionResult: res, HTML: out})
}

func (s *Server) cancelRun(c *gin.Context) {
	id := c.Param("id")
	run, ok := s.lookup(id)
	if !ok {
		_ = c.Error(&apiError{Status: http.StatusNotFound, Code: "RUN_NOT_FOUND", Message: "no run " + id + " in progress"})
		return
	}
	run.Cancel()
	s.logger.Info("run cancelled", zap.String("run_id", id))
	c.JSON(http.StatusAccepted, gin.H{"success": true, "runId": id})
}

// pageOptions turns per-request overrides into runner options.
func pageOptions(req PageRequest) []prismlate.RunnerOption {
	var opts []prismlate.RunnerOption
	if req.SourceLanguage != "" {
		opts = append(opts, prismlate.WithSourceLang(req.SourceLanguage))
	}
	if req.Context != "" {
		opts = append(opts, prismlate.WithContext(req.Context))
	}
	if req.Options != nil {
		opts = append(opts, prismlate.WithFieldOptions(*req.Options))
	}
	return opts
}

// bindJSON decodes the body into v, recording an error on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			_ = c.Error(err)
		} else {
			_ = c.Error(badRequest("invalid request body", err))
		}
		return false
	}
	return true
}
