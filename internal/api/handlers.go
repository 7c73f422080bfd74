package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clipgenie/internal/database"
	"clipgenie/internal/domain"
	"clipgenie/internal/export"
	"clipgenie/internal/extractor"
	"clipgenie/internal/pipeline"
	"clipgenie/internal/summarizer"

	"github.com/gin-gonic/gin"
)

type summarizeRequest struct {
	URL       string `json:"url"`
	HTML      string `json:"html"`
	Selection string `json:"selection"`
	Format    string `json:"format"`
}

type quota struct {
	Remaining    *int `json:"remaining,omitempty"`
	ResetSeconds *int `json:"reset,omitempty"`
}

type summarizeResponse struct {
	Summary string        `json:"summary"`
	HTML    string        `json:"html"`
	Text    string        `json:"text"`
	Format  domain.Format `json:"format"`
	Quota   *quota        `json:"quota,omitempty"`
}

type clipResponse struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) summarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}

	if req.URL != "" {
		if _, err := extractor.ParseTargetURL(req.URL); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_url"})
			return
		}
	}

	var target *pipeline.Target
	if req.URL != "" || req.HTML != "" || req.Selection != "" {
		target = &pipeline.Target{URL: req.URL, HTML: req.HTML, Selection: req.Selection}
	}

	credential := s.credential(c)

	res, err := s.sessions.Get(sessionKey(credential)).Run(c.Request.Context(), pipeline.Request{
		Target:     target,
		Format:     domain.ParseFormat(req.Format),
		Credential: credential,
	}, nil)
	if err != nil {
		s.writeSummaryError(c, err)
		return
	}

	if res.Status == pipeline.StatusRejected {
		c.JSON(http.StatusConflict, gin.H{
			"error": "A summary is already in progress",
			"code":  "in_progress",
		})
		return
	}

	resp := summarizeResponse{
		Summary: res.Summary.SummaryText,
		HTML:    res.HTML,
		Text:    res.PlainText,
		Format:  res.Format,
	}
	if res.Summary.QuotaRemaining != nil {
		resp.Quota = &quota{
			Remaining:    res.Summary.QuotaRemaining,
			ResetSeconds: res.Summary.QuotaResetSeconds,
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) writeSummaryError(c *gin.Context, err error) {
	var (
		rateErr   *summarizer.RateLimitedError
		failedErr *summarizer.RequestFailedError
		status    int
		code      string
	)

	switch {
	case errors.Is(err, pipeline.ErrMissingCredential):
		status, code = http.StatusUnauthorized, "missing_credential"
	case errors.Is(err, summarizer.ErrInvalidCredential):
		status, code = http.StatusUnauthorized, "invalid_credential"
	case errors.As(err, &rateErr):
		status, code = http.StatusTooManyRequests, "rate_limited"
		c.Header("Retry-After", strconv.Itoa(rateErr.RetryAfterSeconds))
	case errors.As(err, &failedErr):
		status, code = http.StatusBadGateway, "request_failed"
	case errors.Is(err, pipeline.ErrNoContentFound):
		status, code = http.StatusNotFound, "no_content"
	case errors.Is(err, pipeline.ErrNoActiveTarget):
		status, code = http.StatusBadRequest, "no_target"
	default:
		status, code = http.StatusInternalServerError, "internal"

		s.log.ErrorContext(c.Request.Context(), "Failed to summarize",
			"error", err)
	}

	c.JSON(status, gin.H{"error": pipeline.UserMessage(err), "code": code})
}

func (s *Server) listClips(c *gin.Context) {
	clips, err := s.clips.GetClips(c.Request.Context(), ExtensionUserID)
	if err != nil {
		s.log.ErrorContext(c.Request.Context(), "Failed to get clips",
			"error", err)

		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get clips", "code": "internal"})
		return
	}

	resp := make([]clipResponse, 0, len(clips))
	for _, clip := range clips {
		resp = append(resp, toClipResponse(clip))
	}

	c.JSON(http.StatusOK, gin.H{"clips": resp})
}

func (s *Server) addClip(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}

	clip, err := s.clips.AddClip(c.Request.Context(), ExtensionUserID, req.Text)
	if errors.Is(err, database.ErrEmptyClip) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clip text is empty", "code": "empty_clip"})
		return
	}
	if err != nil {
		s.log.ErrorContext(c.Request.Context(), "Failed to add clip",
			"error", err)

		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add clip", "code": "internal"})
		return
	}

	c.JSON(http.StatusCreated, toClipResponse(clip))
}

func (s *Server) removeClip(c *gin.Context) {
	clipID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid clip id", "code": "bad_request"})
		return
	}

	err = s.clips.RemoveClip(c.Request.Context(), ExtensionUserID, clipID)
	if errors.Is(err, database.ErrClipNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "clip not found", "code": "not_found"})
		return
	}
	if err != nil {
		s.log.ErrorContext(c.Request.Context(), "Failed to remove clip",
			"error", err,
			"clipID", clipID)

		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove clip", "code": "internal"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) exportFile(c *gin.Context) {
	kind, err := export.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_kind"})
		return
	}

	var req textRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}

	file, err := export.Export(kind, req.Text)
	if errors.Is(err, export.ErrNothingToExport) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to export", "code": "empty_export"})
		return
	}
	if err != nil {
		s.log.ErrorContext(c.Request.Context(), "Failed to export",
			"error", err,
			"kind", kind)

		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export", "code": "internal"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, strings.ReplaceAll(file.Name, `"`, "")))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func toClipResponse(clip domain.Clip) clipResponse {
	return clipResponse{
		ID:        clip.ID,
		Text:      clip.Text,
		Timestamp: clip.CreatedAt.UTC(),
	}
}
