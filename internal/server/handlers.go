package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/analysis"
	"github.com/spigell/question-analyzer/internal/logger"
)

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	Transcript string `json:"transcript"`
	// SessionID groups successive transcripts of one interview.
	SessionID string `json:"session_id"`
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

func (s *Server) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	requestID := c.GetString(requestIDKey)
	ctx := analysis.ContextWithRequestID(c.Request.Context(), requestID)

	var (
		result *analysis.Result
		err    error
	)
	if id := strings.TrimSpace(req.SessionID); id != "" {
		result, err = s.session(id).Analyze(ctx, req.Transcript)
	} else {
		result, err = s.analyzer.Load().Analyze(ctx, req.Transcript)
	}
	if err != nil {
		mapped := mapAnalysisError(err)
		if mapped.status >= http.StatusInternalServerError {
			logger.WithRequestID(s.logger, requestID).Error("analysis failed", zap.Error(err))
		}
		_ = c.Error(err)
		respondError(c, mapped.status, mapped.code, mapped.message)
		return
	}

	if s.metrics != nil {
		s.metrics.observeQuestionType(result.QuestionType)
	}

	respondSuccess(c, http.StatusOK, result)
}

// sessionEntry remembers which analyzer a session was started on.
type sessionEntry struct {
	analyzer *analysis.Analyzer
	session  *analysis.Session
}

// session returns the session id on top of the current analyzer. A session
// started on a replaced analyzer is started over, even when it was stored
// after the purge in SetAnalyzer.
func (s *Server) session(id string) *analysis.Session {
	current := s.analyzer.Load()
	if e, ok := s.sessions.Get(id); ok && e.analyzer == current {
		return e.session
	}

	e := sessionEntry{analyzer: current, session: analysis.NewSession(current)}
	// Another request may have created it meanwhile.
	if prev, ok, _ := s.sessions.PeekOrAdd(id, e); ok {
		if prev.analyzer == current {
			return prev.session
		}
		s.sessions.Add(id, e)
	}
	return e.session
}

func (s *Server) pipeline(c *gin.Context) {
	respondSuccess(c, http.StatusOK, s.analyzer.Load().Describe())
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{"analyzer": "ok"}
	healthy := true

	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			components["cache"] = "error: " + err.Error()
			healthy = false
		} else {
			components["cache"] = "ok"
		}
	} else {
		components["cache"] = "not configured"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthStatus{
		Status:     status,
		Components: components,
	})
}
