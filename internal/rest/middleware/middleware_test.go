package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vidinfra/docvault/internal/api/dto"
	"github.com/vidinfra/docvault/internal/config"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/i18n"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/types"
	"github.com/vidinfra/docvault/internal/validator"
)

type MiddlewareSuite struct {
	suite.Suite
	translator *i18n.Translator
	log        *logger.Logger
}

func TestMiddleware(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	v := validator.NewValidator()
	translator, err := i18n.NewTranslator(config.GetDefaultConfig(), v)
	s.Require().NoError(err)
	s.translator = translator
	s.log = logger.NewNopLogger()
}

func (s *MiddlewareSuite) engine(handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(
		RequestIDMiddleware,
		ActorMiddleware,
		LocaleMiddleware(s.translator),
		ErrorHandler(s.translator, s.log),
	)
	r.GET("/test", handler)
	return r
}

func (s *MiddlewareSuite) do(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ierr.ErrorResponse {
	var resp ierr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *MiddlewareSuite) TestErrorHandlerLocalizesMessage() {
	r := s.engine(func(c *gin.Context) {
		c.Error(ierr.NewError("note already deleted").
			WithHint("Note is already deleted").
			Mark(ierr.ErrAlreadyDeleted))
	})

	testCases := []struct {
		name     string
		language string
		want     string
	}{
		{name: "default", language: "", want: "The record is already deleted"},
		{name: "french", language: "fr-FR,fr;q=0.9", want: "L'enregistrement est déjà supprimé"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			w := s.do(r, map[string]string{types.HeaderAcceptLanguage: tc.language})
			s.Equal(http.StatusConflict, w.Code)

			resp := decodeError(s.T(), w)
			s.False(resp.Success)
			s.Equal(ierr.ErrCodeAlreadyDeleted, resp.Error.Code)
			s.Equal(tc.want, resp.Error.Display)
		})
	}
}

func (s *MiddlewareSuite) TestErrorHandlerTranslatesValidation() {
	r := s.engine(func(c *gin.Context) {
		req := dto.BulkNoteRequest{Tag: "Not A Tag"}
		c.Error(req.Validate())
	})

	w := s.do(r, map[string]string{types.HeaderAcceptLanguage: "fr"})
	s.Equal(http.StatusBadRequest, w.Code)

	resp := decodeError(s.T(), w)
	s.Equal(ierr.ErrCodeValidation, resp.Error.Code)
	s.Equal("La requête est invalide", resp.Error.Display)
	s.Require().Contains(resp.Error.Details, "Tag")
	s.Contains(resp.Error.Details["Tag"], "doit")
}

func (s *MiddlewareSuite) TestErrorHandlerSafeDetails() {
	r := s.engine(func(c *gin.Context) {
		c.Error(ierr.NewError("missing").
			WithHint("Note not found").
			WithReportableDetails(map[string]any{"note_id": "abc"}).
			Mark(ierr.ErrNotFound))
	})

	w := s.do(r, nil)
	s.Equal(http.StatusNotFound, w.Code)

	resp := decodeError(s.T(), w)
	s.Equal(ierr.ErrCodeNotFound, resp.Error.Code)
	s.Equal("abc", resp.Error.Details["note_id"])
}

func (s *MiddlewareSuite) TestErrorHandlerPassesSuccess() {
	r := s.engine(func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := s.do(r, nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"ok":true}`, w.Body.String())
}

func (s *MiddlewareSuite) TestRequestContext() {
	var requestID, userID, locale string
	r := s.engine(func(c *gin.Context) {
		ctx := c.Request.Context()
		requestID = types.GetRequestID(ctx)
		userID = types.GetUserID(ctx)
		locale = types.GetLocale(ctx)
		c.Status(http.StatusNoContent)
	})

	s.Run("generated", func() {
		w := s.do(r, nil)
		s.NotEmpty(requestID)
		s.Equal(requestID, w.Header().Get(types.HeaderRequestID))
		s.Empty(userID)
		s.Equal("en", locale)
	})

	s.Run("from headers", func() {
		w := s.do(r, map[string]string{
			types.HeaderRequestID:      "req-1",
			types.HeaderUserID:         "user-7",
			types.HeaderAcceptLanguage: "fr",
		})
		s.Equal("req-1", requestID)
		s.Equal("req-1", w.Header().Get(types.HeaderRequestID))
		s.Equal("user-7", userID)
		s.Equal("fr", locale)
		s.Equal("fr", w.Header().Get("Content-Language"))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.GetDefaultConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}

	translator, err := i18n.NewTranslator(cfg, nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(ErrorHandler(translator, logger.NewNopLogger()), RateLimitMiddleware(cfg))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware)
	r.OPTIONS("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/test", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
