package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	v1 "github.com/vidinfra/docvault/internal/api/v1"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/i18n"
	"github.com/vidinfra/docvault/internal/service"
	testutils "github.com/vidinfra/docvault/internal/testutil"
	"github.com/vidinfra/docvault/internal/types"
	"github.com/vidinfra/docvault/internal/validator"
)

type RouterSuite struct {
	testutils.BaseServiceTestSuite
	router *gin.Engine
}

type noteBody struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Version   int64   `json:"version"`
	IsDeleted bool    `json:"is_deleted"`
	CreatedBy *string `json:"created_by"`
	DeletedBy *string `json:"deleted_by"`
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	gin.SetMode(gin.TestMode)

	cfg := s.GetConfig()
	translator, err := i18n.NewTranslator(cfg, validator.GetValidator())
	s.Require().NoError(err)

	noteService := service.NewNoteService(service.NewServiceParams(s.GetLogger(), cfg, s.GetStores().NoteRepo))
	handlers := Handlers{
		Health: v1.NewHealthHandler(s.GetLogger(),
			v1.HealthCheck{Name: "database", Pinger: s.GetDatabase()},
			v1.HealthCheck{Name: "cache", Pinger: s.GetCache()},
		),
		Note:   v1.NewNoteHandler(noteService, s.GetLogger()),
		Events: v1.NewEventsHandler(nil, cfg, s.GetLogger()),
	}
	s.router = NewRouter(handlers, cfg, s.GetLogger(), translator, s.GetMetrics())
}

func (s *RouterSuite) request(method, path string, body any, user string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(types.HeaderUserID, user)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *RouterSuite) create(title string, tags ...string) noteBody {
	w := s.request(http.MethodPost, "/v1/notes", map[string]any{"title": title, "tags": tags}, "alice")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var n noteBody
	s.decode(w, &n)
	return n
}

func (s *RouterSuite) TestHealth() {
	w := s.request(http.MethodGet, "/health", nil, "")
	s.Equal(http.StatusOK, w.Code)

	var resp v1.HealthResponse
	s.decode(w, &resp)
	s.Equal("ok", resp.Status)
	s.Equal("up", resp.Components["database"])
	s.Equal("up", resp.Components["cache"])
}

func (s *RouterSuite) TestNoteLifecycle() {
	created := s.create("first", "work")
	s.Equal("first", created.Title)
	s.Equal(int64(1), created.Version)
	s.Require().NotNil(created.CreatedBy)
	s.Equal("alice", *created.CreatedBy)

	w := s.request(http.MethodDelete, "/v1/notes/"+created.ID, nil, "bob")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var deleted noteBody
	s.decode(w, &deleted)
	s.True(deleted.IsDeleted)
	s.Require().NotNil(deleted.DeletedBy)
	s.Equal("bob", *deleted.DeletedBy)

	w = s.request(http.MethodGet, "/v1/notes/"+created.ID, nil, "")
	s.Equal(http.StatusNotFound, w.Code)

	w = s.request(http.MethodGet, "/v1/notes/"+created.ID+"?include_deleted=true", nil, "")
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodDelete, "/v1/notes/"+created.ID, nil, "bob")
	s.Equal(http.StatusConflict, w.Code)
	var errResp ierr.ErrorResponse
	s.decode(w, &errResp)
	s.Equal(ierr.ErrCodeAlreadyDeleted, errResp.Error.Code)

	w = s.request(http.MethodPost, "/v1/notes/"+created.ID+"/restore", nil, "carol")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var restored noteBody
	s.decode(w, &restored)
	s.False(restored.IsDeleted)
	s.Equal(int64(3), restored.Version)

	w = s.request(http.MethodPost, "/v1/notes/"+created.ID+"/restore", nil, "carol")
	s.Equal(http.StatusConflict, w.Code)

	w = s.request(http.MethodDelete, "/v1/notes/"+created.ID+"/purge", nil, "")
	s.Equal(http.StatusNoContent, w.Code)

	w = s.request(http.MethodGet, "/v1/notes/"+created.ID+"?include_deleted=true", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterSuite) TestUpdateAndReplace() {
	created := s.create("draft")

	w := s.request(http.MethodPatch, "/v1/notes/"+created.ID, map[string]any{"title": "final"}, "alice")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated noteBody
	s.decode(w, &updated)
	s.Equal("final", updated.Title)
	s.Equal(int64(2), updated.Version)

	w = s.request(http.MethodPatch, "/v1/notes/"+created.ID, map[string]any{}, "alice")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPut, "/v1/notes/"+created.ID, map[string]any{"title": "rewritten", "body": "all new"}, "alice")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var replaced noteBody
	s.decode(w, &replaced)
	s.Equal("rewritten", replaced.Title)
	s.Equal(created.ID, replaced.ID)
}

func (s *RouterSuite) TestListScopesAndBulk() {
	s.create("a", "team")
	s.create("b", "team")
	s.create("c", "solo")

	w := s.request(http.MethodPost, "/v1/notes/bulk/delete", map[string]any{"tag": "team"}, "alice")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var bulk struct {
		Modified int64 `json:"modified"`
	}
	s.decode(w, &bulk)
	s.Equal(int64(2), bulk.Modified)

	testCases := []struct {
		query string
		want  int64
	}{
		{query: "", want: 1},
		{query: "?include_deleted=true", want: 3},
		{query: "?only_deleted=true", want: 2},
	}
	for _, tc := range testCases {
		s.Run("count"+tc.query, func() {
			w := s.request(http.MethodGet, "/v1/notes/count"+tc.query, nil, "")
			s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
			var count struct {
				Count int64 `json:"count"`
			}
			s.decode(w, &count)
			s.Equal(tc.want, count.Count)
		})
	}

	w = s.request(http.MethodGet, "/v1/notes?include_deleted=true&only_deleted=true", nil, "")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodGet, "/v1/notes/tags", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var tags struct {
		Tags []string `json:"tags"`
	}
	s.decode(w, &tags)
	s.Equal([]string{"solo"}, tags.Tags)
}

func (s *RouterSuite) TestInvalidIDIsLocalized() {
	req := httptest.NewRequest(http.MethodGet, "/v1/notes/not-an-id", nil)
	req.Header.Set(types.HeaderAcceptLanguage, "fr")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("fr", w.Header().Get("Content-Language"))
	var errResp ierr.ErrorResponse
	s.decode(w, &errResp)
	s.Equal(ierr.ErrCodeValidation, errResp.Error.Code)
	s.Equal("La requête est invalide", errResp.Error.Display)
}

func (s *RouterSuite) TestEventsLagNeedsKafka() {
	w := s.request(http.MethodGet, "/v1/events/lag", nil, "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestMetricsEndpoint() {
	s.create("counted")

	w := s.request(http.MethodGet, "/metrics", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "operations_total")
}
