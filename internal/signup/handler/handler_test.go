package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"signup/internal/platform/middleware"
	"signup/internal/signup/models"
	"signup/internal/signup/orchestrator"
	"signup/internal/signup/orchestrator/mocks"
	"signup/internal/signup/session"
	"signup/internal/signup/store/account"
	"signup/pkg/platform/sentinel"
	"signup/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	store  *account.InMemoryStore
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func newRouter(store orchestrator.KeyedStore) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestContext)
	New(session.NewRegistry(store), logger).Register(r)
	return r
}

func (s *HandlerSuite) SetupTest() {
	s.store = account.NewInMemory()
	s.router = newRouter(s.store)
}

func (s *HandlerSuite) open() string {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/signup/sessions"))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[OpenResponse](s.T(), rr)
	s.Require().NotEmpty(resp.SessionID)
	return resp.SessionID
}

func (s *HandlerSuite) set(id string, field models.Field, value string) *ViewResponse {
	path := fmt.Sprintf("/signup/sessions/%s/fields/%s", id, field)
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, path, SetFieldRequest{Value: value}))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	return testutil.UnmarshalResponse[ViewResponse](s.T(), rr)
}

func (s *HandlerSuite) post(id, action string) (int, *ViewResponse) {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, fmt.Sprintf("/signup/sessions/%s/%s", id, action)))
	return rr.Code, testutil.UnmarshalResponse[ViewResponse](s.T(), rr)
}

func (s *HandlerSuite) fill(id, identifier string) {
	s.set(id, models.FieldName, "Alice")
	s.set(id, models.FieldIdentifier, identifier)
	s.set(id, models.FieldPassword, "p1")
	s.set(id, models.FieldConfirmPassword, "p1")
}

func (s *HandlerSuite) TestOpenAndView() {
	id := s.open()

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/signup/sessions/"+id))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	view := testutil.UnmarshalResponse[ViewResponse](s.T(), rr)
	s.Equal(id, view.SessionID)
	s.Empty(view.Fields.Name)
	s.Empty(view.Messages)
	s.Equal(string(models.CheckEditing), view.Identifier.State)
}

func (s *HandlerSuite) TestSetField() {
	id := s.open()

	s.Run("password values are never echoed", func() {
		view := s.set(id, models.FieldPassword, "secret")
		s.True(view.Fields.PasswordSet)
		s.False(view.Fields.ConfirmSet)
		s.NotContains(fmt.Sprintf("%+v", view), "secret")
	})

	s.Run("unknown field is a bad request", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut,
			"/signup/sessions/"+id+"/fields/email", SetFieldRequest{Value: "x"}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("malformed body is a bad request", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/signup/sessions/"+id+"/fields/name", map[string]int{"value": 1})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestUnknownSession() {
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/signup/sessions/nope"},
		{http.MethodPost, "/signup/sessions/nope/check"},
		{http.MethodPost, "/signup/sessions/nope/submit"},
		{http.MethodDelete, "/signup/sessions/nope"},
	} {
		s.Run(tc.method+" "+tc.path, func() {
			rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), tc.method, tc.path))
			testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		})
	}
}

func (s *HandlerSuite) TestCheck() {
	s.Require().NoError(s.store.Write(s.T().Context(), "bob", models.Account{ID: "bob"}))

	s.Run("available identifier", func() {
		id := s.open()
		s.set(id, models.FieldIdentifier, "alice")

		status, view := s.post(id, "check")

		s.Equal(http.StatusOK, status)
		s.True(view.Identifier.Available)
		s.Equal(MessageResponse{Text: models.MsgIdentifierFree, Kind: string(models.MessageSuccess)}, view.Messages["identifier"])
	})

	s.Run("taken identifier is reported in the view", func() {
		id := s.open()
		s.set(id, models.FieldIdentifier, "bob")

		status, view := s.post(id, "check")

		s.Equal(http.StatusOK, status)
		s.False(view.Identifier.Checked)
		s.False(view.Identifier.Available)
		s.Equal(string(models.CheckUnavailable), view.Identifier.State)
		s.Equal(models.MsgIdentifierTaken, view.Messages["identifier"].Text)
	})
}

func (s *HandlerSuite) TestSubmit() {
	s.Run("unchecked identifier is rejected", func() {
		id := s.open()
		s.fill(id, "alice")

		status, view := s.post(id, "submit")

		s.Equal(http.StatusUnprocessableEntity, status)
		s.Equal("uniqueness_unchecked", view.Error)
		s.Equal(models.MsgMustCheck, view.Messages["identifier"].Text)
		s.Equal("Alice", view.Fields.Name)
	})

	s.Run("checked form registers and closes the session", func() {
		id := s.open()
		s.fill(id, "carol")
		status, _ := s.post(id, "check")
		s.Require().Equal(http.StatusOK, status)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/signup/sessions/"+id+"/submit"))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[RegisteredResponse](s.T(), rr)
		s.True(resp.Registered)
		s.Equal("carol", resp.Identifier)

		stored, err := s.store.FindByID(s.T().Context(), "carol")
		s.Require().NoError(err)
		s.Equal(models.Account{ID: "carol", Password: "p1", Name: "Alice"}, stored)

		rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/signup/sessions/"+id))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})
}

func (s *HandlerSuite) TestCancel() {
	id := s.open()
	s.set(id, models.FieldName, "Alice")

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/signup/sessions/"+id))

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/signup/sessions/"+id))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}

func (s *HandlerSuite) TestStoreUnavailable() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockKeyedStore(ctrl)
	unavailable := fmt.Errorf("dial: %w", sentinel.ErrUnavailable)
	router := newRouter(store)
	s.router = router

	id := s.open()
	s.fill(id, "alice")

	s.Run("failed probe returns 503 with the view", func() {
		store.EXPECT().Exists(gomock.Any(), "alice").Return(false, unavailable)

		status, view := s.post(id, "check")

		s.Equal(http.StatusServiceUnavailable, status)
		s.Equal("store_unavailable", view.Error)
		s.Equal(models.MsgCheckFailed, view.Messages["identifier"].Text)
	})

	s.Run("failed write returns 503 and keeps the form", func() {
		store.EXPECT().Exists(gomock.Any(), "alice").Return(false, nil)
		store.EXPECT().Write(gomock.Any(), "alice", gomock.Any()).Return(unavailable)
		status, _ := s.post(id, "check")
		s.Require().Equal(http.StatusOK, status)

		status, view := s.post(id, "submit")

		s.Equal(http.StatusServiceUnavailable, status)
		s.Equal(models.MsgRegisterFailed, view.Messages["identifier"].Text)
		s.Equal("alice", view.Fields.Identifier)
		s.True(view.Fields.PasswordSet)
	})
}
