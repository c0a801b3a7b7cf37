package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xela07ax/approvalflow-prototype/internal/api/service"
)

type mockRequestService struct {
	result *service.CreateResult
	called bool
}

func (m *mockRequestService) CreateRequest(_ context.Context, title, content, assessorEmail string) (*service.CreateResult, error) {
	m.called = true
	return m.result, nil
}

func TestCreateRequest(t *testing.T) {
	m := &mockRequestService{result: &service.CreateResult{
		TaskID: "T1", QuestionID: "Q1", AssessorEmail: "a@x.com", Title: "Budget Request",
	}}
	h := NewRequestHandler(m)

	body := strings.NewReader(`{"title":"Budget Request","content":"please","assessorEmail":"a@x.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/create-request", body)
	w := httptest.NewRecorder()
	h.Create(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp service.CreateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, *m.result, resp)
}

func TestCreateRequestValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing title", `{"assessorEmail":"a@x.com"}`},
		{"missing email", `{"title":"Budget Request"}`},
		{"blank fields", `{"title":"  ","assessorEmail":" "}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &mockRequestService{}
			h := NewRequestHandler(m)

			req := httptest.NewRequest(http.MethodPost, "/create-request", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			h.Create(w, req)

			require.Equal(t, http.StatusBadRequest, w.Code)
			require.False(t, m.called, "service must not be touched on invalid input")
		})
	}
}
