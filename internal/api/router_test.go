package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/observability"
	"github.com/gaiazov/PrintService/internal/pipeline"
	"github.com/gaiazov/PrintService/internal/printer"
)

type fakeService struct {
	checkErr  error
	requestID string
}

func (f *fakeService) Print(ctx context.Context, req domain.PrintRequest, _ chan<- domain.StreamEvent) (*pipeline.Result, error) {
	f.requestID = req.ID
	return &pipeline.Result{Report: &printer.PrintReport{PagesPrinted: 1, TotalPages: 1}}, nil
}

func (f *fakeService) Check(context.Context) error { return f.checkErr }

func TestRouter_Health(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&fakeService{}, RouterConfig{ServiceName: "pdf-printer"}, observability.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "pdf-printer", body["service"])
}

func TestRouter_Ready(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(NewRouter(svc, RouterConfig{}, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	svc.checkErr = domain.DeviceConfigurationError(`printer "x" could not be resolved`, errors.New("dial tcp"))
	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_Print(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(NewRouter(svc, RouterConfig{}, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/print", "application/json", strings.NewReader(`{"url":"http://docs/a.pdf"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out domain.PrintOutcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Printed)
	assert.Equal(t, "Printed 1 of 1 pages", out.Message)

	// chi's request id reaches the pipeline.
	assert.NotEmpty(t, svc.requestID)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&fakeService{}, RouterConfig{}, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/print")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
