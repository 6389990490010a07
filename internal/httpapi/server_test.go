package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vramd/internal/manager"
	"vramd/pkg/types"
)

// fakeService is a canned Service implementation for handler tests.
type fakeService struct {
	status      types.StatusResponse
	cfg         types.ConfigResponse
	report      types.BudgetReport
	reselectErr error
	loadErr     error
	unloadErr   error
	ready       bool

	reselected [][2]string
	loaded     []string
	unloadedID []string
}

func (f *fakeService) ConfigSnapshot() types.ConfigResponse { return f.cfg }
func (f *fakeService) Status() types.StatusResponse         { return f.status }
func (f *fakeService) ValidateBudget() (types.BudgetReport, error) {
	return f.report, nil
}
func (f *fakeService) Reselect(ctx context.Context, taskID, option string) error {
	f.reselected = append(f.reselected, [2]string{taskID, option})
	return f.reselectErr
}
func (f *fakeService) Load(ctx context.Context, taskID string) (types.Handle, error) {
	f.loaded = append(f.loaded, taskID)
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return "h", nil
}
func (f *fakeService) Unload(taskID string) error {
	f.unloadedID = append(f.unloadedID, taskID)
	return f.unloadErr
}
func (f *fakeService) Ready() bool { return f.ready }

func newTestServer(svc Service, hints map[string]int) *httptest.Server {
	return httptest.NewServer(NewMux(svc, MuxConfig{BatchHints: hints}))
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestGetStatus(t *testing.T) {
	svc := &fakeService{ready: true, status: types.StatusResponse{
		CapacityBytes: 16 << 30,
		UsedBytes:     8 << 30,
		Residents: []types.ResidentStatus{
			{TaskID: "transcribe", Option: "large", ActualBytes: 8 << 30, LoadedAtUnix: 1700000000},
		},
	}}
	srv := newTestServer(svc, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	got := decodeBody[types.StatusResponse](t, resp)
	if got.CapacityBytes != 16<<30 || len(got.Residents) != 1 || got.Residents[0].TaskID != "transcribe" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestGetConfigEchoesBatchHints(t *testing.T) {
	svc := &fakeService{cfg: types.ConfigResponse{OffloadThreshold: 0.85}}
	srv := newTestServer(svc, map[string]int{"transcribe": 8})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/config")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got := decodeBody[types.ConfigResponse](t, resp)
	if got.BatchHints["transcribe"] != 8 {
		t.Fatalf("batch hints not echoed: %+v", got)
	}
}

func TestGetValidate(t *testing.T) {
	svc := &fakeService{report: types.BudgetReport{Valid: false, DeclaredTotalBytes: 15 << 30}}
	srv := newTestServer(svc, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/validate")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got := decodeBody[types.BudgetReport](t, resp)
	if got.Valid || got.DeclaredTotalBytes != 15<<30 {
		t.Fatalf("unexpected report: %+v", got)
	}
}

func TestSelectErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown task", manager.ErrInvalidTask("x"), http.StatusNotFound},
		{"unknown option", manager.ErrInvalidOption("x", "y"), http.StatusBadRequest},
		{"ok", nil, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{reselectErr: tc.err}
			srv := newTestServer(svc, nil)
			defer srv.Close()
			resp := postJSON(t, srv.URL+"/select", types.SelectRequest{TaskID: "x", Option: "y"})
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("got %d want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestSelectRequiresFields(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(svc, nil)
	defer srv.Close()
	resp := postJSON(t, srv.URL+"/select", types.SelectRequest{TaskID: "x"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d want 400", resp.StatusCode)
	}
	if len(svc.reselected) != 0 {
		t.Fatalf("service must not be called on bad input")
	}
}

func TestSelectRejectsNonJSON(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(svc, nil)
	defer srv.Close()
	resp, err := http.Post(srv.URL+"/select", "text/plain", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("got %d want 415", resp.StatusCode)
	}
}

func TestLoadEndpoint(t *testing.T) {
	svc := &fakeService{status: types.StatusResponse{
		Residents: []types.ResidentStatus{{TaskID: "a", Option: "default", ActualBytes: 1 << 30}},
	}}
	srv := newTestServer(svc, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/load", types.TaskRequest{TaskID: "a"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d want 200", resp.StatusCode)
	}
	got := decodeBody[types.ResidentStatus](t, resp)
	if got.TaskID != "a" {
		t.Fatalf("unexpected body: %+v", got)
	}
	if len(svc.loaded) != 1 || svc.loaded[0] != "a" {
		t.Fatalf("load not forwarded: %v", svc.loaded)
	}
}

func TestLoadErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown task", manager.ErrInvalidTask("a"), http.StatusNotFound},
		{"exhausted", manager.ErrResourceExhausted(20<<30, 16<<30), http.StatusInsufficientStorage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{loadErr: tc.err}
			srv := newTestServer(svc, nil)
			defer srv.Close()
			resp := postJSON(t, srv.URL+"/load", types.TaskRequest{TaskID: "a"})
			body := decodeBody[types.ErrorResponse](t, resp)
			if resp.StatusCode != tc.want {
				t.Fatalf("got %d want %d", resp.StatusCode, tc.want)
			}
			if body.Code != tc.want || body.Error == "" {
				t.Fatalf("bad error payload: %+v", body)
			}
		})
	}
}

func TestUnloadEndpoint(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(svc, nil)
	defer srv.Close()
	resp := postJSON(t, srv.URL+"/unload", types.TaskRequest{TaskID: "a"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("got %d want 204", resp.StatusCode)
	}
	if len(svc.unloadedID) != 1 || svc.unloadedID[0] != "a" {
		t.Fatalf("unload not forwarded: %v", svc.unloadedID)
	}
}

func TestHealthAndReady(t *testing.T) {
	svc := &fakeService{ready: true}
	srv := newTestServer(svc, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status %d", resp.StatusCode)
	}

	svc.ready = false
	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status %d when not ready", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(svc, nil)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", resp.StatusCode)
	}
}
