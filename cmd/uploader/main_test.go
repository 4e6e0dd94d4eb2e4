package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kjstillabower/weather-uploader/internal/models"
)

const sampleMetric = `{"name":"weather","timestamp":1700000000,"fields":{"temperature":20,"humidity":50}}`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestServe_IntentionallyUntested(t *testing.T) {
	t.Skip("serve is wiring-only; all logic lives in internal packages with tests. Entrypoint coverage would require exec or heavy mocking")
}

func TestDewpointCmd(t *testing.T) {
	tests := []struct {
		args    []string
		want    string
		wantErr bool
	}{
		{args: []string{"20", "50"}, want: "48.66\n"},
		{args: []string{"22", "55"}, want: "54.56\n"},
		{args: []string{"20", "0"}, wantErr: true},
		{args: []string{"20", "101"}, wantErr: true},
		{args: []string{"warm", "50"}, wantErr: true},
		{args: []string{"20"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, "_"), func(t *testing.T) {
			out, err := execute(t, "", append([]string{"dewpoint"}, tt.args...)...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestPushCmd_PostsFile(t *testing.T) {
	var gotBody []byte
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(models.UploadResponse{Success: true, Message: "Uploaded successfully to both services"})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "sample.json")
	if err := os.WriteFile(path, []byte(sampleMetric), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "push", "--url", srv.URL+"/metrics", path)
	if err != nil {
		t.Fatalf("push error = %v", err)
	}
	if string(gotBody) != sampleMetric {
		t.Errorf("server received %q", gotBody)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if out != "200 Uploaded successfully to both services\n" {
		t.Errorf("output = %q", out)
	}
}

func TestPushCmd_ReadsStdin(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_ = json.NewEncoder(w).Encode(models.UploadResponse{Success: true, Message: "ok"})
	}))
	defer srv.Close()

	if _, err := execute(t, sampleMetric, "push", "--url", srv.URL, "-"); err != nil {
		t.Fatalf("push error = %v", err)
	}
	if !called {
		t.Error("server not called")
	}
}

func TestPushCmd_PartialFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
		_ = json.NewEncoder(w).Encode(models.UploadResponse{Message: "Some uploads failed: pwsweather: boom"})
	}))
	defer srv.Close()

	out, err := execute(t, sampleMetric, "push", "--url", srv.URL, "-")
	if err == nil || !strings.Contains(err.Error(), "206") {
		t.Errorf("err = %v, want status 206", err)
	}
	if !strings.Contains(out, "pwsweather: boom") {
		t.Errorf("output = %q, want server message", out)
	}
}

func TestPushCmd_RejectsInvalidJSONLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := execute(t, "not json", "push", "--url", srv.URL, "-")
	if err == nil || !strings.Contains(err.Error(), "invalid metric JSON") {
		t.Errorf("err = %v", err)
	}
	if called {
		t.Error("invalid input must not be sent")
	}
}

func TestPushCmd_MissingFile(t *testing.T) {
	if _, err := execute(t, "", "push", filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSoftwareType(t *testing.T) {
	if got := softwareType(); got != "Seed Studio SenseCAP S1000 Adapter v"+version {
		t.Errorf("softwareType() = %q", got)
	}
}
