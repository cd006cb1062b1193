package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"a"}`, ""},
		{"trailing whitespace", "{\"name\":\"a\"}\n ", ""},
		{"empty", ``, "body must not be empty"},
		{"syntax", `{"name":}`, "badly-formed JSON"},
		{"truncated", `{"name":"a"`, "badly-formed JSON"},
		{"wrong type", `{"name":1}`, `incorrect JSON type for field "name"`},
		{"unknown key", `{"nick":"a"}`, `unknown key "nick"`},
		{"two values", `{"name":"a"}{"name":"b"}`, "single JSON value"},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "must not be larger than"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := readJSON(httptest.NewRecorder(), r, &dst)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}
