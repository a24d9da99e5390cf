package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var in map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, DefaultModel, in["model"])
		assert.Equal(t, "Say hi", in["prompt"])
		assert.Equal(t, false, in["stream"])
		_, _ = w.Write([]byte(`{"model":"llama3.1:8b","response":"hi there","done":true}`))
	}))
	defer srv.Close()

	out, err := NewClient(Config{BaseURL: srv.URL + "/"}).Generate(context.Background(), "Say hi")

	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestGenerate_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		},
		"error field": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"out of memory"}`))
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response":""}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`nope`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := NewClient(Config{BaseURL: srv.URL}).Generate(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultBaseURL+"/api/generate", c.url)
	assert.Equal(t, DefaultModel, c.model)
	assert.Equal(t, "ollama", c.Name())
}
