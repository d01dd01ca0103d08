package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/remedy/pkg/types"
)

// completionResponse renders a minimal chat completions payload whose
// assistant content is the given string.
func completionResponse(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestNewClient_Options(t *testing.T) {
	c, err := NewClient("key", WithModel("gpt-4o-mini"), WithBaseURL("http://localhost:9999/v1"), WithTokenBudget(100))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.model)
	assert.Equal(t, "http://localhost:9999/v1", c.baseURL)
	assert.Equal(t, 100, c.tokenBudget)
}

func TestProposeFix_ParsesOracleResponse(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)
		fmt.Fprint(w, completionResponse(`{"type":"attribute","selector":"img.logo","violationId":"v1","params":{"name":"alt","value":"Company logo"}}`))
	}))
	defer server.Close()

	c, err := NewClient("secret-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	violation := types.Violation{ID: "v1", RuleID: "image-alt", Selector: "img.logo"}
	instruction, err := c.ProposeFix(context.Background(), violation, types.PageContext{URL: "https://example.com"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, types.FixAttribute, instruction.Type)
	require.NotNil(t, instruction.Attribute)
	assert.Equal(t, "Company logo", instruction.Attribute.Value)
}

func TestProposeFix_APIErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer server.Close()

	c, err := NewClient("key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = c.ProposeFix(context.Background(), types.Violation{ID: "v1"}, types.PageContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestProposeFix_UnusableContentFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionResponse("Sorry, I cannot produce a fix for this."))
	}))
	defer server.Close()

	c, err := NewClient("key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = c.ProposeFix(context.Background(), types.Violation{ID: "v1"}, types.PageContext{})
	assert.Error(t, err)
}

func TestProposeFix_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c, err := NewClient("key", WithBaseURL(server.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.ProposeFix(ctx, types.Violation{ID: "v1"}, types.PageContext{})
	assert.Error(t, err)
}
