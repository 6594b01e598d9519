package chat_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docchat/features/chat"
	"docchat/internal/document"
	"docchat/internal/retrieval"
)

type MockRetriever struct{ mock.Mock }

func (m *MockRetriever) Retrieve(ctx context.Context, query string) ([]retrieval.Match, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.Match), args.Error(1)
}

type MockCompleter struct{ mock.Mock }

func (m *MockCompleter) StreamLines(ctx context.Context, prompt string, emit func(line string) error) error {
	args := m.Called(ctx, prompt, emit)
	return args.Error(0)
}

func streamWith(lines ...string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		emit := args.Get(2).(func(string) error)
		for _, l := range lines {
			_ = emit(l)
		}
	}
}

func post(h *chat.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Stream(w, req)
	return w
}

func TestStream_PlainChatFrameSequence(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("StreamLines", mock.Anything, "hello", mock.Anything).
		Run(streamWith("Hi there.", "How can I help?")).Return(nil)

	h := chat.NewHandler(nil, completer)
	w := post(h, `{"message":"hello"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	first := strings.Index(body, `data: {"data":"Hi there."}`)
	second := strings.Index(body, `data: {"data":"How can I help?"}`)
	done := strings.Index(body, "data: [DONE]\n\n")
	require.GreaterOrEqual(t, first, 0)
	assert.Greater(t, second, first)
	assert.Greater(t, done, second)
	completer.AssertExpectations(t)
}

func TestStream_RAGComposesPromptAndEmitsSources(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, "what is the policy?").Return([]retrieval.Match{
		{
			Content:  "The policy is X.",
			Metadata: document.ChunkMetadata{DocumentID: "d1", Title: "Handbook", SourceURL: "https://drive/d1"},
		},
	}, nil)

	completer := new(MockCompleter)
	completer.On("StreamLines", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "The policy is X.") &&
			strings.Contains(prompt, "QUESTION: what is the policy?")
	}), mock.Anything).Run(streamWith("It is X.")).Return(nil)

	h := chat.NewHandler(retriever, completer)
	w := post(h, `{"message":"what is the policy?","use_rag":true}`)

	body := w.Body.String()
	sources := strings.Index(body, `"sources"`)
	content := strings.Index(body, `data: {"data":"It is X."}`)
	require.GreaterOrEqual(t, sources, 0, "sources frame missing")
	assert.Greater(t, content, sources, "sources frame must precede content")
	assert.Contains(t, body, `"title":"Handbook"`)
	assert.Contains(t, body, "data: [DONE]\n\n")
}

func TestStream_NoRelevantContextFallsBackToPlainPrompt(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, "obscure").Return([]retrieval.Match{}, nil)

	completer := new(MockCompleter)
	completer.On("StreamLines", mock.Anything, "obscure", mock.Anything).
		Run(streamWith("I don't know.")).Return(nil)

	h := chat.NewHandler(retriever, completer)
	w := post(h, `{"message":"obscure","use_rag":true}`)

	body := w.Body.String()
	assert.NotContains(t, body, `"sources"`)
	assert.Contains(t, body, `data: {"data":"I don't know."}`)
	completer.AssertExpectations(t)
}

func TestStream_RetrievalFailureDegradesToPlainChat(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, "q").Return(nil, errors.New("index down"))

	completer := new(MockCompleter)
	completer.On("StreamLines", mock.Anything, "q", mock.Anything).
		Run(streamWith("answer")).Return(nil)

	h := chat.NewHandler(retriever, completer)
	w := post(h, `{"message":"q","use_rag":true}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data: {"data":"answer"}`)
}

func TestStream_UpstreamFailureEmitsErrorFrame(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("StreamLines", mock.Anything, "q", mock.Anything).
		Return(errors.New("completion api error: status 500"))

	h := chat.NewHandler(nil, completer)
	w := post(h, `{"message":"q"}`)

	body := w.Body.String()
	assert.Contains(t, body, `data: {"error":"completion api error: status 500"}`)
	assert.Contains(t, body, "data: [DONE]\n\n")
}

func TestStream_ValidationErrors(t *testing.T) {
	h := chat.NewHandler(nil, new(MockCompleter))

	w := post(h, `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	w = post(h, `{bad json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStream_ChatNotConfigured(t *testing.T) {
	h := chat.NewHandler(nil, nil)

	w := post(h, `{"message":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "CONFIG_ERROR")
}
