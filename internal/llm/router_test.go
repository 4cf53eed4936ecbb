package llm

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type fakeClient struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls = append(f.calls, req.Model)
	if err := f.errs[req.Model]; err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	content := f.responses[req.Model]
	if content == "" {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func testConfig() Config {
	return Config{
		PrimaryModel:  "primary",
		FallbackModel: "fallback",
		ComplexModel:  "complex",
	}
}

func TestCompleteJSON_PrimaryFirst(t *testing.T) {
	fake := &fakeClient{responses: map[string]string{"primary": `{"ok":true}`}}
	r := NewRouterWithClient(fake, testConfig(), nil, nil)

	got, err := r.CompleteJSON(context.Background(), []Message{{Role: "user", Content: "hi"}}, false)
	if err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("CompleteJSON() = %q", got)
	}
	if len(fake.calls) != 1 || fake.calls[0] != "primary" {
		t.Errorf("calls = %v, want [primary]", fake.calls)
	}
}

func TestCompleteJSON_ComplexHintPromotes(t *testing.T) {
	fake := &fakeClient{responses: map[string]string{"complex": `{"x":1}`}}
	r := NewRouterWithClient(fake, testConfig(), nil, nil)

	if _, err := r.CompleteJSON(context.Background(), nil, true); err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if fake.calls[0] != "complex" {
		t.Errorf("first call = %s, want complex", fake.calls[0])
	}
}

func TestCompleteJSON_FallbackOnError(t *testing.T) {
	fake := &fakeClient{
		errs:      map[string]error{"primary": errors.New("rate limited")},
		responses: map[string]string{"fallback": `{"y":2}`},
	}
	r := NewRouterWithClient(fake, testConfig(), nil, nil)

	got, err := r.CompleteJSON(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if got != `{"y":2}` {
		t.Errorf("CompleteJSON() = %q", got)
	}
	if len(fake.calls) != 2 {
		t.Errorf("calls = %v, want primary then fallback", fake.calls)
	}
}

func TestCompleteJSON_AllFail(t *testing.T) {
	fake := &fakeClient{errs: map[string]error{
		"primary":  errors.New("down"),
		"fallback": errors.New("also down"),
	}}
	r := NewRouterWithClient(fake, testConfig(), nil, nil)

	if _, err := r.CompleteJSON(context.Background(), nil, false); err == nil {
		t.Fatal("CompleteJSON() expected error when every model fails")
	}
}

func TestCompleteJSON_EmptyContentIsFailure(t *testing.T) {
	fake := &fakeClient{responses: map[string]string{"fallback": `{"z":3}`}}
	r := NewRouterWithClient(fake, testConfig(), nil, nil)

	got, err := r.CompleteJSON(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if got != `{"z":3}` {
		t.Errorf("empty primary should fall through, got %q", got)
	}
}
