package extract

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bid-compare/internal/config"
	"github.com/sells-group/bid-compare/pkg/anthropic"
)

func testOptions() Options {
	return Options{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   1024,
		Concurrency: 2,
		ChunkChars:  12000,
		MaxAttempts: 3,
	}
}

func forDocument(name string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 && strings.Contains(req.Messages[0].Content, "Document: "+name)
	})
}

func fastRetries(e *Extractor) {
	e.backoff = backoff{MaxAttempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	cfg.Anthropic.MaxTokens = 2048
	cfg.Extract.Concurrency = 4
	cfg.Extract.RequestsPerSecond = 1.5
	cfg.Extract.ChunkChars = 8000
	cfg.Extract.MaxAttempts = 5

	assert.Equal(t, Options{
		Model:             "claude-haiku-4-5-20251001",
		MaxTokens:         2048,
		Concurrency:       4,
		RequestsPerSecond: 1.5,
		ChunkChars:        8000,
		MaxAttempts:       5,
	}, OptionsFromConfig(cfg))
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "acme.txt", "ACME MECHANICAL\nPlan 4101  $9,425.00\nPlan 4102  $7,100.00\n")

	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			len(req.System) == 1 && req.System[0].CacheControl != nil &&
			strings.Contains(req.Messages[0].Content, "Document: acme.txt (part 1 of 1)") &&
			strings.Contains(req.Messages[0].Content, "Plan 4101")
	})).Return(textResponse(`[
		{"plan_id": "4101", "price": 9425.00, "vendor": "Acme Mechanical"},
		{"plan_id": "4102", "price": 7100.00}
	]`), nil).Once()

	e := New(client, NewLoader(nil), testOptions())
	res := e.ExtractFile(context.Background(), path)
	require.NoError(t, res.Err)

	assert.Equal(t, "acme.txt", res.Source)
	assert.Equal(t, 1, res.Chunks)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Acme Mechanical", res.Records[0].Vendor)
	assert.Equal(t, "acme.txt", res.Records[0].SourceFile)
	assert.Nil(t, res.Records[1].Vendor)
	assert.Equal(t, "acme.txt", res.Records[1].SourceFile)
	assert.Equal(t, int64(100), res.Usage.InputTokens)
	client.AssertExpectations(t)
}

func TestExtractFile_Chunks(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.txt", "Plan 1 $100\nPlan 2 $200\n")

	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, "part 1 of 2")
	})).Return(textResponse(`[{"plan_id": "1", "price": 100}]`), nil).Once()
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, "part 2 of 2")
	})).Return(textResponse(`[{"plan_id": "2", "price": 200}]`), nil).Once()

	opts := testOptions()
	opts.ChunkChars = 12
	res := New(client, NewLoader(nil), opts).ExtractFile(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Chunks)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "1", res.Records[0].PlanID)
	assert.Equal(t, "2", res.Records[1].PlanID)
	assert.Equal(t, int64(200), res.Usage.InputTokens)
	client.AssertExpectations(t)
}

func TestExtractFile_BadReply(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "acme.txt", "Plan 4101 $9,425.00")

	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("I could not find any plans."), nil).Once()

	res := New(client, NewLoader(nil), testOptions()).ExtractFile(context.Background(), path)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "acme.txt part 1")
}

func TestExtractFile_KeepsGoodChunks(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.txt", "Plan 1 $100\nPlan 2 $200\nPlan 3 $300\n")

	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, "part 1 of 3")
	})).Return(textResponse(`[{"plan_id": "1", "price": 100}]`), nil).Once()
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, "part 2 of 3")
	})).Return(textResponse("Sorry, that page was unreadable."), nil).Once()
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, "part 3 of 3")
	})).Return(textResponse(`[{"plan_id": "3", "price": 300, "tonnage": 4, "city": "Plano"}]`), nil).Once()

	opts := testOptions()
	opts.ChunkChars = 12
	res := New(client, NewLoader(nil), opts).ExtractFile(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, []int{2}, res.FailedParts)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "1", res.Records[0].PlanID)
	assert.Equal(t, "3", res.Records[1].PlanID)
	assert.Equal(t, "Plano", res.Records[1].Attributes["city"])
	client.AssertExpectations(t)
}

func TestExtractDir_ReportsPartialDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", "Plan 1 $100\nPlan 2 $200\n")

	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, "part 1 of 2")
	})).Return(nil, errors.New("invalid request")).Once()
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, "part 2 of 2")
	})).Return(textResponse(`[{"plan_id": "2", "price": 200}]`), nil).Once()

	opts := testOptions()
	opts.ChunkChars = 12
	art, sum, err := New(client, NewLoader(nil), opts).ExtractDir(context.Background(), dir, []string{".txt"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Empty(t, sum.Failed)
	assert.Equal(t, map[string][]int{"big.txt": {1}}, sum.Partial)
	assert.Len(t, art["big.txt"], 1)
}

func TestExtractFile_RetriesTimeouts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "acme.txt", "Plan 4101 $9,425.00")

	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, timeoutErr{}).Twice()
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`[{"plan_id": "4101", "price": 9425}]`), nil).Once()

	e := New(client, NewLoader(nil), testOptions())
	fastRetries(e)

	res := e.ExtractFile(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Len(t, res.Records, 1)
	client.AssertNumberOfCalls(t, "CreateMessage", 3)
}

func TestExtractFile_NoRetryOnPermanentError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "acme.txt", "Plan 4101 $9,425.00")

	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("invalid api key")).Once()

	e := New(client, NewLoader(nil), testOptions())
	fastRetries(e)

	res := e.ExtractFile(context.Background(), path)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "invalid api key")
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestExtractDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "acme.txt", "Plan 4101 $9,425.00")
	writeFile(t, dir, "bolt.txt", "Plan 4101 $9,100.00")
	writeFile(t, dir, "broken.txt", "garbled")
	writeFile(t, dir, "readme.doc", "ignored")

	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, forDocument("acme.txt")).
		Return(textResponse(`[{"plan_id": "4101", "price": 9425}]`), nil).Once()
	client.On("CreateMessage", mock.Anything, forDocument("bolt.txt")).
		Return(textResponse(`[{"plan_id": "4101", "price": 9100}]`), nil).Once()
	client.On("CreateMessage", mock.Anything, forDocument("broken.txt")).
		Return(nil, errors.New("overloaded")).Once()

	e := New(client, NewLoader(nil), testOptions())
	art, sum, err := e.ExtractDir(context.Background(), dir, []string{".txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme.txt", "bolt.txt"}, art.Sources())
	assert.Equal(t, 3, sum.Documents)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 2, sum.Records)
	assert.Contains(t, sum.Failed["broken.txt"], "overloaded")
	assert.Equal(t, int64(200), sum.Usage.InputTokens)

	recs := art.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "acme.txt", recs[0].Source)
	assert.Equal(t, "bolt.txt", recs[1].SourceFile)
	client.AssertExpectations(t)
}

func TestExtractDir_Empty(t *testing.T) {
	e := New(new(mockAnthropicClient), NewLoader(nil), testOptions())
	_, _, err := e.ExtractDir(context.Background(), t.TempDir(), []string{".pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no bid documents")
}

func TestExtractAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	path := writeFile(t, dir, "acme.txt", "Plan 4101 $9,425.00")

	e := New(new(mockAnthropicClient), NewLoader(nil), testOptions())
	_, _, err := e.ExtractAll(ctx, []string{filepath.Clean(path)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract: cancelled")
}

func TestBackoffDelay(t *testing.T) {
	b := backoff{MaxAttempts: 5, Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, b.delay(0))
	assert.Equal(t, 200*time.Millisecond, b.delay(1))
	assert.Equal(t, 300*time.Millisecond, b.delay(5))

	b.Jitter = 0.5
	for range 20 {
		d := b.delay(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(timeoutErr{}))
	assert.False(t, retryable(errors.New("bad request")))
	assert.False(t, retryable(context.Canceled))
}
