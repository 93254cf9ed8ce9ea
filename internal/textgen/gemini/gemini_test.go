package gemini

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/JakeFAU/webextract/internal/crawler"
)

type fakeModels struct {
	mu       sync.Mutex
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	reply    string
	err      error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeModels) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.model, f.contents, f.config = model, contents, config
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	fake := &fakeModels{reply: "  an answer \n"}
	g := newGenerator(fake, Config{Model: "test-model"})

	out, err := g.Generate(context.Background(), "be brief", "page text")
	require.NoError(t, err)
	require.Equal(t, "an answer", out)
	require.Equal(t, "test-model", fake.model)
	require.Equal(t, "page text", fake.contents[0].Parts[0].Text)
	require.Equal(t, "be brief", fake.config.SystemInstruction.Parts[0].Text)
}

func TestGenerateWithoutContentSendsPromptAsUserText(t *testing.T) {
	t.Parallel()

	fake := &fakeModels{reply: "ok"}
	g := newGenerator(fake, Config{})

	_, err := g.Generate(context.Background(), "say ok", "")
	require.NoError(t, err)
	require.Equal(t, DefaultModel, fake.model)
	require.Equal(t, "say ok", fake.contents[0].Parts[0].Text)
	require.Nil(t, fake.config.SystemInstruction)
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	_, err := newGenerator(&fakeModels{err: errors.New("quota")}, Config{}).Generate(context.Background(), "p", "c")
	require.ErrorContains(t, err, "quota")

	_, err = newGenerator(&fakeModels{reply: "   "}, Config{}).Generate(context.Background(), "p", "c")
	require.Error(t, err)

	var nilGen *Generator
	_, err = nilGen.Generate(context.Background(), "p", "c")
	require.ErrorIs(t, err, crawler.ErrTextGenerationUnavailable)
}

func TestGenerateTimeout(t *testing.T) {
	t.Parallel()

	g := newGenerator(&fakeModels{reply: "late", delay: time.Second}, Config{Timeout: 20 * time.Millisecond})
	_, err := g.Generate(context.Background(), "p", "c")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateBoundsConcurrency(t *testing.T) {
	t.Parallel()

	fake := &fakeModels{reply: "ok", delay: 20 * time.Millisecond}
	g := newGenerator(fake, Config{MaxConcurrency: 2})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Generate(context.Background(), "p", "c")
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, fake.peak.Load(), int32(2))
}

func TestNewWithoutKey(t *testing.T) {
	t.Parallel()

	g, err := New(context.Background(), Config{})
	require.NoError(t, err)
	require.Nil(t, g)
}
