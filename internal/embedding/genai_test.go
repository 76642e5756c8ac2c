package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeEmbedModels struct {
	dims   int
	err    error
	config *genai.EmbedContentConfig
}

func (f *fakeEmbedModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	resp := &genai.EmbedContentResponse{}
	for i := range contents {
		v := make([]float32, f.dims)
		v[i%f.dims] = 3
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: v})
	}
	return resp, nil
}

func TestGenAIEmbedder_EmbedBatch(t *testing.T) {
	fake := &fakeEmbedModels{dims: 4}
	e := newGenAIEmbedder(fake, "", 4)

	out, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.InDelta(t, 1.0, out[0][0], 1e-6)
	assert.InDelta(t, 1.0, out[1][1], 1e-6)
	require.NotNil(t, fake.config.OutputDimensionality)
	assert.Equal(t, int32(4), *fake.config.OutputDimensionality)
}

func TestGenAIEmbedder_TaskTypes(t *testing.T) {
	fake := &fakeEmbedModels{dims: 4}
	e := newGenAIEmbedder(fake, "m", 4)
	ctx := context.Background()

	_, err := e.Embed(ctx, "document text")
	require.NoError(t, err)
	assert.Equal(t, "RETRIEVAL_DOCUMENT", fake.config.TaskType)

	_, err = e.EmbedQuery(ctx, "what is it")
	require.NoError(t, err)
	assert.Equal(t, "RETRIEVAL_QUERY", fake.config.TaskType)

	_, err = EmbedQuery(ctx, NewCachedEmbedder(e, 4), "another question")
	require.NoError(t, err)
	assert.Equal(t, "RETRIEVAL_QUERY", fake.config.TaskType)
}

func TestGenAIEmbedder_DimensionMismatch(t *testing.T) {
	e := newGenAIEmbedder(&fakeEmbedModels{dims: 3}, "m", 4)
	_, err := e.Embed(context.Background(), "a")
	assert.Error(t, err)
}

func TestGenAIEmbedder_Error(t *testing.T) {
	boom := errors.New("boom")
	e := newGenAIEmbedder(&fakeEmbedModels{dims: 4, err: boom}, "m", 4)
	_, err := e.Embed(context.Background(), "a")
	assert.ErrorIs(t, err, boom)
}

func TestNewGenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewGenAIEmbedder(context.Background(), "", "m", 4)
	assert.Error(t, err)
}
