package schema

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/types"
)

type fakeSource struct {
	mu         sync.Mutex
	classes    map[string]*ast.ClassDef
	batchSizes []int
}

func newFakeSource() *fakeSource {
	cls := ast.NewClassDef("com.xkcd", nil)
	cls.AddQuery("get_comic", &ast.FunctionDef{
		Kind: ast.FunctionQuery, Name: "get_comic", IsList: false,
		Args: []ast.ArgumentDef{{Direction: ast.ArgOut, Name: "title", Type: types.String}},
	})
	return &fakeSource{classes: map[string]*ast.ClassDef{"com.xkcd": cls}}
}

func (f *fakeSource) FetchClasses(ctx context.Context, kinds []string, wantMeta bool) (map[string]*ast.ClassDef, map[string]error) {
	f.mu.Lock()
	f.batchSizes = append(f.batchSizes, len(kinds))
	f.mu.Unlock()

	classes := map[string]*ast.ClassDef{}
	failures := map[string]error{}
	for _, k := range kinds {
		if cls, ok := f.classes[k]; ok {
			classes[k] = cls
		} else {
			failures[k] = fmt.Errorf("no such kind")
		}
	}
	return classes, failures
}

func (f *fakeSource) FetchMixins(ctx context.Context, names []string) (map[string]*MixinDef, map[string]error) {
	return nil, nil
}

func (f *fakeSource) FetchMemorySchema(ctx context.Context, table string) (*ast.FunctionDef, error) {
	return nil, nil
}

func TestGetFullSchemaResolvesAndCaches(t *testing.T) {
	src := newFakeSource()
	r := NewRetriever(src)

	cls, err := r.GetFullSchema(context.Background(), "com.xkcd")
	require.NoError(t, err)
	assert.Equal(t, "com.xkcd", cls.Kind)

	// second call must hit the cache, not issue another batch
	_, err = r.GetFullSchema(context.Background(), "com.xkcd")
	require.NoError(t, err)
	assert.Len(t, src.batchSizes, 1)
}

func TestGetFullSchemaUnknownKind(t *testing.T) {
	src := newFakeSource()
	r := NewRetriever(src)

	_, err := r.GetFullSchema(context.Background(), "com.nonexistent")
	assert.Error(t, err)
	var uke *UnknownKindError
	assert.ErrorAs(t, err, &uke)
}

func TestEnqueueBatchesMultipleKindsInOneFlush(t *testing.T) {
	src := newFakeSource()
	src.classes["com.twitter"] = ast.NewClassDef("com.twitter", nil)
	r := NewRetriever(src)

	r.EnqueueSchema("com.xkcd", false)
	r.EnqueueSchema("com.twitter", false)
	require.NoError(t, r.Flush(context.Background()))

	assert.Equal(t, []int{2}, src.batchSizes)
	_, err := r.GetFullSchema(context.Background(), "com.xkcd")
	assert.NoError(t, err)
}

func TestGetSchemaAndNames(t *testing.T) {
	src := newFakeSource()
	r := NewRetriever(src)

	fn, err := r.GetSchemaAndNames(context.Background(), "com.xkcd", ast.FunctionQuery, "get_comic")
	require.NoError(t, err)
	assert.Equal(t, "get_comic", fn.Name)

	_, err = r.GetSchemaAndNames(context.Background(), "com.xkcd", ast.FunctionQuery, "nonexistent")
	assert.Error(t, err)
	var ufe *UnknownFunctionError
	assert.ErrorAs(t, err, &ufe)
}

func TestInvalidateKindForcesRefetch(t *testing.T) {
	src := newFakeSource()
	r := NewRetriever(src)

	_, err := r.GetFullSchema(context.Background(), "com.xkcd")
	require.NoError(t, err)
	r.InvalidateKind("com.xkcd")
	_, err = r.GetFullSchema(context.Background(), "com.xkcd")
	require.NoError(t, err)
	assert.Len(t, src.batchSizes, 2)
}

func TestValidateMixinConfig(t *testing.T) {
	m := &MixinDef{
		Name: "org.thingpedia.config.oauth2",
		Kind: "oauth2",
		Schema: []byte(`{
			"type": "object",
			"properties": {"client_id": {"type": "string"}},
			"required": ["client_id"]
		}`),
	}
	assert.NoError(t, ValidateMixinConfig(m, map[string]any{"client_id": "abc"}))
	assert.Error(t, ValidateMixinConfig(m, map[string]any{}))
}

func TestValidateMixinConfigUnconstrained(t *testing.T) {
	m := &MixinDef{Name: "org.thingpedia.config.none", Kind: "none"}
	assert.NoError(t, ValidateMixinConfig(m, map[string]any{"anything": 1}))
}
