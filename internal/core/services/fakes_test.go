package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/adapters/driven/storage/cache"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/normalisers/pages"
	"github.com/custodia-labs/policyqa/internal/postprocessors/chunker"
)

// --- Fakes ---

// fakeExtractor returns fixed page text.
type fakeExtractor struct {
	pages []string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func (f *fakeExtractor) Name() string { return "fake" }

// vocabEmbedder gives every distinct word its own dimension and embeds text
// as a word-count vector, so similarity is exact word overlap.
type vocabEmbedder struct {
	mu     sync.Mutex
	vocab  map[string]int
	model  string
	err    error
	short  bool
	calls  int
	inputs int
}

const vocabDimensions = 512

func newVocabEmbedder() *vocabEmbedder {
	return &vocabEmbedder{vocab: make(map[string]int), model: "vocab-test"}
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (e *vocabEmbedder) vector(text string) []float32 {
	v := make([]float32, vocabDimensions)
	for _, w := range words(text) {
		idx, ok := e.vocab[w]
		if !ok {
			idx = len(e.vocab) % vocabDimensions
			e.vocab[w] = idx
		}
		v[idx]++
	}
	return v
}

func (e *vocabEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *vocabEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.inputs += len(texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	if e.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *vocabEmbedder) Dimensions() int              { return vocabDimensions }
func (e *vocabEmbedder) ModelName() string            { return e.model }
func (e *vocabEmbedder) Ping(_ context.Context) error { return nil }
func (e *vocabEmbedder) Close() error                 { return nil }

// keywordReranker scores a pair by how many query words of four or more
// letters occur in the passage.
type keywordReranker struct {
	err   error
	calls int
	pairs int
}

func (r *keywordReranker) Score(_ context.Context, pairs []driven.RerankPair) ([]float64, error) {
	r.calls++
	r.pairs += len(pairs)
	if r.err != nil {
		return nil, r.err
	}
	scores := make([]float64, len(pairs))
	for i, p := range pairs {
		passage := make(map[string]bool)
		for _, w := range words(p.Passage) {
			passage[w] = true
		}
		for _, w := range words(p.Query) {
			if len(w) >= 4 && passage[w] {
				scores[i]++
			}
		}
	}
	return scores, nil
}

func (r *keywordReranker) ModelName() string            { return "keyword" }
func (r *keywordReranker) Ping(_ context.Context) error { return nil }
func (r *keywordReranker) Close() error                 { return nil }

// scriptedLLM replays replies in order and records prompts.
type scriptedLLM struct {
	replies []string
	err     error
	prompts []string
	opts    []driven.GenerateOptions
}

func (l *scriptedLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	l.prompts = append(l.prompts, prompt)
	l.opts = append(l.opts, opts)
	if l.err != nil {
		return "", l.err
	}
	if len(l.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := l.replies[0]
	if len(l.replies) > 1 {
		l.replies = l.replies[1:]
	}
	return reply, nil
}

func (l *scriptedLLM) ModelName() string            { return "scripted" }
func (l *scriptedLLM) Ping(_ context.Context) error { return nil }
func (l *scriptedLLM) Close() error                 { return nil }

// staticPrompts serves one template for every name.
type staticPrompts struct {
	tmpl string
	err  error
}

func (p *staticPrompts) Load(_ string) (string, error) { return p.tmpl, p.err }
func (p *staticPrompts) Reload()                       {}

const testPrompt = "CONTEXT:\n%s\nQUERY: %s"

// fakeWatcher is a SourceWatcher driven by the test.
type fakeWatcher struct {
	changed bool
	resets  int
	closed  bool
}

func (w *fakeWatcher) Changed() bool { return w.changed }
func (w *fakeWatcher) Reset()        { w.changed = false; w.resets++ }
func (w *fakeWatcher) Close() error  { w.closed = true; return nil }

// --- Fixtures ---

// policyPages is a five-page policy with "POLICY DOCUMENT" atop every page
// and the knee surgery clause on page 4.
func policyPages() []string {
	return []string{
		"POLICY DOCUMENT\nThis insurance is a contract between the insurer and the member.\nThe insured person means the member named in the schedule.",
		"POLICY DOCUMENT\nPremium is due monthly by direct debit.\nLate payment may suspend benefits.",
		"POLICY DOCUMENT\nDental treatment is covered only after an accident.\nCosmetic dentistry is excluded.",
		"POLICY DOCUMENT\nOrthopaedic procedures including knee surgery are covered when medically necessary.\nPre-authorisation is required for knee surgery.",
		"POLICY DOCUMENT\nA claim is valid when submitted within ninety days.\nOriginal receipts are required.",
	}
}

// harness wires real normaliser, chunker, flat index and cache store
// around fake model collaborators.
type harness struct {
	extractor *fakeExtractor
	embedder  *vocabEmbedder
	reranker  *keywordReranker
	llm       *scriptedLLM
	store     *cache.Store
	index     *IndexService
	retrieval *RetrievalService
	answer    *AnswerService
	path      string
}

func newHarness(t *testing.T, rawPages []string) *harness {
	t.Helper()

	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)

	h := &harness{
		extractor: &fakeExtractor{pages: rawPages},
		embedder:  newVocabEmbedder(),
		reranker:  &keywordReranker{},
		llm:       &scriptedLLM{},
		store:     store,
		path:      "/policies/Health Policy (2024).pdf",
	}
	h.index = NewIndexService(h.extractor, pages.New(), chunker.New(), h.embedder, store,
		func() driven.VectorIndex { return flat.New(0) })
	h.retrieval = NewRetrievalService(store, h.embedder, h.reranker, domain.RetrievalSettings{InitialK: 15, FinalK: 3})
	h.answer = NewAnswerService(h.llm, &staticPrompts{tmpl: testPrompt})
	return h
}

func (h *harness) chat(watch driven.WatcherFactory) *ChatService {
	return NewChatService(h.index, h.retrieval, h.answer, watch)
}
