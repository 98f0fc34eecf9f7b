package service

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/models"
	"github.com/dpshade/pocket-meta/internal/storage"
	"github.com/dpshade/pocket-meta/internal/templates"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

type memDoc struct {
	mu     sync.Mutex
	name   string
	text   string
	writes int
}

func (d *memDoc) Name() string { return d.name }

func (d *memDoc) Read(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text, nil
}

func (d *memDoc) Write(ctx context.Context, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = content
	d.writes++
	return nil
}

func (d *memDoc) content() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// lockedDoc rejects every write
type lockedDoc struct {
	memDoc
}

func (d *lockedDoc) Write(ctx context.Context, content string) error {
	return os.ErrPermission
}

// pathDoc is a note in a folder; its name alone is not unique
type pathDoc struct {
	memDoc
	path string
}

func (d *pathDoc) Path() string { return d.path }

type fakeGenerator struct {
	calls    int32
	inFlight int32
	maxSeen  int32
	delay    time.Duration
	respond  func(req models.GenerationRequest) models.GenerationResult
}

func (g *fakeGenerator) Generate(ctx context.Context, req models.GenerationRequest) models.GenerationResult {
	atomic.AddInt32(&g.calls, 1)
	n := atomic.AddInt32(&g.inFlight, 1)
	defer atomic.AddInt32(&g.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&g.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&g.maxSeen, seen, n) {
			break
		}
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.respond != nil {
		return g.respond(req)
	}
	return models.GenerationResult{Success: true, Metadata: "title: generated\ntags: [note]", TokensUsed: 10, ProcessingTimeMs: 100}
}

func (g *fakeGenerator) Config() models.APIConfig {
	return models.APIConfig{Provider: "openai", Model: "test-model"}
}

var fixedNow = func() time.Time { return time.Date(2025, 5, 6, 8, 0, 0, 0, time.UTC) }

func newTestService(t *testing.T, gen Generator, opts ...func(*Options)) *Service {
	t.Helper()
	o := Options{Templates: templates.NewStore(), Generator: gen, Now: fixedNow}
	for _, fn := range opts {
		fn(&o)
	}
	svc, err := New(context.Background(), o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestGenerateForDocumentPreview(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)
	doc := &memDoc{name: "note.md", text: "Some thoughts about gardening."}

	outcome, err := svc.GenerateForDocument(context.Background(), doc, true, true)
	if err != nil {
		t.Fatalf("GenerateForDocument: %v", err)
	}
	if outcome.State != StatePreviewing {
		t.Errorf("State = %s, want %s", outcome.State, StatePreviewing)
	}
	if outcome.Metadata != "title: generated\ntags: [note]" {
		t.Errorf("Metadata = %q", outcome.Metadata)
	}
	if outcome.Template == nil {
		t.Error("Expected the chosen template on the outcome")
	}
	if doc.writes != 0 {
		t.Error("Preview must not write the document")
	}
}

func TestGenerateForDocumentInserts(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{})
	doc := &memDoc{name: "note.md", text: "Some thoughts about gardening."}

	outcome, err := svc.GenerateForDocument(context.Background(), doc, true, false)
	if err != nil {
		t.Fatalf("GenerateForDocument: %v", err)
	}
	if outcome.State != StateDone || !outcome.Inserted {
		t.Errorf("Expected Done with insert, got %s inserted=%v", outcome.State, outcome.Inserted)
	}
	want := "---\ntitle: generated\ntags: [note]\n---\n\nSome thoughts about gardening."
	if got := doc.content(); got != want {
		t.Errorf("Document = %q, want %q", got, want)
	}
}

func TestGenerateForDocumentWithoutAutoSelect(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)
	doc := &memDoc{name: "meeting-2024.md", text: "agenda: budget\nattendees: ana, ben"}

	outcome, err := svc.GenerateForDocument(context.Background(), doc, false, true)
	if err != nil {
		t.Fatalf("GenerateForDocument: %v", err)
	}
	if outcome.State != StateSelectingTemplate {
		t.Errorf("State = %s, want %s", outcome.State, StateSelectingTemplate)
	}
	if len(outcome.Suggestions) == 0 || outcome.Suggestions[0].Template.ID != templates.MeetingNotesID {
		t.Errorf("Expected meeting-notes suggested first, got %+v", outcome.Suggestions)
	}
	if atomic.LoadInt32(&gen.calls) != 0 {
		t.Error("Generator should not be called before a template is chosen")
	}
}

func TestEmptyDocumentFails(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)
	doc := &memDoc{name: "empty.md", text: "---\ntitle: x\n---\n\n   \n"}

	outcome, err := svc.GenerateForDocument(context.Background(), doc, true, false)
	if errors.CodeOf(err) != errors.ErrCodeDocumentEmpty {
		t.Fatalf("Expected DOCUMENT_EMPTY, got %v", err)
	}
	if outcome.State != StateErrored {
		t.Errorf("State = %s, want %s", outcome.State, StateErrored)
	}
	if outcome.Message == "" {
		t.Error("Expected a user-facing message")
	}
	if atomic.LoadInt32(&gen.calls) != 0 {
		t.Error("Generator should not be called for an empty document")
	}
	stats := svc.UsageStats()
	if stats.TotalRequests != 1 || stats.FailedRequests != 1 {
		t.Errorf("Expected one failed request, got %+v", stats)
	}
}

func TestGenerationFailureLeavesDocumentUntouched(t *testing.T) {
	gen := &fakeGenerator{respond: func(models.GenerationRequest) models.GenerationResult {
		return models.GenerationResult{Error: string(errors.ErrCodeAPIRequestFailed), Message: "status 500: boom", ProcessingTimeMs: 5}
	}}
	svc := newTestService(t, gen)
	original := "Text that stays."
	doc := &memDoc{name: "n.md", text: original}

	outcome, err := svc.GenerateWithTemplate(context.Background(), doc, models.Template{ID: templates.GeneralNoteID}, "", false)
	if errors.CodeOf(err) != errors.ErrCodeAPIRequestFailed {
		t.Fatalf("Expected API_REQUEST_FAILED, got %v", err)
	}
	if outcome.State != StateErrored {
		t.Errorf("State = %s", outcome.State)
	}
	if !strings.Contains(outcome.Message, "status 500") {
		t.Errorf("Message = %q", outcome.Message)
	}
	if doc.content() != original || doc.writes != 0 {
		t.Error("Document must be unchanged after a failure")
	}
}

func TestMergeInsertKeepsExistingKeys(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{})
	doc := &memDoc{name: "n.md", text: "---\nauthor: me\ntitle: old\n---\n\nBody text here."}

	if _, err := svc.GenerateForDocument(context.Background(), doc, true, false); err != nil {
		t.Fatalf("GenerateForDocument: %v", err)
	}
	want := "---\ntitle: generated\ntags: [note]\nauthor: me\n---\n\nBody text here."
	if got := doc.content(); got != want {
		t.Errorf("Document = %q, want %q", got, want)
	}
}

func TestInsertMetadataRejectsEmpty(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{})
	doc := &memDoc{name: "n.md", text: "body"}
	if err := svc.InsertMetadata(context.Background(), doc, "  \n", true); errors.CodeOf(err) != errors.ErrCodeValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
	if doc.writes != 0 {
		t.Error("Document should not be written")
	}
}

func TestUsageStatsRunningAverage(t *testing.T) {
	durations := []int64{100, 300, 200}
	var i int32
	gen := &fakeGenerator{respond: func(models.GenerationRequest) models.GenerationResult {
		n := atomic.AddInt32(&i, 1) - 1
		return models.GenerationResult{Success: true, Metadata: "title: x", TokensUsed: 7, ProcessingTimeMs: durations[n]}
	}}
	svc := newTestService(t, gen)

	for range durations {
		doc := &memDoc{name: "n.md", text: "body"}
		if _, err := svc.GenerateForDocument(context.Background(), doc, true, true); err != nil {
			t.Fatal(err)
		}
	}

	stats := svc.UsageStats()
	if stats.TotalRequests != 3 || stats.SuccessfulRequests != 3 || stats.FailedRequests != 0 {
		t.Errorf("Unexpected counters: %+v", stats)
	}
	if stats.TotalTokensUsed != 21 {
		t.Errorf("TotalTokensUsed = %d, want 21", stats.TotalTokensUsed)
	}
	if stats.AverageProcessingTimeMs != 200 {
		t.Errorf("AverageProcessingTimeMs = %v, want 200", stats.AverageProcessingTimeMs)
	}
	if !stats.LastUsedAt.Equal(fixedNow()) {
		t.Errorf("LastUsedAt = %v", stats.LastUsedAt)
	}

	if err := svc.ResetUsageStats(context.Background()); err != nil {
		t.Fatalf("ResetUsageStats: %v", err)
	}
	stats = svc.UsageStats()
	if stats.TotalRequests != 0 || stats.AverageProcessingTimeMs != 0 || !stats.LastResetAt.Equal(fixedNow()) {
		t.Errorf("Stats after reset = %+v", stats)
	}
}

func TestBatchGenerateIsolatesFailures(t *testing.T) {
	gen := &fakeGenerator{
		delay: 20 * time.Millisecond,
		respond: func(req models.GenerationRequest) models.GenerationResult {
			if req.FileName == "c.md" {
				return models.GenerationResult{Error: string(errors.ErrCodeAPIRequestFailed), Message: "status 500: boom"}
			}
			return models.GenerationResult{Success: true, Metadata: "title: ok", ProcessingTimeMs: 20}
		},
	}
	svc := newTestService(t, gen)

	names := []string{"a.md", "b.md", "c.md", "d.md", "e.md"}
	docs := make([]Document, len(names))
	for i, n := range names {
		docs[i] = &memDoc{name: n, text: "content of " + n}
	}

	var progress []int
	result, err := svc.BatchGenerate(context.Background(), docs, templates.GeneralNoteID, BatchOptions{
		MaxConcurrent: 2,
		OnProgress: func(current, total int, label string) {
			if total != 5 {
				t.Errorf("total = %d, want 5", total)
			}
			progress = append(progress, current)
		},
	})
	if err != nil {
		t.Fatalf("BatchGenerate: %v", err)
	}

	if result.Success != 4 || result.Failed != 1 {
		t.Errorf("Expected 4 succeeded and 1 failed, got %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].Document != "c.md" {
		t.Errorf("Expected a single error for c.md, got %+v", result.Errors)
	}
	if got := atomic.LoadInt32(&gen.maxSeen); got > 2 {
		t.Errorf("Saw %d concurrent requests, want at most 2", got)
	}
	for i, p := range progress {
		if p != i+1 {
			t.Errorf("progress = %v, want 1..5 in order", progress)
			break
		}
	}
	if len(progress) != 5 {
		t.Errorf("Expected 5 progress calls, got %d", len(progress))
	}
	if !strings.HasPrefix(docs[0].(*memDoc).content(), "---\ntitle: ok\n---") {
		t.Errorf("Successful document not updated: %q", docs[0].(*memDoc).content())
	}
	if docs[2].(*memDoc).content() != "content of c.md" {
		t.Error("Failed document must be unchanged")
	}
}

func TestInsertFailureCountsAsFailedRequest(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{})
	doc := &lockedDoc{memDoc{name: "readonly.md", text: "Notes about the harvest."}}

	outcome, err := svc.GenerateForDocument(context.Background(), doc, true, false)
	if errors.CodeOf(err) != errors.ErrCodeStorageFailure {
		t.Fatalf("Expected STORAGE_FAILURE, got %v", err)
	}
	if outcome.State != StateErrored || outcome.Inserted {
		t.Errorf("State = %s inserted=%v, want errored without insert", outcome.State, outcome.Inserted)
	}
	if outcome.Result.Success || outcome.Result.Error != string(errors.ErrCodeStorageFailure) {
		t.Errorf("Result = %+v, want a storage failure", outcome.Result)
	}

	stats := svc.UsageStats()
	if stats.TotalRequests != 1 || stats.SuccessfulRequests != 0 || stats.FailedRequests != 1 {
		t.Errorf("Unexpected counters: %+v", stats)
	}
	if stats.TotalTokensUsed != 10 {
		t.Errorf("Tokens spent on the model call should still count, got %d", stats.TotalTokensUsed)
	}
}

func TestBatchGenerateInsertFailureStats(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{})
	docs := []Document{
		&memDoc{name: "a.md", text: "first body"},
		&lockedDoc{memDoc{name: "b.md", text: "second body"}},
	}

	result, err := svc.BatchGenerate(context.Background(), docs, templates.GeneralNoteID, BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Success != 1 || result.Failed != 1 {
		t.Errorf("Batch = %+v, want 1 succeeded and 1 failed", result)
	}

	stats := svc.UsageStats()
	if stats.SuccessfulRequests != 1 || stats.FailedRequests != 1 {
		t.Errorf("Stats = %+v, want them to agree with the batch result", stats)
	}
}

func TestBatchGenerateErrorsKeyedByPath(t *testing.T) {
	gen := &fakeGenerator{respond: func(req models.GenerationRequest) models.GenerationResult {
		return models.GenerationResult{Error: string(errors.ErrCodeAPIRequestFailed), Message: "status 500: boom"}
	}}
	svc := newTestService(t, gen)

	docs := []Document{
		&pathDoc{memDoc: memDoc{name: "index.md", text: "project one"}, path: "projects/one/index.md"},
		&pathDoc{memDoc: memDoc{name: "index.md", text: "project two"}, path: "projects/two/index.md"},
	}

	result, err := svc.BatchGenerate(context.Background(), docs, templates.GeneralNoteID, BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("Expected 2 errors, got %+v", result.Errors)
	}
	if result.Errors[0].Document != "projects/one/index.md" || result.Errors[1].Document != "projects/two/index.md" {
		t.Errorf("Errors should name each document by path, got %+v", result.Errors)
	}
}

func TestBatchGenerateUnknownTemplate(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{})
	_, err := svc.BatchGenerate(context.Background(), nil, "no-such-template", BatchOptions{})
	if errors.CodeOf(err) != errors.ErrCodeTemplateNotFound {
		t.Errorf("Expected TEMPLATE_NOT_FOUND, got %v", err)
	}
}

func TestBatchGenerateSkipsUnchanged(t *testing.T) {
	gen := &fakeGenerator{}
	index := storage.NewGenerationIndex(t.TempDir())
	svc := newTestService(t, gen, func(o *Options) { o.Index = index })

	docs := []Document{
		&memDoc{name: "a.md", text: "first body"},
		&memDoc{name: "b.md", text: "second body"},
	}
	opts := BatchOptions{SkipUnchanged: true}

	first, err := svc.BatchGenerate(context.Background(), docs, templates.GeneralNoteID, opts)
	if err != nil || first.Success != 2 {
		t.Fatalf("First run = %+v, %v", first, err)
	}

	docs[1].(*memDoc).Write(context.Background(), "---\ntitle: generated\ntags: [note]\n---\n\nedited body")
	second, err := svc.BatchGenerate(context.Background(), docs, templates.GeneralNoteID, opts)
	if err != nil {
		t.Fatal(err)
	}
	if second.Skipped != 1 || second.Success != 1 {
		t.Errorf("Second run = %+v, want 1 skipped and 1 regenerated", second)
	}
	if got := atomic.LoadInt32(&gen.calls); got != 3 {
		t.Errorf("Generator calls = %d, want 3", got)
	}
}

func TestTemplateManagementPersists(t *testing.T) {
	store, err := storage.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.InitLibrary(); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t, &fakeGenerator{}, func(o *Options) { o.Storage = store })

	if _, err := svc.CreateTemplate(models.TemplateInput{Name: "Broken"}); errors.CodeOf(err) != errors.ErrCodeValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
	if _, err := svc.UpdateTemplate(templates.GeneralNoteID, models.TemplatePatch{}); errors.CodeOf(err) != errors.ErrCodePermissionDenied {
		t.Errorf("Expected permission error for built-in, got %v", err)
	}
	if err := svc.DeleteTemplate(templates.GeneralNoteID); errors.CodeOf(err) != errors.ErrCodePermissionDenied {
		t.Errorf("Expected permission error for built-in delete, got %v", err)
	}

	created, err := svc.CreateTemplate(models.TemplateInput{
		Name:         "Recipe",
		Description:  "Cooking notes",
		YAMLSkeleton: "title:\ningredients: []",
		Instructions: "List ingredients.",
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	dup, err := svc.DuplicateTemplate(created.ID, "")
	if err != nil || dup.Name != "Recipe (Copy)" {
		t.Fatalf("DuplicateTemplate = %+v, %v", dup, err)
	}

	reloaded := newTestService(t, &fakeGenerator{}, func(o *Options) { o.Storage = store })
	if _, err := reloaded.GetTemplate(created.ID); err != nil {
		t.Errorf("Custom template should survive a restart: %v", err)
	}
	if len(reloaded.ExportTemplates()) != 2 {
		t.Errorf("Expected 2 custom templates after reload, got %d", len(reloaded.ExportTemplates()))
	}

	if err := reloaded.DeleteTemplate(dup.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if err := reloaded.DeleteTemplate(dup.ID); errors.CodeOf(err) != errors.ErrCodeTemplateNotFound {
		t.Errorf("Expected TEMPLATE_NOT_FOUND on second delete, got %v", err)
	}
}

func TestEstimateCost(t *testing.T) {
	est := EstimateCost("one two three four")
	if est.Tokens != 4 {
		t.Errorf("Tokens = %d, want 4", est.Tokens)
	}
	if est.EstimatedCost != 4.0/1000*0.002 {
		t.Errorf("EstimatedCost = %v", est.EstimatedCost)
	}
	if est.PricingTier != PricingTier {
		t.Errorf("PricingTier = %q", est.PricingTier)
	}
}
