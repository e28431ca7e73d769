package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neighborly/moderation/internal/domain"
	"github.com/neighborly/moderation/internal/pipeline"
	"github.com/neighborly/moderation/internal/policy"
	"github.com/neighborly/moderation/internal/retry"
	"github.com/neighborly/moderation/internal/source"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// scriptedScorer returns canned score maps by text and records every text it
// was asked to score.
type scriptedScorer struct {
	scores map[string]domain.ScoreMap
	calls  []string
}

func (s *scriptedScorer) Score(_ context.Context, text string) domain.ScoreMap {
	s.calls = append(s.calls, text)
	if m, ok := s.scores[text]; ok {
		return m
	}
	return domain.ZeroScores()
}

type stubReader struct {
	desc  source.Descriptor
	units []domain.ContentUnit
	err   error
}

func (r *stubReader) Descriptor() source.Descriptor {
	return r.desc
}

func (r *stubReader) ReadPage(_ context.Context, offset, limit int) ([]domain.ContentUnit, error) {
	if r.err != nil {
		return nil, r.err
	}
	if offset >= len(r.units) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.units) {
		end = len(r.units)
	}
	return r.units[offset:end], nil
}

func commentsDescriptor() source.Descriptor {
	return source.Descriptor{
		Name:         "comments",
		Store:        source.StorePostgres,
		Table:        "comments",
		Columns:      []string{"commentid", "text", "username"},
		ContentField: "text",
		IDField:      "commentid",
		Identity: []source.IdentityField{
			{Name: "commentid", Column: "commentid"},
		},
		UsernameField: "username",
		Category:      domain.CategoryComment,
	}
}

func messagesDescriptor() source.Descriptor {
	return source.Descriptor{
		Name:         "messages",
		Store:        source.StoreMongo,
		Table:        "messages",
		ContentField: "msg",
		IDField:      "_id",
		Identity: []source.IdentityField{
			{Name: "messageid", Column: "_id"},
		},
		Category: domain.CategoryMessage,
	}
}

func newEngine(t *testing.T) *policy.Engine {
	t.Helper()
	engine, err := policy.NewEngine(policy.Thresholds{
		domain.AttributeToxicity:       0.7,
		domain.AttributeIdentityAttack: 0.5,
		domain.AttributeInsult:         0.8,
		domain.AttributeProfanity:      0.9,
		domain.AttributeThreat:         0.4,
	})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return engine
}

func driverConfig() pipeline.Config {
	return pipeline.Config{
		PageSize: 10,
		PageRetry: retry.Config{
			MaxAttempts: 2,
			Delay:       time.Millisecond,
			IsRetryable: retry.DefaultIsRetryable,
		},
	}
}

func commentUnit(id int64, text, username string) domain.ContentUnit {
	return domain.ContentUnit{
		Source:   "comments",
		Category: domain.CategoryComment,
		Identity: domain.Identity{
			domain.IdentityCommentID: domain.IntValue(id),
		},
		Text:           text,
		SecondaryText:  username,
		SecondaryLabel: "username",
	}
}

func toxic(value float64) domain.ScoreMap {
	m := domain.ZeroScores()
	m[domain.AttributeToxicity] = value
	return m
}

func TestDriver_Run_PrimaryTriggerSuppressesSecondary(t *testing.T) {
	scorer := &scriptedScorer{scores: map[string]domain.ScoreMap{
		"bad text": toxic(0.95),
	}}

	registry, err := source.NewRegistry([]source.Descriptor{commentsDescriptor()})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	readers := map[string]source.Reader{
		"comments": &stubReader{
			desc:  commentsDescriptor(),
			units: []domain.ContentUnit{commentUnit(1, "bad text", "someuser")},
		},
	}

	driver := pipeline.New(registry, readers, scorer, newEngine(t), driverConfig(), nopLogger{})
	flags, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(flags) != 1 {
		t.Fatalf("Run() produced %d flags, want 1", len(flags))
	}
	if flags[0].ReportReason != "TOXICITY in text" {
		t.Errorf("ReportReason = %q, want %q", flags[0].ReportReason, "TOXICITY in text")
	}
	if flags[0].Severity != 5 {
		t.Errorf("Severity = %d, want 5", flags[0].Severity)
	}

	// The username is never sent for scoring once the content triggered.
	if len(scorer.calls) != 1 || scorer.calls[0] != "bad text" {
		t.Errorf("scorer calls = %v, want only the primary text", scorer.calls)
	}
}

func TestDriver_Run_SecondaryTextFlagged(t *testing.T) {
	scorer := &scriptedScorer{scores: map[string]domain.ScoreMap{
		"offensivename": toxic(0.85),
	}}

	registry, err := source.NewRegistry([]source.Descriptor{commentsDescriptor()})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	readers := map[string]source.Reader{
		"comments": &stubReader{
			desc:  commentsDescriptor(),
			units: []domain.ContentUnit{commentUnit(1, "harmless text", "offensivename")},
		},
	}

	driver := pipeline.New(registry, readers, scorer, newEngine(t), driverConfig(), nopLogger{})
	flags, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(flags) != 1 {
		t.Fatalf("Run() produced %d flags, want 1", len(flags))
	}
	if flags[0].ReportReason != "TOXICITY in username" {
		t.Errorf("ReportReason = %q, want %q", flags[0].ReportReason, "TOXICITY in username")
	}
	if len(scorer.calls) != 2 {
		t.Errorf("scorer calls = %v, want primary then secondary", scorer.calls)
	}
}

func TestDriver_Run_CleanContentProducesNoFlags(t *testing.T) {
	scorer := &scriptedScorer{}

	registry, err := source.NewRegistry([]source.Descriptor{commentsDescriptor()})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	readers := map[string]source.Reader{
		"comments": &stubReader{
			desc: commentsDescriptor(),
			units: []domain.ContentUnit{
				commentUnit(1, "fine", "alice"),
				commentUnit(2, "also fine", "bob"),
			},
		},
	}

	driver := pipeline.New(registry, readers, scorer, newEngine(t), driverConfig(), nopLogger{})
	flags, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(flags) != 0 {
		t.Errorf("Run() produced %d flags, want 0", len(flags))
	}
}

func TestDriver_Run_SourcesProcessedInRegistrationOrder(t *testing.T) {
	scorer := &scriptedScorer{scores: map[string]domain.ScoreMap{
		"bad comment": toxic(0.8),
		"bad message": toxic(0.8),
	}}

	registry, err := source.NewRegistry([]source.Descriptor{commentsDescriptor(), messagesDescriptor()})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	readers := map[string]source.Reader{
		"comments": &stubReader{
			desc:  commentsDescriptor(),
			units: []domain.ContentUnit{commentUnit(1, "bad comment", "")},
		},
		"messages": &stubReader{
			desc: messagesDescriptor(),
			units: []domain.ContentUnit{{
				Source:   "messages",
				Category: domain.CategoryMessage,
				Identity: domain.Identity{domain.IdentityMessageID: domain.StringValue("m1")},
				Text:     "bad message",
			}},
		},
	}

	driver := pipeline.New(registry, readers, scorer, newEngine(t), driverConfig(), nopLogger{})
	flags, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(flags) != 2 {
		t.Fatalf("Run() produced %d flags, want 2", len(flags))
	}
	if flags[0].Category != domain.CategoryComment || flags[1].Category != domain.CategoryMessage {
		t.Errorf("flag order = [%s, %s], want comment then msg", flags[0].Category, flags[1].Category)
	}
}

func TestDriver_Run_FailingSourceDoesNotAbortRun(t *testing.T) {
	scorer := &scriptedScorer{scores: map[string]domain.ScoreMap{
		"bad message": toxic(0.8),
	}}

	registry, err := source.NewRegistry([]source.Descriptor{commentsDescriptor(), messagesDescriptor()})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	readers := map[string]source.Reader{
		"comments": &stubReader{
			desc: commentsDescriptor(),
			err:  errors.New("connection refused"),
		},
		"messages": &stubReader{
			desc: messagesDescriptor(),
			units: []domain.ContentUnit{{
				Source:   "messages",
				Category: domain.CategoryMessage,
				Identity: domain.Identity{domain.IdentityMessageID: domain.StringValue("m1")},
				Text:     "bad message",
			}},
		},
	}

	driver := pipeline.New(registry, readers, scorer, newEngine(t), driverConfig(), nopLogger{})
	flags, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v, want the run to survive a dead source", err)
	}

	if len(flags) != 1 || flags[0].Category != domain.CategoryMessage {
		t.Errorf("flags = %v, want one flag from the surviving source", flags)
	}
}

func TestDriver_Run_CancelledContextAbortsRun(t *testing.T) {
	scorer := &scriptedScorer{}

	registry, err := source.NewRegistry([]source.Descriptor{commentsDescriptor()})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	readers := map[string]source.Reader{
		"comments": &stubReader{
			desc:  commentsDescriptor(),
			units: []domain.ContentUnit{commentUnit(1, "text", "")},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driver := pipeline.New(registry, readers, scorer, newEngine(t), driverConfig(), nopLogger{})
	if _, err := driver.Run(ctx); err == nil {
		t.Error("Run() expected error with a cancelled context")
	}
}

func TestDriver_Run_MissingReaderSkipsSource(t *testing.T) {
	scorer := &scriptedScorer{}

	registry, err := source.NewRegistry([]source.Descriptor{commentsDescriptor()})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}

	driver := pipeline.New(registry, map[string]source.Reader{}, scorer, newEngine(t), driverConfig(), nopLogger{})
	flags, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(flags) != 0 {
		t.Errorf("Run() produced %d flags with no readers, want 0", len(flags))
	}
}
