// Package acceptance runs end-to-end features against the research
// pipeline wired with the in-memory corpus index and a scripted
// language model. No external infrastructure is required.
package acceptance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/finsight-core/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/finsight-core/internal/config"
	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driving"
	"github.com/custodia-labs/finsight-core/internal/core/services"
	"github.com/custodia-labs/finsight-core/internal/runtime"
)

type answerWorld struct {
	index    *memory.Index
	services *runtime.Services
	research driving.ResearchService

	position int
	answer   *domain.Answer
	err      error
}

func newAnswerWorld() (*answerWorld, error) {
	registry, err := config.LoadCompanyRegistry("")
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	taxonomy, err := config.LoadTaxonomy("")
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	w := &answerWorld{
		index:    memory.NewIndex(),
		services: runtime.NewServices(domain.NewRuntimeConfig("postgres", "memory")),
	}
	w.research = services.NewResearchService(services.ResearchServiceConfig{
		Index:    w.index,
		Registry: registry,
		Taxonomy: taxonomy,
		Services: w.services,
		MaxYear:  2023,
	})
	return w, nil
}

func (w *answerWorld) corpusContainsChunk(year int, kind, ticker, text string) error {
	section := domain.SectionBusiness
	if kind == "risk factors" {
		section = domain.SectionRiskFactors
	}

	w.position++
	chunk := &domain.Chunk{
		ID:         domain.ChunkID(ticker, domain.FilingType10K, year, w.position),
		FilingID:   "filing-" + ticker + "-" + strconv.Itoa(year),
		Ticker:     ticker,
		Company:    ticker,
		FilingType: domain.FilingType10K,
		Section:    section,
		FiscalYear: year,
		FilingDate: time.Date(year, 10, 30, 0, 0, 0, 0, time.UTC),
		Position:   w.position,
		Text:       text,
	}
	return w.index.Index(context.Background(), []*domain.Chunk{chunk})
}

func (w *answerWorld) languageModelIsAvailable() error {
	w.services.SetLLMService(mocks.NewMockLLMService())
	return nil
}

func (w *answerWorld) languageModelIsUnavailable() error {
	w.services.SetLLMService(nil)
	return nil
}

func (w *answerWorld) iAsk(question string) error {
	w.answer, w.err = w.research.Answer(context.Background(), driving.AnswerRequest{Query: question})
	return nil
}

func (w *answerWorld) iReceiveAnAnswer() error {
	if w.err != nil {
		return fmt.Errorf("expected an answer, got error: %w", w.err)
	}
	if w.answer == nil || w.answer.Text == "" {
		return errors.New("expected non-empty answer text")
	}
	return nil
}

func (w *answerWorld) answerCites(ticker string) error {
	if w.answer == nil {
		return errors.New("no answer to inspect")
	}
	for _, c := range w.answer.Citations {
		if c.Ticker == ticker {
			return nil
		}
	}
	return fmt.Errorf("no citation for %s in %d citations", ticker, len(w.answer.Citations))
}

func (w *answerWorld) rejectedAsAmbiguous() error {
	var ambiguous *domain.AmbiguousQueryError
	if !errors.As(w.err, &ambiguous) {
		return fmt.Errorf("expected ambiguous query error, got: %v", w.err)
	}
	return nil
}

func (w *answerWorld) noRelevantContent() error {
	var noContent *domain.NoRelevantContentError
	if !errors.As(w.err, &noContent) {
		return fmt.Errorf("expected no relevant content error, got: %v", w.err)
	}
	return nil
}

func (w *answerWorld) degradedToCitationsOnly() error {
	var unavailable *domain.SynthesisUnavailableError
	if !errors.As(w.err, &unavailable) {
		return fmt.Errorf("expected synthesis unavailable error, got: %v", w.err)
	}
	if len(unavailable.Citations) == 0 {
		return errors.New("degraded result carries no citations")
	}
	return nil
}

func (w *answerWorld) citationsInclude(ticker string) error {
	var unavailable *domain.SynthesisUnavailableError
	if !errors.As(w.err, &unavailable) {
		return fmt.Errorf("expected synthesis unavailable error, got: %v", w.err)
	}
	for _, c := range unavailable.Citations {
		if c.Ticker == ticker {
			return nil
		}
	}
	return fmt.Errorf("no citation for %s", ticker)
}

func initializeScenario(sc *godog.ScenarioContext) {
	var w *answerWorld

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		var err error
		w, err = newAnswerWorld()
		return ctx, err
	})

	sc.Step(`^the corpus contains a (\d{4}) 10-K (risk factors|business) chunk for "([^"]*)" saying "([^"]*)"$`,
		func(year int, kind, ticker, text string) error {
			return w.corpusContainsChunk(year, kind, ticker, text)
		})
	sc.Step(`^the language model is available$`, func() error { return w.languageModelIsAvailable() })
	sc.Step(`^the language model is unavailable$`, func() error { return w.languageModelIsUnavailable() })
	sc.Step(`^I ask "([^"]*)"$`, func(q string) error { return w.iAsk(q) })
	sc.Step(`^I receive an answer$`, func() error { return w.iReceiveAnAnswer() })
	sc.Step(`^the answer cites "([^"]*)"$`, func(t string) error { return w.answerCites(t) })
	sc.Step(`^the question is rejected as ambiguous$`, func() error { return w.rejectedAsAmbiguous() })
	sc.Step(`^no relevant content is found$`, func() error { return w.noRelevantContent() })
	sc.Step(`^the answer is degraded to citations only$`, func() error { return w.degradedToCitationsOnly() })
	sc.Step(`^the citations include "([^"]*)"$`, func(t string) error { return w.citationsInclude(t) })
}

func TestAnswerFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "progress",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("acceptance feature failures")
	}
}
