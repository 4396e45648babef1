package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/PadsterH2012/extractor/internal/address"
	"github.com/PadsterH2012/extractor/internal/types"
	"github.com/PadsterH2012/extractor/internal/vector"
)

// oversizeRetryFraction is how much of the vector size limit a truncated
// record keeps on the single oversize retry.
const oversizeRetryFraction = 0.95

// persistStage writes the artifact to both stores concurrently. When exactly
// one store fails the artifact is marked partial_persistence and the run
// still completes; when both fail, or when only one store is configured and
// it fails, the run fails.
func (o *Orchestrator) persistStage(ctx context.Context, artifact *types.Artifact, addr address.Address, logger *slog.Logger) error {
	type outcome struct {
		store string
		err   error
	}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []outcome
	)
	run := func(store string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fn()
			mu.Lock()
			outcomes = append(outcomes, outcome{store: store, err: err})
			mu.Unlock()
		}()
	}

	if o.Vector != nil {
		run("vector", func() error { return o.persistVector(ctx, artifact, addr) })
	}
	if o.Docs != nil {
		run("document", func() error { return o.persistDocs(ctx, artifact, addr) })
	}
	wg.Wait()

	var failed []outcome
	for _, out := range outcomes {
		if out.err != nil {
			failed = append(failed, out)
			logger.Error("store persistence failed", "store", out.store, "error", out.err)
		}
	}
	switch {
	case len(failed) == 0:
		return nil
	case len(failed) < len(outcomes):
		artifact.PersistNote = "partial_persistence"
		logger.Warn("persisted to one store only", "failed_store", failed[0].store)
		return nil
	default:
		return failed[0].err
	}
}

// persistVector writes one record per section. A store_oversize rejection
// truncates record text and retries once.
func (o *Orchestrator) persistVector(ctx context.Context, artifact *types.Artifact, addr address.Address) error {
	if _, err := o.Vector.EnsureCollection(ctx, addr.Collection, map[string]any{
		"game":    artifact.Verdict.Game,
		"edition": artifact.Verdict.Edition,
		"book":    artifact.Verdict.Book,
		"kind":    string(artifact.Verdict.Kind),
	}); err != nil {
		return err
	}

	records := make([]vector.Record, 0, len(artifact.Sections))
	for _, s := range artifact.Sections {
		records = append(records, sectionRecord(artifact, addr, s))
	}

	err := o.Vector.Upsert(ctx, addr.Collection, records)
	if !types.IsKind(err, types.KindStoreOversize) {
		return err
	}

	maxBytes := float64(vector.MaxDocumentBytes)
	limit := int(maxBytes * oversizeRetryFraction)
	for i := range records {
		if len(records[i].Text) > limit {
			// Back the cut up so it never splits a multi-byte rune.
			cut := limit
			for cut > 0 && !utf8.RuneStart(records[i].Text[cut]) {
				cut--
			}
			records[i].Text = records[i].Text[:cut]
			records[i].Metadata["truncated"] = true
		}
	}
	return o.Vector.Upsert(ctx, addr.Collection, records)
}

func sectionRecord(artifact *types.Artifact, addr address.Address, s types.Section) vector.Record {
	meta := map[string]any{
		"page":                s.Page,
		"ordinal":             s.Ordinal,
		"category":            s.Category,
		"category_confidence": s.CategoryConfidence,
		"game":                artifact.Verdict.Game,
		"edition":             artifact.Verdict.Edition,
		"book":                artifact.Verdict.Book,
		"kind":                string(artifact.Verdict.Kind),
		"source_digest":       artifact.SourceDigest,
		"has_table":           strconv.FormatBool(s.HasTable),
	}
	if addr.Folder != "" {
		meta["folder"] = addr.Folder
	}
	if s.OCRUsed {
		meta["ocr_used"] = true
		meta["ocr_confidence"] = fmt.Sprintf("%.2f", s.OCRConfidence)
	}
	return vector.Record{
		ID:       vector.RecordID(addr.Collection, s.Page, s.Ordinal),
		Text:     s.Text,
		Metadata: meta,
	}
}

func (o *Orchestrator) persistDocs(ctx context.Context, artifact *types.Artifact, addr address.Address) error {
	if err := o.Docs.EnsureIndexes(ctx, addr.Collection); err != nil {
		return err
	}
	return o.Docs.InsertArtifact(ctx, addr.Collection, artifact)
}
