package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/kwarchive/internal/database"
	"github.com/nao1215/kwarchive/internal/document"
	"github.com/nao1215/kwarchive/internal/fetch"
	"github.com/nao1215/kwarchive/internal/log"
	"github.com/nao1215/kwarchive/internal/model"
	"github.com/nao1215/kwarchive/internal/retry"
)

// processItem fetches, extracts and archives the seq-th of total entries.
// Image and attachment failures degrade the document, never the item.
func (r *run) processItem(seq, total int, e model.ResultEntry) model.ItemOutcome {
	started := r.now()
	out := model.ItemOutcome{Entry: e}
	r.report("processing item", log.LevelInfo, "index", seq, "total", total, "url", e.URL)

	policy := r.itemPolicy
	policy.Sleep = r.stopSleep
	policy.Observer = r.observer("item", e.URL)
	resp, attempts, err := retry.Execute(r.ctx, policy, func(ctx context.Context) (*fetch.Response, error) {
		return r.source.Fetcher.Get(ctx, e.URL, nil)
	})
	if err != nil {
		return r.itemFailed(seq, out, started, attempts, fmt.Errorf("fetch item: %w", err))
	}

	pageURL := resp.URL
	if pageURL == "" {
		pageURL = e.URL
	}
	ext, err := r.source.Extractor.Extract(resp.Text(), pageURL)
	if err != nil {
		return r.itemFailed(seq, out, started, attempts, fmt.Errorf("extract item: %w", err))
	}
	out.Extraction = ext
	if ext.Degraded() {
		out.Kind = model.KindExtractionMiss
		out.Err = fmt.Errorf("%w: %s", model.ErrExtractionMiss, e.URL)
		out.ErrorMessage = out.Err.Error()
		r.report("content region not found, archiving what was extracted", log.LevelWarning,
			"url", e.URL,
			"region", ext.RegionSelector,
			"empty", ext.IsEmpty(),
		)
	}

	assets := r.fetchImages(ext, e.URL, pageURL, &out)

	in := document.Input{Entry: e, Extraction: ext, Assets: assets}
	written, err := r.assembler.Assemble(in)
	if err != nil {
		return r.itemFailed(seq, out, started, attempts, fmt.Errorf("%w: write document: %w", model.ErrFatalSetup, err))
	}
	out.DocumentPath = written.Path
	out.Success = true

	r.saveAttachments(ext, in.Title(), e.URL, pageURL, &out)

	out.Elapsed = r.now().Sub(started)
	r.recordItem(seq, out, written)
	r.report("document written", log.LevelSuccess,
		"index", seq,
		"path", written.Path,
		"images", out.Assets.Succeeded,
		"images_attempted", out.Assets.Attempted,
		"attachments", len(out.AttachmentPaths),
	)
	return out
}

// fetchImages downloads every distinct image of ext. Images are paced; a
// hard cancellation leaves the remaining images unfetched (placeholders).
func (r *run) fetchImages(ext *model.ExtractionResult, itemURL, pageURL string, out *model.ItemOutcome) map[string]model.AssetFetchOutcome {
	images := ext.Images()
	assets := make(map[string]model.AssetFetchOutcome, len(images))
	for _, img := range images {
		if _, seen := assets[img.Src]; seen {
			continue
		}
		if err := r.sleep(r.ctx, r.jitter(r.imageMinDelay, r.imageMaxDelay)); err != nil {
			break
		}
		o := r.resolver.Observed(r.observer("image", img.Src)).Fetch(r.ctx, img.Src, pageURL)
		assets[img.Src] = o
		out.Assets.Attempted++
		if o.OK() {
			out.Assets.Succeeded++
		} else {
			r.report("image failed, using placeholder", log.LevelWarning,
				"url", o.SourceURL,
				"attempts", o.Attempts,
				"kind", o.Kind.String(),
				"error", o.Err,
			)
		}
		r.recordAsset(itemURL, o)
	}
	return assets
}

func (r *run) saveAttachments(ext *model.ExtractionResult, title, itemURL, pageURL string, out *model.ItemOutcome) {
	for i, att := range ext.Attachments {
		if r.ctx.Err() != nil {
			return
		}
		o := r.resolver.Observed(r.observer("attachment", att.URL)).Fetch(r.ctx, att.URL, pageURL)
		r.recordAsset(itemURL, o)
		if !o.OK() {
			r.report("attachment failed", log.LevelWarning,
				"url", o.SourceURL,
				"attempts", o.Attempts,
				"kind", o.Kind.String(),
				"error", o.Err,
			)
			continue
		}
		w, err := r.assembler.SaveAttachment(att, title, i+1, o.Bytes)
		if err != nil {
			r.report("attachment not saved", log.LevelWarning, "url", o.SourceURL, "error", err)
			continue
		}
		out.AttachmentPaths = append(out.AttachmentPaths, w.Path)
		r.report("attachment saved", log.LevelInfo, "path", w.Path)
	}
}

func (r *run) itemFailed(seq int, out model.ItemOutcome, started time.Time, attempts int, err error) model.ItemOutcome {
	out.Success = false
	out.Err = err
	out.Kind = model.KindOf(err)
	out.ErrorMessage = err.Error()
	out.Elapsed = r.now().Sub(started)
	r.recordItem(seq, out, document.Written{})

	level := log.LevelError
	if out.Kind == model.KindCancelled {
		level = log.LevelWarning
	}
	r.report("item failed", level,
		"index", seq,
		"url", out.Entry.URL,
		"attempts", attempts,
		"kind", out.Kind.String(),
		"error", err,
	)
	return out
}

func (r *run) recordItem(seq int, out model.ItemOutcome, w document.Written) {
	if r.ledger == nil {
		return
	}
	rec := database.NewItemRecord(seq, out, w.Size, w.Digest)
	if err := r.ledger.RecordItem(r.writeCtx(), r.summary.RunID, rec); err != nil {
		r.report("ledger write failed", log.LevelWarning, "error", err)
	}
}

func (r *run) recordAsset(itemURL string, o model.AssetFetchOutcome) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.RecordAsset(r.writeCtx(), r.summary.RunID, database.NewAssetRecord(itemURL, o)); err != nil {
		r.report("ledger write failed", log.LevelWarning, "error", err)
	}
}
