package crew

import (
	"context"
	"fmt"
	"sync"
)

// runPool executes all items concurrently and blocks until every one has
// produced a finding. Concurrency equals len(items) capped at MaxParallel.
// A failed or timed-out item yields an error finding instead of aborting
// the round, and the returned slice carries no ordering guarantee — callers
// index by WorkItem ID, not position.
//
// progressFrom/progressTo bound the progress fraction reported as items
// complete; pass zeros to skip per-item progress.
func (c *Crew) runPool(ctx context.Context, items []WorkItem, objective string, progressFrom, progressTo float64) []Finding {
	if len(items) == 0 {
		return nil
	}

	findings := make([]Finding, 0, len(items))
	var mu sync.Mutex
	var wg sync.WaitGroup
	completed := 0

	sem := make(chan struct{}, c.cfg.MaxParallel)

	for _, item := range items {
		wg.Add(1)
		go func(item WorkItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			itemCtx, cancel := context.WithTimeout(ctx, c.cfg.ItemTimeout)
			defer cancel()

			f, err := c.executor.Execute(itemCtx, item, objective)
			if err != nil {
				c.logger.Error("Research unit failed", "angle", item.Description, "error", err)
				f = Finding{
					ItemID: item.ID,
					Angle:  item.Description,
					Text:   fmt.Sprintf("Error during research: %v", err),
					Err:    true,
				}
			}
			if f.ItemID == "" {
				f.ItemID = item.ID
			}

			mu.Lock()
			findings = append(findings, f)
			completed++
			done, total := completed, len(items)
			mu.Unlock()

			if progressTo > progressFrom {
				c.reportProgress(
					fmt.Sprintf("Completed research angle %d/%d", done, total),
					progressFrom+(progressTo-progressFrom)*float64(done)/float64(total),
				)
			}
		}(item)
	}

	wg.Wait()
	return findings
}
