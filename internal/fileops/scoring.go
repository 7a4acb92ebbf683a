package fileops

import (
	"path/filepath"
	"sort"
	"time"
)

// pickBest resolves ambiguity when several detectors matched one group:
// higher confidence wins, then the more specific operation type, then the
// candidate explaining more of the group's events.
func pickBest(candidates []FileOperation) (FileOperation, bool) {
	if len(candidates) == 0 {
		return FileOperation{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.Confidence > best.Confidence:
			best = c
		case c.Confidence == best.Confidence && c.Type.specificity() > best.Type.specificity():
			best = c
		case c.Confidence == best.Confidence && c.Type.specificity() == best.Type.specificity() &&
			c.EventCount > best.EventCount:
			best = c
		}
	}
	return best, true
}

// batchConfidence is the score assigned to merged formatter-style sweeps.
// Individually the members were only generic creates and modifies, but the
// cluster shape itself is strong evidence.
const batchConfidence = 0.85

// mergeBatches folds temporally clustered generic operations on sibling
// paths into single batch updates. Only plain creates and modifies are
// candidates; anything that matched a specific single-file pattern keeps
// its own classification. minSize is the smallest cluster worth merging;
// a non-positive minSize disables merging.
func mergeBatches(ops []FileOperation, window time.Duration, minSize int) []FileOperation {
	if minSize <= 0 || len(ops) < minSize {
		return ops
	}

	// Partition generic ops by parent directory, preserving order.
	byDir := make(map[string][]int)
	for i, op := range ops {
		if op.Type != OpCreate && op.Type != OpModify {
			continue
		}
		dir := filepath.Dir(op.PrimaryPath)
		byDir[dir] = append(byDir[dir], i)
	}

	merged := make(map[int]bool)
	var batches []FileOperation
	for _, idxs := range byDir {
		if len(idxs) < minSize {
			continue
		}
		// Walk in time order and cut clusters at window-sized gaps.
		sort.Slice(idxs, func(a, b int) bool {
			return ops[idxs[a]].StartTime.Before(ops[idxs[b]].StartTime)
		})
		cluster := []int{idxs[0]}
		flush := func() {
			if len(cluster) >= minSize {
				batches = append(batches, buildBatch(ops, cluster))
				for _, i := range cluster {
					merged[i] = true
				}
			}
		}
		for _, i := range idxs[1:] {
			prev := ops[cluster[len(cluster)-1]]
			if ops[i].StartTime.Sub(prev.EndTime) > window {
				flush()
				cluster = cluster[:0]
			}
			cluster = append(cluster, i)
		}
		flush()
	}

	if len(batches) == 0 {
		return ops
	}

	out := make([]FileOperation, 0, len(ops))
	for i, op := range ops {
		if !merged[i] {
			out = append(out, op)
		}
	}
	out = append(out, batches...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// buildBatch collapses a cluster of generic operations into one batch
// update whose primary path is the first-touched file.
func buildBatch(ops []FileOperation, cluster []int) FileOperation {
	first := ops[cluster[0]]
	batch := FileOperation{
		Type:        OpBatchUpdate,
		PrimaryPath: first.PrimaryPath,
		Confidence:  batchConfidence,
		StartTime:   first.StartTime,
		EndTime:     first.EndTime,
	}
	seen := make(map[string]bool)
	for _, i := range cluster {
		op := ops[i]
		batch.EventCount += op.EventCount
		if op.EndTime.After(batch.EndTime) {
			batch.EndTime = op.EndTime
		}
		if op.StartTime.Before(batch.StartTime) {
			batch.StartTime = op.StartTime
		}
		for _, p := range op.FilesAffected {
			if !seen[p] {
				seen[p] = true
				batch.FilesAffected = append(batch.FilesAffected, p)
			}
		}
	}
	return batch
}
