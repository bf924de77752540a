package plan

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/zisk-core/provercore/rom"
)

// RegularPlanner splits the per-chunk event counts for one air into
// rows(air)-sized segments, emitting one Plan per segment. A segment only
// spans more than one chunk when the previous chunk left an unfinished
// remainder; the resulting checkpoint is a cursor naming every chunk the
// segment touches, with Skip applying to the first of them.
type RegularPlanner struct {
	AirgroupID uint32
	AirID      uint32
	Rows       Rows
}

// NewRegularPlanner builds a planner for one regular-instance air.
func NewRegularPlanner(airgroupID, airID uint32, rows Rows) *RegularPlanner {
	return &RegularPlanner{AirgroupID: airgroupID, AirID: airID, Rows: rows}
}

// Plan implements Planner. counts must be supplied in ascending ChunkID order
// (the planner sorts defensively, but ties in ChunkID ordering are the
// planner's only tie-break lever — ties never occur since ChunkID is unique
// per chunk).
func (p *RegularPlanner) Plan(counts []ChunkCount) []Plan {
	sorted := make([]ChunkCount, len(counts))
	copy(sorted, counts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ChunkID < sorted[j].ChunkID })

	rows := int(p.Rows)
	if rows <= 0 {
		rows = 1
	}

	var plans []Plan
	var segChunks []rom.ChunkID
	segSkip := 0
	remaining := rows
	segStarted := false
	segmentIndex := uint32(0)

	flush := func() {
		if !segStarted || len(segChunks) == 0 {
			return
		}
		id := segmentIndex
		segmentIndex++
		chunks := make([]rom.ChunkID, len(segChunks))
		copy(chunks, segChunks)
		plans = append(plans, Plan{
			AirgroupID:   p.AirgroupID,
			AirID:        p.AirID,
			SegmentID:    &id,
			InstanceType: Instance,
			Checkpoint:   Checkpoint{Kind: CheckpointCursor, Chunks: chunks, Skip: segSkip},
		})
		segChunks = nil
		segStarted = false
		remaining = rows
	}

	for _, cc := range sorted {
		rc, ok := cc.Metric.(*RegularCounter)
		if !ok {
			continue
		}
		n := int(rc.InstCount())
		pos := 0
		for pos < n {
			if !segStarted {
				segChunks = []rom.ChunkID{cc.ChunkID}
				segSkip = pos
				segStarted = true
			} else if segChunks[len(segChunks)-1] != cc.ChunkID {
				segChunks = append(segChunks, cc.ChunkID)
			}

			avail := n - pos
			take := remaining
			if take > avail {
				take = avail
			}
			pos += take
			remaining -= take

			if remaining == 0 {
				flush()
			}
		}
	}
	// final short segment (release-mode behavior per the design: an
	// incomplete trailing segment is not a bug, it is simply shorter than
	// rows(air)).
	flush()

	if segmentIndex > 0 {
		logrus.WithFields(logrus.Fields{
			"airgroup_id": p.AirgroupID,
			"air_id":      p.AirID,
			"segments":    segmentIndex,
		}).Debug("regular planner segment count")
	}

	return plans
}

// TablePlanner always emits exactly one Plan per table air, with a checkpoint
// that lists every chunk observed across the counting pass (ascending order),
// since a table instance's witness depends on side effects reported by every
// regular instance across the whole trace.
type TablePlanner struct {
	AirgroupID uint32
	AirID      uint32
}

// NewTablePlanner builds a planner for one table air.
func NewTablePlanner(airgroupID, airID uint32) *TablePlanner {
	return &TablePlanner{AirgroupID: airgroupID, AirID: airID}
}

func (p *TablePlanner) Plan(counts []ChunkCount) []Plan {
	ids := make([]rom.ChunkID, 0, len(counts))
	seen := make(map[rom.ChunkID]bool, len(counts))
	for _, cc := range counts {
		if !seen[cc.ChunkID] {
			seen[cc.ChunkID] = true
			ids = append(ids, cc.ChunkID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return []Plan{{
		AirgroupID:   p.AirgroupID,
		AirID:        p.AirID,
		InstanceType: Table,
		Checkpoint:   NewCheckpointMultiple(ids),
	}}
}
