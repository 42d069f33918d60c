// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// DEBUG STEP TYPE
// =============================================================================

// DebugStage identifies a backend pipeline stage reported over the stream.
type DebugStage string

const (
	StageKeywords       DebugStage = "keywordsAndExpansion"
	StageParallelSearch DebugStage = "parallelSearch"
	StageFusion         DebugStage = "fusion"
	StageRerank         DebugStage = "rerank"
	StageSearchComplete DebugStage = "searchComplete"
	StageGenerating     DebugStage = "generating"
	StageComplete       DebugStage = "complete"
)

// DebugStep is one pipeline telemetry record. The stage tag is always set;
// the remaining fields are stage-specific and optional.
type DebugStep struct {
	Step        DebugStage `json:"step"`
	Model       string     `json:"model,omitempty"`
	DurationMs  int64      `json:"duration_ms,omitempty"`
	ResultCount int        `json:"result_count,omitempty"`
	Detail      string     `json:"detail,omitempty"`
}

// Label returns a short human-readable name for the stage.
func (s DebugStage) Label() string {
	switch s {
	case StageKeywords:
		return "Keywords & expansion"
	case StageParallelSearch:
		return "Parallel search"
	case StageFusion:
		return "Fusion"
	case StageRerank:
		return "Rerank"
	case StageSearchComplete:
		return "Search complete"
	case StageGenerating:
		return "Generating"
	case StageComplete:
		return "Complete"
	default:
		return string(s)
	}
}
