package pipeline

// Stage identifies one step of the merge pipeline. The numeric values align
// with the progress tracker's stage indexes and weights.
type Stage int

const (
	StageCacheCheck Stage = iota
	StageBioremppMerge
	StagePathwayMerge
	StageHadegMerge
	StageToxcsmMerge
	StageResultPreparation
	StageCacheStore
	StageDone
)

// String returns the stage's wire name, used in errors, logs and metrics.
func (s Stage) String() string {
	switch s {
	case StageCacheCheck:
		return "cache_check"
	case StageBioremppMerge:
		return "biorempp_merge"
	case StagePathwayMerge:
		return "pathway_merge"
	case StageHadegMerge:
		return "hadeg_merge"
	case StageToxcsmMerge:
		return "toxcsm_merge"
	case StageResultPreparation:
		return "result_preparation"
	case StageCacheStore:
		return "cache_store"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// message returns the human-readable progress message shown while the stage
// runs.
func (s Stage) message() string {
	switch s {
	case StageCacheCheck:
		return "checking result cache"
	case StageBioremppMerge:
		return "merging samples against biorempp"
	case StagePathwayMerge:
		return "merging kegg degradation pathways"
	case StageHadegMerge:
		return "merging hadeg gene annotations"
	case StageToxcsmMerge:
		return "merging toxcsm toxicity predictions"
	case StageResultPreparation:
		return "preparing merge result"
	case StageCacheStore:
		return "storing result in cache"
	case StageDone:
		return "completed"
	default:
		return ""
	}
}
