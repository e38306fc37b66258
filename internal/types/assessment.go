package types

import "time"

// --------------------------------------------
// Stage grouping
// --------------------------------------------

const (
	StagePresent = "present"
	StageAbsent  = "absent"
)

// StageSummary groups the utterance indices tagged with one taxonomy stage.
// Time bounds are nil while the stage is absent.
type StageSummary struct {
	StageKey         string   `json:"stage_key"`
	UtteranceIndices []int    `json:"utterance_indices"`
	UtteranceCount   int      `json:"utterance_count"`
	StartTime        *float64 `json:"start_time"`
	EndTime          *float64 `json:"end_time"`
	Status           string   `json:"status"`
}

// --------------------------------------------
// Compliance evaluation
// --------------------------------------------

const (
	AnswerYes     = "YES"
	AnswerPartial = "PARTIAL"
	AnswerNo      = "NO"
)

const (
	Compliant    = "COMPLIANT"
	PartiallyOK  = "PARTIAL"
	NonCompliant = "NON-COMPLIANT"
)

type QuestionResult struct {
	ID          string `json:"id"`
	Answer      string `json:"answer"`
	Score       int    `json:"score"`
	Evidence    string `json:"evidence"`
	Explanation string `json:"explanation"`
}

// StageAnalysis is the scored result for one stage. When Status is absent the
// score is 0, Questions is empty and QualityRating is "N/A".
type StageAnalysis struct {
	Status            string           `json:"status"`
	Questions         []QuestionResult `json:"questions"`
	ComplianceScore   float64          `json:"compliance_score"`
	OverallCompliance string           `json:"overall_compliance"`
	QualityRating     string           `json:"quality_rating"`
	KeyStrengths      []string         `json:"key_strengths,omitempty"`
	CriticalGaps      []string         `json:"critical_gaps,omitempty"`
	Recommendations   []string         `json:"recommendations,omitempty"`
}

// --------------------------------------------
// Sales insight extraction
// --------------------------------------------

type DimensionGrade struct {
	Name  string `json:"name"`
	Grade string `json:"grade"`
	Notes string `json:"notes,omitempty"`
}

type SalesInsights struct {
	EffectivenessGrade    string           `json:"effectiveness_grade"`
	Dimensions            []DimensionGrade `json:"dimensions"`
	OpportunitiesCaptured []string         `json:"opportunities_captured,omitempty"`
	OpportunitiesMissed   []string         `json:"opportunities_missed,omitempty"`
	BuyingSignals         []string         `json:"buying_signals,omitempty"`
}

// --------------------------------------------
// Local conversation metrics
// --------------------------------------------

type TalkMetrics struct {
	CustomerTalkRatio   float64 `json:"customer_talk_ratio"`
	TechnicianTalkRatio float64 `json:"technician_talk_ratio"`
	SilenceSeconds      float64 `json:"silence_seconds"`
	InterruptionCount   int     `json:"interruption_count"`
}

// --------------------------------------------
// Call-level aggregate
// --------------------------------------------

// OverallAssessment carries the call-level compliance score and rating. Grade
// is the A-F letter and is only set when sales dimension grades were folded in.
type OverallAssessment struct {
	Score           float64 `json:"score"`
	Rating          string  `json:"rating"`
	Grade           string  `json:"grade,omitempty"`
	StagesEvaluated int     `json:"stages_evaluated"`
	StagesMissing   int     `json:"stages_missing"`
}

// CallAssessment is the final record handed to reporting, keyed by utterance
// index and stage key. Degraded lists the pipeline steps that fell back to
// default output after retry exhaustion or malformed responses.
type CallAssessment struct {
	RunID          string                   `json:"run_id"`
	GeneratedAt    time.Time                `json:"generated_at"`
	CallType       string                   `json:"call_type"`
	SpeakerRoles   SpeakerRoles             `json:"speaker_roles"`
	Summary        string                   `json:"summary,omitempty"`
	Utterances     []Utterance              `json:"utterances"`
	StageSummaries map[string]StageSummary  `json:"stage_summaries"`
	StageAnalyses  map[string]StageAnalysis `json:"stage_analyses"`
	Overall        OverallAssessment        `json:"overall"`
	SalesInsights  *SalesInsights           `json:"sales_insights,omitempty"`
	TalkMetrics    TalkMetrics              `json:"talk_metrics"`
	DurationMs     int64                    `json:"duration_ms"`
	Degraded       []string                 `json:"degraded,omitempty"`
}
