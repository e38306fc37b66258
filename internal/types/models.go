package types

// Utterance is one diarized speaker turn. The transcript loader creates them;
// the labeler and annotation merger return copies with stage fields and
// annotations filled in, never mutating the input slice.
type Utterance struct {
	Index        int          `json:"index"`
	Speaker      string       `json:"speaker"`
	Text         string       `json:"text"`
	Start        float64      `json:"start"`
	End          float64      `json:"end"`
	PrimaryStage string       `json:"primary_stage,omitempty"`
	StageTags    []string     `json:"stage_tags,omitempty"`
	Confidence   float64      `json:"confidence"`
	Annotations  []Annotation `json:"annotations,omitempty"`
}

// Clone returns a deep copy so pipeline steps can build new slices without
// sharing tag/annotation backing arrays with their input.
func (u Utterance) Clone() Utterance {
	out := u
	if u.StageTags != nil {
		out.StageTags = append([]string(nil), u.StageTags...)
	}
	if u.Annotations != nil {
		out.Annotations = append([]Annotation(nil), u.Annotations...)
	}
	return out
}

// HasTag reports whether the utterance carries the given stage tag.
func (u Utterance) HasTag(stageKey string) bool {
	for _, t := range u.StageTags {
		if t == stageKey {
			return true
		}
	}
	return false
}

type Annotation struct {
	UtteranceIndex    int    `json:"utterance_index"`
	Type              string `json:"type"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Severity          string `json:"severity"`
	Recommendation    string `json:"recommendation,omitempty"`
	RelatedQuestionID string `json:"related_question_id,omitempty"`
	Impact            string `json:"impact,omitempty"`
}

const (
	AnnotationSuccess        = "success"
	AnnotationWarning        = "warning"
	AnnotationPartial        = "partial"
	AnnotationInfo           = "info"
	AnnotationOpportunity    = "opportunity"
	AnnotationCustomerSignal = "customer_signal"
)

const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

func ValidAnnotationType(t string) bool {
	switch t {
	case AnnotationSuccess, AnnotationWarning, AnnotationPartial,
		AnnotationInfo, AnnotationOpportunity, AnnotationCustomerSignal:
		return true
	}
	return false
}

func ValidSeverity(s string) bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// SpeakerRoles maps diarization speaker identifiers to semantic roles. It is
// resolved once per transcript and immutable afterwards.
type SpeakerRoles map[string]string

const (
	RoleTechnician = "technician"
	RoleCustomer   = "customer"
	RoleUnknown    = "unknown"
)

// Role returns the mapped role or RoleUnknown for unmapped speakers.
func (r SpeakerRoles) Role(speaker string) string {
	if role, ok := r[speaker]; ok && role != "" {
		return role
	}
	return RoleUnknown
}

const (
	CallTypeRepair      = "repair_call"
	CallTypeMaintenance = "maintenance_visit"
	CallTypeInstall     = "installation"
	CallTypeEmergency   = "emergency_service"
	CallTypeFollowUp    = "follow_up"
	CallTypeWarranty    = "warranty_service"
	CallTypeOther       = "other"
)

// NormalizeCallType coerces anything outside the known call types to "other".
func NormalizeCallType(t string) string {
	switch t {
	case CallTypeRepair, CallTypeMaintenance, CallTypeInstall,
		CallTypeEmergency, CallTypeFollowUp, CallTypeWarranty, CallTypeOther:
		return t
	}
	return CallTypeOther
}
