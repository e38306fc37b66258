package types

import "testing"

func TestUtteranceClone(t *testing.T) {
	orig := Utterance{
		Index:      3,
		Speaker:    "spk_0",
		Text:       "Flame sensor looks corroded.",
		StageTags:  []string{"problem_diagnosis"},
		Confidence: 0.9,
		Annotations: []Annotation{
			{UtteranceIndex: 3, Type: AnnotationInfo, Title: "Root cause named"},
		},
	}

	c := orig.Clone()
	c.StageTags[0] = "closing"
	c.Annotations[0].Title = "changed"
	c.StageTags = append(c.StageTags, "introduction")

	if orig.StageTags[0] != "problem_diagnosis" || len(orig.StageTags) != 1 {
		t.Errorf("clone shares tag backing array: %v", orig.StageTags)
	}
	if orig.Annotations[0].Title != "Root cause named" {
		t.Errorf("clone shares annotation backing array: %v", orig.Annotations)
	}
}

func TestUtteranceCloneNilSlices(t *testing.T) {
	c := Utterance{Index: 1, Text: "hi"}.Clone()
	if c.StageTags != nil || c.Annotations != nil {
		t.Errorf("clone materialized nil slices: %+v", c)
	}
}

func TestHasTag(t *testing.T) {
	u := Utterance{StageTags: []string{"introduction", "closing"}}
	if !u.HasTag("closing") {
		t.Error("existing tag not found")
	}
	if u.HasTag("upsell_attempts") {
		t.Error("missing tag reported present")
	}
	if (Utterance{}).HasTag("introduction") {
		t.Error("untagged utterance reported a tag")
	}
}

func TestSpeakerRolesRole(t *testing.T) {
	roles := SpeakerRoles{"spk_0": RoleTechnician, "spk_1": RoleCustomer, "spk_2": ""}
	tests := []struct {
		speaker, want string
	}{
		{"spk_0", RoleTechnician},
		{"spk_1", RoleCustomer},
		{"spk_2", RoleUnknown}, // mapped to empty counts as unmapped
		{"spk_9", RoleUnknown},
	}
	for _, tt := range tests {
		if got := roles.Role(tt.speaker); got != tt.want {
			t.Errorf("Role(%q) = %q, want %q", tt.speaker, got, tt.want)
		}
	}

	var nilRoles SpeakerRoles
	if got := nilRoles.Role("spk_0"); got != RoleUnknown {
		t.Errorf("nil map Role = %q", got)
	}
}

func TestNormalizeCallType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{CallTypeRepair, CallTypeRepair},
		{CallTypeMaintenance, CallTypeMaintenance},
		{CallTypeOther, CallTypeOther},
		{"", CallTypeOther},
		{"birthday_party", CallTypeOther},
		{"REPAIR_CALL", CallTypeOther}, // no case folding on the wire value
	}
	for _, tt := range tests {
		if got := NormalizeCallType(tt.in); got != tt.want {
			t.Errorf("NormalizeCallType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidAnnotationType(t *testing.T) {
	for _, ok := range []string{AnnotationSuccess, AnnotationWarning, AnnotationPartial, AnnotationInfo, AnnotationOpportunity, AnnotationCustomerSignal} {
		if !ValidAnnotationType(ok) {
			t.Errorf("%q rejected", ok)
		}
	}
	for _, bad := range []string{"", "celebration", "SUCCESS"} {
		if ValidAnnotationType(bad) {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestValidSeverity(t *testing.T) {
	for _, ok := range []string{SeverityHigh, SeverityMedium, SeverityLow} {
		if !ValidSeverity(ok) {
			t.Errorf("%q rejected", ok)
		}
	}
	for _, bad := range []string{"", "urgent", "HIGH"} {
		if ValidSeverity(bad) {
			t.Errorf("%q accepted", bad)
		}
	}
}
