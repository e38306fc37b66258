package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"call-insights-go/internal/taxonomy"
	"call-insights-go/internal/types"
)

func sampleAssessment() *types.CallAssessment {
	start, end := 0.0, 18.0
	return &types.CallAssessment{
		RunID:        "run-123",
		GeneratedAt:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		CallType:     types.CallTypeRepair,
		SpeakerRoles: types.SpeakerRoles{"spk_0": types.RoleTechnician, "spk_1": types.RoleCustomer},
		Summary:      "Technician cleaned the flame sensor and offered the maintenance plan.",
		Utterances: []types.Utterance{
			{Index: 0, Speaker: "spk_1", Text: "Hi, thanks for coming.", Start: 0, End: 8, Confidence: 0.9,
				PrimaryStage: "introduction", StageTags: []string{"introduction"}},
			{Index: 1, Speaker: "spk_0", Text: "I'm Mike from Comfort Air.", Start: 10, End: 18, Confidence: 0.9,
				PrimaryStage: "introduction", StageTags: []string{"introduction"},
				Annotations: []types.Annotation{{UtteranceIndex: 1, Type: types.AnnotationSuccess, Title: "Named self and company", Severity: types.SeverityLow}}},
		},
		StageSummaries: map[string]types.StageSummary{
			"introduction": {StageKey: "introduction", UtteranceIndices: []int{0, 1}, UtteranceCount: 2,
				StartTime: &start, EndTime: &end, Status: types.StagePresent},
			"closing": {StageKey: "closing", UtteranceIndices: []int{}, Status: types.StageAbsent},
		},
		StageAnalyses: map[string]types.StageAnalysis{
			"introduction": {
				Status: types.StagePresent,
				Questions: []types.QuestionResult{
					{ID: "intro_greeting", Answer: types.AnswerYes, Score: 90, Evidence: "Hi, thanks for coming."},
				},
				ComplianceScore:   90,
				OverallCompliance: types.Compliant,
				QualityRating:     "Excellent",
				KeyStrengths:      []string{"Did the technician greet the customer professionally?"},
			},
			"closing": {
				Status: types.StageAbsent, Questions: []types.QuestionResult{},
				OverallCompliance: types.NonCompliant, QualityRating: "N/A",
				CriticalGaps: []string{"Closing & Thank You stage missing entirely"},
			},
		},
		Overall:       types.OverallAssessment{Score: 90, Rating: "Excellent", Grade: "A", StagesEvaluated: 1, StagesMissing: 1},
		SalesInsights: &types.SalesInsights{EffectivenessGrade: "A", Dimensions: []types.DimensionGrade{{Name: "rapport", Grade: "A"}}},
		TalkMetrics:   types.TalkMetrics{CustomerTalkRatio: 0.5, TechnicianTalkRatio: 0.5, SilenceSeconds: 2, InterruptionCount: 0},
		DurationMs:    1200,
		Degraded:      []string{"sales_insights"},
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	want := sampleAssessment()
	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got types.CallAssessment
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.RunID != want.RunID || !got.GeneratedAt.Equal(want.GeneratedAt) || got.CallType != want.CallType {
		t.Errorf("identity fields = %q %v %q", got.RunID, got.GeneratedAt, got.CallType)
	}
	if got.Overall != want.Overall {
		t.Errorf("overall = %+v, want %+v", got.Overall, want.Overall)
	}
	if len(got.Utterances) != 2 || got.Utterances[1].Annotations[0].Title != "Named self and company" {
		t.Errorf("utterances = %+v", got.Utterances)
	}
	intro := got.StageSummaries["introduction"]
	if intro.Status != types.StagePresent || intro.StartTime == nil || *intro.StartTime != 0 || *intro.EndTime != 18 {
		t.Errorf("introduction summary = %+v", intro)
	}
	if got.StageSummaries["closing"].StartTime != nil {
		t.Error("absent stage grew a start time through the encoder")
	}
	if got.SalesInsights == nil || got.SalesInsights.EffectivenessGrade != "A" {
		t.Errorf("sales insights = %+v", got.SalesInsights)
	}
	if len(got.Degraded) != 1 || got.Degraded[0] != "sales_insights" {
		t.Errorf("degraded = %v", got.Degraded)
	}
}

func TestWriteJSONBadPath(t *testing.T) {
	err := WriteJSON(filepath.Join(t.TempDir(), "missing", "out.json"), sampleAssessment())
	if err == nil {
		t.Fatal("write into a missing directory succeeded")
	}
}

func TestWriteExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := WriteExcel(path, sampleAssessment(), taxonomy.Default()); err != nil {
		t.Fatalf("WriteExcel: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"Summary", "Stages", "Questions", "Transcript"}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i, name := range want {
		if sheets[i] != name {
			t.Errorf("sheet %d = %q, want %q", i, sheets[i], name)
		}
	}

	cell := func(sheet, ref string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, ref)
		if err != nil {
			t.Fatalf("GetCellValue(%s!%s): %v", sheet, ref, err)
		}
		return v
	}

	if cell("Summary", "A1") != "Run ID" || cell("Summary", "B1") != "run-123" {
		t.Errorf("summary header row = %q %q", cell("Summary", "A1"), cell("Summary", "B1"))
	}
	if cell("Summary", "B3") != "repair_call" {
		t.Errorf("call type cell = %q", cell("Summary", "B3"))
	}
	if cell("Summary", "A6") != "Grade" || cell("Summary", "B6") != "A" {
		t.Errorf("grade row = %q %q", cell("Summary", "A6"), cell("Summary", "B6"))
	}

	// stage rows follow taxonomy order: introduction first, closing last
	if cell("Stages", "A2") != "Introduction & Greeting" || cell("Stages", "B2") != "present" {
		t.Errorf("first stage row = %q %q", cell("Stages", "A2"), cell("Stages", "B2"))
	}
	if cell("Stages", "A7") != "Closing & Thank You" || cell("Stages", "B7") != "absent" {
		t.Errorf("last stage row = %q %q", cell("Stages", "A7"), cell("Stages", "B7"))
	}

	if cell("Questions", "A2") != "Introduction & Greeting" || cell("Questions", "D2") != "YES" {
		t.Errorf("question row = %q %q", cell("Questions", "A2"), cell("Questions", "D2"))
	}

	if cell("Transcript", "E3") != "technician" {
		t.Errorf("transcript role cell = %q", cell("Transcript", "E3"))
	}
	if cell("Transcript", "J3") != "success: Named self and company" {
		t.Errorf("transcript annotation cell = %q", cell("Transcript", "J3"))
	}
}
