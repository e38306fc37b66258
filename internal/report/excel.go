package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"call-insights-go/internal/taxonomy"
	"call-insights-go/internal/types"
)

// WriteExcel writes the workbook view of the assessment: a summary sheet plus
// stage, question and transcript detail sheets. Stages and questions follow
// taxonomy order so workbooks stay comparable across calls.
func WriteExcel(path string, a *types.CallAssessment, tax taxonomy.Taxonomy) error {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	f.SetSheetName("Sheet1", summarySheet)
	writeSummary(f, summarySheet, a)

	const stageSheet = "Stages"
	f.NewSheet(stageSheet)
	writeStages(f, stageSheet, a, tax)

	const questionSheet = "Questions"
	f.NewSheet(questionSheet)
	writeQuestions(f, questionSheet, a, tax)

	const transcriptSheet = "Transcript"
	f.NewSheet(transcriptSheet)
	writeTranscript(f, transcriptSheet, a)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, sheet string, a *types.CallAssessment) {
	rows := [][]any{
		{"Run ID", a.RunID},
		{"Generated", a.GeneratedAt.Format(time.RFC3339)},
		{"Call Type", a.CallType},
		{"Overall Score", a.Overall.Score},
		{"Rating", a.Overall.Rating},
	}
	if a.Overall.Grade != "" {
		rows = append(rows, []any{"Grade", a.Overall.Grade})
	}
	rows = append(rows,
		[]any{"Stages Evaluated", a.Overall.StagesEvaluated},
		[]any{"Stages Missing", a.Overall.StagesMissing},
		[]any{"Customer Talk Ratio", a.TalkMetrics.CustomerTalkRatio},
		[]any{"Technician Talk Ratio", a.TalkMetrics.TechnicianTalkRatio},
		[]any{"Silence (s)", a.TalkMetrics.SilenceSeconds},
		[]any{"Interruptions", a.TalkMetrics.InterruptionCount},
	)
	if a.SalesInsights != nil && a.SalesInsights.EffectivenessGrade != "" {
		rows = append(rows, []any{"Sales Effectiveness", a.SalesInsights.EffectivenessGrade})
	}
	if a.Summary != "" {
		rows = append(rows, []any{"Summary", a.Summary})
	}
	if len(a.Degraded) > 0 {
		rows = append(rows, []any{"Degraded Steps", strings.Join(a.Degraded, ", ")})
	}
	for i, r := range rows {
		setRow(f, sheet, i+1, r)
	}
	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "B", 60)
}

func writeStages(f *excelize.File, sheet string, a *types.CallAssessment, tax taxonomy.Taxonomy) {
	setRow(f, sheet, 1, []any{"Stage", "Status", "Utterances", "Start (s)", "End (s)", "Score", "Compliance", "Rating", "Strengths", "Gaps"})
	row := 2
	for _, s := range tax.Stages {
		sum := a.StageSummaries[s.Key]
		an := a.StageAnalyses[s.Key]
		var start, end any
		if sum.StartTime != nil {
			start = *sum.StartTime
		}
		if sum.EndTime != nil {
			end = *sum.EndTime
		}
		setRow(f, sheet, row, []any{
			s.Name, sum.Status, sum.UtteranceCount, start, end,
			an.ComplianceScore, an.OverallCompliance, an.QualityRating,
			strings.Join(an.KeyStrengths, "; "), strings.Join(an.CriticalGaps, "; "),
		})
		row++
	}
	f.SetColWidth(sheet, "A", "A", 24)
	f.SetColWidth(sheet, "I", "J", 50)
}

func writeQuestions(f *excelize.File, sheet string, a *types.CallAssessment, tax taxonomy.Taxonomy) {
	setRow(f, sheet, 1, []any{"Stage", "Question", "Weight", "Answer", "Score", "Evidence", "Explanation"})
	row := 2
	for _, s := range tax.Stages {
		an, ok := a.StageAnalyses[s.Key]
		if !ok {
			continue
		}
		byID := make(map[string]taxonomy.Question, len(s.Rubric))
		for _, q := range s.Rubric {
			byID[q.ID] = q
		}
		for _, qr := range an.Questions {
			q := byID[qr.ID]
			setRow(f, sheet, row, []any{
				s.Name, q.Text, q.Weight, qr.Answer, qr.Score, qr.Evidence, qr.Explanation,
			})
			row++
		}
	}
	f.SetColWidth(sheet, "B", "B", 50)
	f.SetColWidth(sheet, "F", "G", 60)
}

func writeTranscript(f *excelize.File, sheet string, a *types.CallAssessment) {
	setRow(f, sheet, 1, []any{"Index", "Start (s)", "End (s)", "Speaker", "Role", "Primary Stage", "Stage Tags", "Confidence", "Text", "Annotations"})
	for i, u := range a.Utterances {
		notes := make([]string, 0, len(u.Annotations))
		for _, n := range u.Annotations {
			notes = append(notes, fmt.Sprintf("%s: %s", n.Type, n.Title))
		}
		setRow(f, sheet, i+2, []any{
			u.Index, u.Start, u.End, u.Speaker, a.SpeakerRoles.Role(u.Speaker),
			u.PrimaryStage, strings.Join(u.StageTags, ", "), u.Confidence,
			u.Text, strings.Join(notes, "; "),
		})
	}
	f.SetColWidth(sheet, "I", "I", 80)
	f.SetColWidth(sheet, "J", "J", 50)
}

func setRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			continue
		}
		f.SetCellValue(sheet, cell, v)
	}
}
