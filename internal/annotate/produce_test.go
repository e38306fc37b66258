package annotate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"call-insights-go/internal/llm"
	"call-insights-go/internal/taxonomy"
	"call-insights-go/internal/types"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return logrus.NewEntry(l)
}

func annUtterances() []types.Utterance {
	texts := []string{"Hi there.", "I'm Mike from Comfort Air.", "All set, thanks for your time."}
	utts := make([]types.Utterance, len(texts))
	for i, txt := range texts {
		utts[i] = types.Utterance{Index: i, Speaker: "spk_0", Text: txt, Start: float64(i), End: float64(i) + 0.5}
	}
	return utts
}

func absentSummaries(tax taxonomy.Taxonomy) map[string]types.StageSummary {
	out := map[string]types.StageSummary{}
	for _, key := range tax.Keys() {
		out[key] = types.StageSummary{StageKey: key, Status: types.StageAbsent}
	}
	return out
}

func TestProposeAnnotationsVetsRecords(t *testing.T) {
	response := `{"annotations":[
		{"utterance_index":0,"type":"success","title":"Warm greeting","description":"opened well","severity":"high","recommendation":"","related_question_id":"intro_greeting","impact":""},
		{"utterance_index":1,"type":"celebration","title":"Nice","description":"","severity":"low","recommendation":"","related_question_id":"","impact":""},
		{"utterance_index":1,"type":"warning","title":"","description":"untitled","severity":"low","recommendation":"","related_question_id":"","impact":""},
		{"utterance_index":1,"type":"partial","title":"Company named late","description":"","severity":"urgent","recommendation":"","related_question_id":"","impact":""},
		{"utterance_index":1,"type":"info","title":"Cross reference","description":"","severity":"medium","recommendation":"","related_question_id":"diag_relevance","impact":""}
	]}`
	client := llm.NewMock(func(req llm.Request) (string, error) { return response, nil })
	tax := taxonomy.Default()
	p := New(client, tax, testLog())

	summaries := absentSummaries(tax)
	summaries["introduction"] = types.StageSummary{
		StageKey: "introduction", Status: types.StagePresent, UtteranceIndices: []int{0, 1}, UtteranceCount: 2,
	}

	anns, err := p.ProposeAnnotations(context.Background(), annUtterances(), summaries)
	if err != nil {
		t.Fatalf("ProposeAnnotations: %v", err)
	}
	if client.Calls() != 1 {
		t.Fatalf("calls = %d, want one per present stage", client.Calls())
	}
	if len(anns) != 3 {
		t.Fatalf("kept %d annotations, want 3 (unknown type and untitled dropped): %+v", len(anns), anns)
	}
	if anns[0].RelatedQuestionID != "intro_greeting" {
		t.Errorf("valid question reference cleared: %+v", anns[0])
	}
	if anns[1].Severity != types.SeverityLow {
		t.Errorf("invalid severity not coerced to low: %+v", anns[1])
	}
	if anns[2].RelatedQuestionID != "" {
		t.Errorf("question from another stage's rubric kept: %+v", anns[2])
	}
}

func TestProposeAnnotationsStageFailureContinues(t *testing.T) {
	client := llm.NewMock(func(req llm.Request) (string, error) {
		if strings.Contains(req.User, "STAGE: Introduction & Greeting") {
			return "", errors.New("timeout")
		}
		return `{"annotations":[{"utterance_index":2,"type":"success","title":"Courteous close","description":"","severity":"low","recommendation":"","related_question_id":"","impact":""}]}`, nil
	})
	tax := taxonomy.Default()
	p := New(client, tax, testLog())

	summaries := absentSummaries(tax)
	summaries["introduction"] = types.StageSummary{StageKey: "introduction", Status: types.StagePresent, UtteranceIndices: []int{0, 1}}
	summaries["closing"] = types.StageSummary{StageKey: "closing", Status: types.StagePresent, UtteranceIndices: []int{2}}

	anns, err := p.ProposeAnnotations(context.Background(), annUtterances(), summaries)
	if err == nil {
		t.Fatal("want the stage failure reported")
	}
	if len(anns) != 1 || anns[0].Title != "Courteous close" {
		t.Errorf("surviving stage output lost: %+v", anns)
	}
}

func TestProposeAnnotationsPromptContent(t *testing.T) {
	var prompt string
	client := llm.NewMock(func(req llm.Request) (string, error) {
		prompt = req.User
		return `{"annotations":[]}`, nil
	})
	tax := taxonomy.Default()
	p := New(client, tax, testLog())

	summaries := absentSummaries(tax)
	summaries["closing"] = types.StageSummary{StageKey: "closing", Status: types.StagePresent, UtteranceIndices: []int{2}}

	if _, err := p.ProposeAnnotations(context.Background(), annUtterances(), summaries); err != nil {
		t.Fatalf("ProposeAnnotations: %v", err)
	}
	for _, want := range []string{"STAGE: Closing & Thank You", "GUIDANCE:", "[2]"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "[0]") {
		t.Error("prompt includes utterances outside the stage")
	}
}

func TestIdentifyCallType(t *testing.T) {
	t.Run("known type", func(t *testing.T) {
		client := llm.NewMock(func(req llm.Request) (string, error) {
			return `{"call_type":"repair_call","reasoning":"furnace repair"}`, nil
		})
		p := New(client, taxonomy.Default(), testLog())
		ct, err := p.IdentifyCallType(context.Background(), annUtterances())
		if err != nil || ct != types.CallTypeRepair {
			t.Fatalf("got %q, %v", ct, err)
		}
	})

	t.Run("unknown type coerced", func(t *testing.T) {
		client := llm.NewMock(func(req llm.Request) (string, error) {
			return `{"call_type":"birthday_party","reasoning":""}`, nil
		})
		p := New(client, taxonomy.Default(), testLog())
		ct, err := p.IdentifyCallType(context.Background(), annUtterances())
		if err != nil || ct != types.CallTypeOther {
			t.Fatalf("got %q, %v, want other", ct, err)
		}
	})

	t.Run("failure falls back to other", func(t *testing.T) {
		client := llm.NewMock(func(req llm.Request) (string, error) { return "", errors.New("boom") })
		p := New(client, taxonomy.Default(), testLog())
		ct, err := p.IdentifyCallType(context.Background(), annUtterances())
		if err == nil || ct != types.CallTypeOther {
			t.Fatalf("got %q, %v, want other with error", ct, err)
		}
	})
}

func TestExtractSalesInsights(t *testing.T) {
	t.Run("normalizes and filters grades", func(t *testing.T) {
		client := llm.NewMock(func(req llm.Request) (string, error) {
			return `{"effectiveness_grade":" b ","dimensions":[
				{"name":"rapport","grade":"a","notes":"warm"},
				{"name":"closing","grade":"Z","notes":""}
			],"opportunities_captured":["maintenance plan"],"opportunities_missed":[],"buying_signals":["send details"]}`, nil
		})
		p := New(client, taxonomy.Default(), testLog())
		ins, err := p.ExtractSalesInsights(context.Background(), annUtterances(), nil)
		if err != nil {
			t.Fatalf("ExtractSalesInsights: %v", err)
		}
		if ins.EffectivenessGrade != "B" {
			t.Errorf("effectiveness = %q, want B", ins.EffectivenessGrade)
		}
		if len(ins.Dimensions) != 1 || ins.Dimensions[0].Grade != "A" {
			t.Errorf("dimensions = %+v, want the single valid grade", ins.Dimensions)
		}
		if len(ins.BuyingSignals) != 1 {
			t.Errorf("buying signals = %v", ins.BuyingSignals)
		}
	})

	t.Run("nothing usable", func(t *testing.T) {
		client := llm.NewMock(func(req llm.Request) (string, error) {
			return `{"effectiveness_grade":"great","dimensions":[{"name":"x","grade":"excellent","notes":""}],"opportunities_captured":[],"opportunities_missed":[],"buying_signals":[]}`, nil
		})
		p := New(client, taxonomy.Default(), testLog())
		if ins, err := p.ExtractSalesInsights(context.Background(), annUtterances(), nil); err == nil || ins != nil {
			t.Fatalf("got %+v, %v, want nil with error", ins, err)
		}
	})
}

func TestSummarizeTrimsResponse(t *testing.T) {
	client := llm.NewMock(func(req llm.Request) (string, error) {
		return `{"summary":"  Technician cleaned the flame sensor and closed politely.  "}`, nil
	})
	p := New(client, taxonomy.Default(), testLog())
	got, err := p.Summarize(context.Background(), annUtterances(), types.CallTypeRepair)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "Technician cleaned the flame sensor and closed politely." {
		t.Errorf("summary = %q", got)
	}
}
