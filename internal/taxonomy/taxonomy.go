// Package taxonomy defines the fixed, ordered stage taxonomy of a service
// call and the weighted compliance rubric each stage owns. The built-in
// defaults cover a standard technician visit; Load accepts a YAML override so
// stage-boundary policy (descriptions, keywords, guidance) is configuration,
// not code.
package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Question struct {
	ID       string `yaml:"id" json:"id"`
	Weight   int    `yaml:"weight" json:"weight"`
	Text     string `yaml:"text" json:"text"`
	Criteria string `yaml:"criteria" json:"criteria"`
}

type Stage struct {
	Key                string     `yaml:"key" json:"key"`
	Name               string     `yaml:"name" json:"name"`
	Description        string     `yaml:"description" json:"description"`
	Keywords           []string   `yaml:"keywords" json:"keywords"`
	KeyElements        []string   `yaml:"key_elements" json:"key_elements"`
	AnnotationGuidance string     `yaml:"annotation_guidance" json:"annotation_guidance"`
	Rubric             []Question `yaml:"rubric" json:"rubric"`
}

type Taxonomy struct {
	Stages []Stage `yaml:"stages" json:"stages"`
}

// Keys returns the stage keys in taxonomy order.
func (t Taxonomy) Keys() []string {
	keys := make([]string, len(t.Stages))
	for i, s := range t.Stages {
		keys[i] = s.Key
	}
	return keys
}

// ByKey looks up a stage by taxonomy key.
func (t Taxonomy) ByKey(key string) (Stage, bool) {
	for _, s := range t.Stages {
		if s.Key == key {
			return s, true
		}
	}
	return Stage{}, false
}

// Contains reports whether key is part of the taxonomy.
func (t Taxonomy) Contains(key string) bool {
	_, ok := t.ByKey(key)
	return ok
}

func (t Taxonomy) Validate() error {
	if len(t.Stages) == 0 {
		return fmt.Errorf("taxonomy has no stages")
	}
	stageKeys := map[string]bool{}
	questionIDs := map[string]bool{}
	for _, s := range t.Stages {
		if s.Key == "" {
			return fmt.Errorf("stage with empty key")
		}
		if stageKeys[s.Key] {
			return fmt.Errorf("duplicate stage key %q", s.Key)
		}
		stageKeys[s.Key] = true
		for _, q := range s.Rubric {
			if q.ID == "" {
				return fmt.Errorf("stage %q: question with empty id", s.Key)
			}
			if questionIDs[q.ID] {
				return fmt.Errorf("duplicate question id %q", q.ID)
			}
			questionIDs[q.ID] = true
			if q.Weight < 1 {
				return fmt.Errorf("question %q: weight must be >= 1, got %d", q.ID, q.Weight)
			}
		}
	}
	return nil
}

// Load returns the built-in taxonomy when path is empty, otherwise decodes
// and validates a YAML override file.
func Load(path string) (Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("read taxonomy: %w", err)
	}
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Taxonomy{}, fmt.Errorf("decode taxonomy: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Taxonomy{}, fmt.Errorf("invalid taxonomy %s: %w", path, err)
	}
	return t, nil
}

// Default is the built-in six-stage service-call taxonomy with its weighted
// rubric.
func Default() Taxonomy {
	return Taxonomy{Stages: []Stage{
		{
			Key:         "introduction",
			Name:        "Introduction & Greeting",
			Description: "Technician greets customer and introduces themselves/company",
			Keywords:    []string{"hello", "hi", "my name", "calling from", "this is"},
			KeyElements: []string{"greeting", "technician name", "company name"},
			AnnotationGuidance: "Judge greeting quality in context: a formal name/company introduction " +
				"matters on first contact, while a warm acknowledgment is enough when the parties have " +
				"already met. Highlight rapport building, use of the customer's name, and cold or abrupt openings.",
			Rubric: []Question{
				{
					ID:       "intro_greeting",
					Weight:   2,
					Text:     "Did the technician greet the customer in a professional and cordial manner?",
					Criteria: "Professional and friendly greeting that acknowledges the customer. If they've already met, the greeting should still be warm and professional.",
				},
				{
					ID:       "intro_name_company",
					Weight:   2,
					Text:     "Did the technician appropriately introduce themselves/company (if needed given the context)?",
					Criteria: "If this is first contact, technician should introduce name and company. If they've already met (common in service calls), this is not required - cordial acknowledgment is sufficient.",
				},
				{
					ID:       "intro_rapport",
					Weight:   1,
					Text:     "Did the technician establish or maintain good rapport with the customer?",
					Criteria: "Friendly, respectful tone that builds trust. Uses customer's name if appropriate. Creates a positive start to the interaction.",
				},
			},
		},
		{
			Key:         "problem_diagnosis",
			Name:        "Problem Diagnosis",
			Description: "Technician inquires about and understands the customer's issue",
			Keywords:    []string{"problem", "issue", "what's wrong", "tell me about", "happening"},
			KeyElements: []string{"asking questions", "understanding issue", "diagnostic inquiry"},
			AnnotationGuidance: "Match expected diagnostic depth to the call: brief exchanges are fine when " +
				"the customer raises nothing, but raised concerns deserve a thoughtful response. A question " +
				"answered within the next few utterances is answered, not missing.",
			Rubric: []Question{
				{
					ID:       "diag_relevance",
					Weight:   1,
					Text:     "Was problem diagnosis relevant and appropriate for this call?",
					Criteria: "Consider whether the customer expressed concerns that warrant diagnosis and whether this is a repair or routine visit. If no customer concerns, brief responses are sufficient.",
				},
				{
					ID:       "diag_customer_needs",
					Weight:   2,
					Text:     "Did the technician appropriately address any customer questions or concerns?",
					Criteria: "If customer asked questions or expressed concerns, technician should respond thoughtfully. If customer didn't raise issues, no probing is needed.",
				},
				{
					ID:       "diag_communication",
					Weight:   2,
					Text:     "Was communication about the work clear and appropriate?",
					Criteria: "Technician explains what they're doing/found in a way that's appropriate for the context. Active listening if customer has concerns. May be brief if straightforward work.",
				},
			},
		},
		{
			Key:         "solution_explanation",
			Name:        "Solution Explanation",
			Description: "Technician explains the solution, work performed, or service provided",
			Keywords:    []string{"fixed", "repaired", "replaced", "installed", "adjusted", "done"},
			KeyElements: []string{"what was done", "how it was fixed", "technical details"},
			AnnotationGuidance: "Look for clear explanations of the work performed, plain language over " +
				"jargon, and whether the customer's understanding was checked.",
			Rubric: []Question{
				{
					ID:       "soln_clarity",
					Weight:   2,
					Text:     "Did the technician clearly explain the solution or service performed?",
					Criteria: "Clear explanation of what was done, how it was fixed",
				},
				{
					ID:       "soln_understanding",
					Weight:   1,
					Text:     "Did the customer appear to understand the explanation?",
					Criteria: "Customer responses indicate comprehension, technician checked for understanding",
				},
				{
					ID:       "soln_details",
					Weight:   1,
					Text:     "Were technical details communicated in an accessible way?",
					Criteria: "Avoided excessive jargon or explained technical terms clearly",
				},
			},
		},
		{
			Key:         "upsell_attempts",
			Name:        "Upsell Attempts",
			Description: "Technician offers additional services, products, or upgrades",
			Keywords:    []string{"also", "additional", "upgrade", "recommend", "options", "equipment"},
			KeyElements: []string{"additional services", "product recommendations", "upgrades"},
			AnnotationGuidance: "Distinguish natural, needs-driven offers from pushy ones, and flag clear " +
				"openings for an offer the technician let pass.",
			Rubric: []Question{
				{
					ID:       "upsell_present",
					Weight:   2,
					Text:     "Did the technician attempt to upsell additional services or products?",
					Criteria: "Mentioned additional services, upgrades, or products",
				},
				{
					ID:       "upsell_approach",
					Weight:   2,
					Text:     "Was the upsell approach natural and customer-focused?",
					Criteria: "Professional approach that considers customer needs, not pushy",
				},
				{
					ID:       "upsell_value",
					Weight:   1,
					Text:     "Did the technician explain the value/benefits?",
					Criteria: "Clear explanation of why customer would benefit",
				},
			},
		},
		{
			Key:         "maintenance_plan",
			Name:        "Maintenance Plan Offer",
			Description: "Technician offers maintenance plans or long-term service agreements",
			Keywords:    []string{"maintenance", "plan", "agreement", "service plan", "warranty", "protection"},
			KeyElements: []string{"maintenance plan", "service agreement", "ongoing support"},
			AnnotationGuidance: "The offer itself carries the most weight; note how objections or interest " +
				"were handled and whether plan details were actually explained.",
			Rubric: []Question{
				{
					ID:       "maint_offered",
					Weight:   3,
					Text:     "Did the technician offer a maintenance plan or service agreement?",
					Criteria: "Mentioned maintenance plans, service agreements, or ongoing support",
				},
				{
					ID:       "maint_details",
					Weight:   1,
					Text:     "Were the plan details clearly explained?",
					Criteria: "Explained what the plan includes, benefits, and terms",
				},
				{
					ID:       "maint_customer_response",
					Weight:   1,
					Text:     "Was the customer's response addressed appropriately?",
					Criteria: "Handled objections or interest professionally",
				},
			},
		},
		{
			Key:         "closing",
			Name:        "Closing & Thank You",
			Description: "Technician wraps up the call and thanks the customer",
			Keywords:    []string{"thank", "thanks", "appreciate", "have a", "take care", "goodbye"},
			KeyElements: []string{"thank you", "closing remarks", "goodbye"},
			AnnotationGuidance: "A mid-call \"wrapping up\" of one topic is not the terminal close; the " +
				"closing stage is the final thanks and goodbye. Note missing thanks or absent next steps.",
			Rubric: []Question{
				{
					ID:       "close_thankyou",
					Weight:   2,
					Text:     "Did the technician thank the customer?",
					Criteria: "Expressed gratitude for customer's business or time",
				},
				{
					ID:       "close_professional",
					Weight:   1,
					Text:     "Was the closing professional and courteous?",
					Criteria: "Polite, professional tone in wrapping up",
				},
				{
					ID:       "close_nextsteps",
					Weight:   1,
					Text:     "Were next steps or follow-up information provided if needed?",
					Criteria: "Confirmed any follow-up actions or left customer with necessary information",
				},
			},
		},
	}}
}
