package verify

// Scenario is a recorded retrieval with the metadata the answer is known to carry.
type Scenario struct {
	Name  string
	Query string
	TopK  int
	Where map[string]any
	// Count is the exact number of records expected. Zero means "at most TopK".
	Count int
	// Positions holds per-rank expectations; Positions[i] applies to record i.
	Positions []map[string]string
	// Each applies to every returned record.
	Each map[string]string
}

// Transcripts returns the retrieval scenarios recorded against the onboarding knowledge base.
func Transcripts() []Scenario {
	const coe = "organization-coe.pdf"
	return []Scenario{
		{
			Name:  "compliance requirements",
			Query: "What are the mandatory compliance requirements?",
			TopK:  3,
			Count: 3,
			Positions: []map[string]string{
				{"source_file": coe, "priority_level": "low"},
				{"source_file": coe, "priority_level": "medium"},
				{"source_file": "2018-shrm-public-policy-issues-guide-030518.pdf", "priority_level": "high"},
			},
		},
		{
			Name:  "ethical decision making",
			Query: "Find guidance on ethical decision making",
			TopK:  2,
			Where: map[string]any{"source_file": coe},
			Count: 2,
			Each:  map[string]string{"source_file": coe, "topic": "code_of_ethics_and_conduct"},
		},
		{
			Name:  "new joiners",
			Query: "Who is joining the HR department?",
			TopK:  3,
			Where: map[string]any{"doc_type": "employee_record"},
			Count: 3,
			Positions: []map[string]string{
				{"employee_id": "EMP001", "role": "Software Engineer"},
				{"employee_id": "EMP004", "role": "Product Manager"},
				{"employee_id": "EMP003", "role": "Software Engineer"},
			},
		},
	}
}
