// Package querytest provides an in-memory onboarding knowledge base for tests
// that exercise the query path end to end without a store or provider.
package querytest

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/kbquery/internal/domain"
	"github.com/kailas-cloud/kbquery/internal/domain/search/filter"
	"github.com/kailas-cloud/kbquery/internal/domain/search/result"
)

// Known queries. Each maps to a one-hot vector so a document's relevance to a
// query is simply its component on that axis.
const (
	ComplianceQuery = "What are the mandatory compliance requirements?"
	EthicsQuery     = "Find guidance on ethical decision making"
	JoinersQuery    = "Who is joining the HR department?"
)

var queryAxis = map[string]int{
	ComplianceQuery: 0,
	EthicsQuery:     1,
	JoinersQuery:    2,
}

// Dimensions is the vector length produced by Embedder.
const Dimensions = 3

// Doc is a stored chunk.
type Doc struct {
	ID       string
	Content  string
	Metadata map[string]string
	Vector   [Dimensions]float32
}

// Embedder maps the known queries to one-hot vectors; anything else gets a zero-relevance vector.
type Embedder struct {
	Calls int
	Err   error
}

// Embed implements query.Embedder.
func (e *Embedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.Calls++
	if e.Err != nil {
		return domain.EmbeddingResult{}, e.Err
	}
	vec := make([]float32, Dimensions)
	if i, ok := queryAxis[text]; ok {
		vec[i] = 1
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: len(text) / 4}, nil
}

// Repo is an in-memory vector store honouring equality pre-filters.
type Repo struct {
	Collection string
	Docs       []Doc
	Calls      int
	Err        error
}

// SearchKNN implements query.Repository. Ranking is by dot product, ties by ID.
func (r *Repo) SearchKNN(
	_ context.Context, collection string,
	vector []float32, f filter.Filter, topK int,
) ([]result.Record, error) {
	r.Calls++
	if r.Err != nil {
		return nil, r.Err
	}
	if collection != r.Collection {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	type hit struct {
		doc   Doc
		score float64
	}
	var hits []hit
	for _, d := range r.Docs {
		if !matches(d, f) {
			continue
		}
		var dot float64
		for i := range vector {
			dot += float64(vector[i]) * float64(d.Vector[i])
		}
		hits = append(hits, hit{doc: d, score: dot})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc.ID < hits[j].doc.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]result.Record, 0, len(hits))
	for _, h := range hits {
		md := make(map[string]string, len(h.doc.Metadata))
		for k, v := range h.doc.Metadata {
			md[k] = v
		}
		out = append(out, result.New(h.doc.ID, h.score, h.doc.Content, md))
	}
	return out, nil
}

func matches(d Doc, f filter.Filter) bool {
	for _, c := range f.Conditions() {
		if d.Metadata[c.Field()] != c.Value().Text() {
			return false
		}
	}
	return true
}

// OnboardingKB returns a store stub seeded with the onboarding corpus the
// retrieval transcripts were recorded against.
func OnboardingKB() *Repo {
	return &Repo{Collection: domain.DefaultCollection, Docs: onboardingDocs()}
}

func policy(source, priority, topic string) map[string]string {
	return map[string]string{
		"source_file":    source,
		"priority_level": priority,
		"topic":          topic,
		"doc_type":       "policy",
	}
}

func employee(id, name, role string) map[string]string {
	return map[string]string{
		"employee_id":    id,
		"name":           name,
		"role":           role,
		"department":     "HR",
		"doc_type":       "employee_record",
		"source_file":    "employees.json",
		"priority_level": "medium",
	}
}

func onboardingDocs() []Doc {
	const (
		coe  = "organization-coe.pdf"
		shrm = "2018-shrm-public-policy-issues-guide-030518.pdf"
	)
	return []Doc{
		{
			ID:       "chunk_0001",
			Content:  "All employees must complete annual compliance training and acknowledge the code of conduct.",
			Metadata: policy(coe, "low", "compliance"),
			Vector:   [Dimensions]float32{0.9, 0.5, 0},
		},
		{
			ID:       "chunk_0002",
			Content:  "When facing an ethical dilemma, consult the decision-making framework in section 4.",
			Metadata: policy(coe, "medium", "code_of_ethics_and_conduct"),
			Vector:   [Dimensions]float32{0.8, 0.9, 0},
		},
		{
			ID:       "chunk_0003",
			Content:  "Federal workplace regulations require employers to maintain I-9 records for every hire.",
			Metadata: policy(shrm, "high", "public_policy"),
			Vector:   [Dimensions]float32{0.7, 0.95, 0},
		},
		{
			ID:       "chunk_0004",
			Content:  "Report suspected misconduct to the ethics office; retaliation is prohibited.",
			Metadata: policy(coe, "low", "code_of_ethics_and_conduct"),
			Vector:   [Dimensions]float32{0.1, 0.85, 0},
		},
		{
			ID:       "chunk_0005",
			Content:  "The HR department welcomes new joiners every Monday with an orientation session.",
			Metadata: policy("hr-handbook.pdf", "medium", "orientation"),
			Vector:   [Dimensions]float32{0, 0, 0.95},
		},
		{ID: "emp_001", Content: "Alice Chen, Software Engineer, starts 2025-01-06.",
			Metadata: employee("EMP001", "Alice Chen", "Software Engineer"), Vector: [Dimensions]float32{0, 0, 0.9}},
		{ID: "emp_002", Content: "Bob Singh, Data Analyst, starts 2025-03-03.",
			Metadata: employee("EMP002", "Bob Singh", "Data Analyst"), Vector: [Dimensions]float32{0, 0, 0.2}},
		{ID: "emp_003", Content: "Carla Diaz, Software Engineer, starts 2025-02-10.",
			Metadata: employee("EMP003", "Carla Diaz", "Software Engineer"), Vector: [Dimensions]float32{0, 0, 0.7}},
		{ID: "emp_004", Content: "Dev Patel, Product Manager, starts 2025-01-20.",
			Metadata: employee("EMP004", "Dev Patel", "Product Manager"), Vector: [Dimensions]float32{0, 0, 0.8}},
	}
}
