package models_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/studynexus/nexus/internal/models"
)

func ptr[T any](v T) *T { return &v }

func assertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func assertErrorContains(t *testing.T, err error, want string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}

	if !strings.Contains(err.Error(), want) {
		t.Errorf("expected error containing %q, got %q", want, err.Error())
	}
}

func TestCreateNodeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CreateNodeRequest
		wantErr string
	}{
		{name: "valid", req: models.CreateNodeRequest{Label: "NPV", Explanation: "net present value"}},
		{name: "valid with category", req: models.CreateNodeRequest{Label: "NPV", Category: models.CategoryFormula}},
		{name: "missing label", req: models.CreateNodeRequest{Explanation: "x"}, wantErr: "label is required"},
		{name: "blank label", req: models.CreateNodeRequest{Label: "   "}, wantErr: "label is required"},
		{name: "label too long", req: models.CreateNodeRequest{Label: strings.Repeat("x", 501)}, wantErr: "label must be at most"},
		{name: "bad category", req: models.CreateNodeRequest{Label: "a", Category: "theorem"}, wantErr: "category must be one of"},
		{name: "negative depth", req: models.CreateNodeRequest{Label: "a", Depth: -1}, wantErr: "depth must be at least"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr != "" {
				assertErrorContains(t, err, tc.wantErr)
				return
			}
			assertNoError(t, err)
		})
	}
}

func TestReviewRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		quality *int
		wantErr bool
	}{
		{name: "zero", quality: ptr(0)},
		{name: "five", quality: ptr(5)},
		{name: "missing", quality: nil, wantErr: true},
		{name: "negative", quality: ptr(-1), wantErr: true},
		{name: "six", quality: ptr(6), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := models.ReviewRequest{Quality: tc.quality}
			err := req.Validate()
			if tc.wantErr {
				if !errors.Is(err, models.ErrInvalidQuality) {
					t.Fatalf("expected ErrInvalidQuality, got %v", err)
				}
				return
			}
			assertNoError(t, err)
		})
	}
}

func TestImportRequest_Validate(t *testing.T) {
	req := models.ImportRequest{Concepts: []models.ConceptInput{{Keyword: "  NPV "}}}
	assertNoError(t, req.Validate())

	if req.Concepts[0].Keyword != "NPV" {
		t.Errorf("expected trimmed keyword, got %q", req.Concepts[0].Keyword)
	}

	empty := models.ImportRequest{}
	err := empty.Validate()
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	missing := models.ImportRequest{Concepts: []models.ConceptInput{{Explanation: "no keyword"}}}
	assertErrorContains(t, missing.Validate(), "keyword is required")
}

func TestQueryRequest_Validate(t *testing.T) {
	req := models.QueryRequest{Query: "  "}
	if err := req.Validate(); !errors.Is(err, models.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}

	req = models.QueryRequest{Query: "npv", TopK: 51}
	assertErrorContains(t, req.Validate(), "topk must be at most")
}

func TestNode_Clone(t *testing.T) {
	p := 0.4
	n := models.Node{
		ID:              "a",
		Embedding:       []float64{1, 2},
		ChildIDs:        []string{"b"},
		Connections:     []models.Connection{{TargetID: "b", Strength: 0.9}},
		ExamProbability: &p,
	}

	c := n.Clone()
	c.Embedding[0] = 9
	c.ChildIDs[0] = "z"
	c.Connections[0].Strength = 0
	*c.ExamProbability = 1

	if n.Embedding[0] != 1 || n.ChildIDs[0] != "b" || n.Connections[0].Strength != 0.9 || *n.ExamProbability != 0.4 {
		t.Error("clone aliases the original node")
	}
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range models.Categories {
		if !c.Valid() {
			t.Errorf("expected %q to be valid", c)
		}
	}

	if models.Category("theorem").Valid() {
		t.Error("expected unknown category to be invalid")
	}
}

func TestPriority_Rank(t *testing.T) {
	order := []models.Priority{models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("expected %s to rank before %s", order[i-1], order[i])
		}
	}
}
