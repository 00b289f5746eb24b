package ops

import (
	"context"
	"fmt"
	"testing"

	"github.com/hpungsan/dirdump/internal/capture"
	"github.com/hpungsan/dirdump/internal/errors"
)

func persistAll(t *testing.T, s persister, inputs ...PersistInput) []*PersistOutput {
	t.Helper()
	var outs []*PersistOutput
	for _, in := range inputs {
		out, err := Persist(context.Background(), s.db, s.dumper, s.filter, in)
		if err != nil {
			t.Fatalf("Persist(%+v) failed: %v", in.Target, err)
		}
		outs = append(outs, out)
	}
	return outs
}

func TestList_HappyPath(t *testing.T) {
	database, dumper := setup(t)
	s := persister{database, dumper, capture.Filter{}}

	persistAll(t, s,
		PersistInput{Target: Target{URL: "http://a.com/1"}, Content: []byte("1")},
		PersistInput{Target: Target{URL: "http://a.com/2"}, Content: []byte("2")},
		PersistInput{Target: Target{URL: "http://b.com/3"}, Content: []byte("3")},
	)

	output, err := List(context.Background(), database, ListInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(output.Items) != 3 {
		t.Errorf("len(Items) = %d, want 3", len(output.Items))
	}
	if output.Pagination.Total != 3 {
		t.Errorf("Total = %d, want 3", output.Pagination.Total)
	}
	if output.Pagination.HasMore {
		t.Error("HasMore = true, want false")
	}
	if output.Sort != "created_at_desc" {
		t.Errorf("Sort = %q, want 'created_at_desc'", output.Sort)
	}
}

func TestList_Filters(t *testing.T) {
	database, dumper := setup(t)
	s := persister{database, dumper, capture.Filter{DumpRequestContent: true}}

	persistAll(t, s,
		PersistInput{Target: Target{URL: "http://a.com/api/x"}, Content: []byte("x")},
		PersistInput{Target: Target{URL: "http://a.com/api/x"}, Content: []byte("x")},
		PersistInput{Target: Target{URL: "http://a.com/api/x"}, IsRequest: true, Content: []byte("q")},
		PersistInput{Target: Target{URL: "http://a.com/other"}, Content: []byte("o")},
		PersistInput{Target: Target{URL: "http://b.com/api/x"}, Content: []byte("b")},
	)

	tests := []struct {
		name  string
		input ListInput
		want  int
	}{
		{"host normalized", ListInput{Host: " A.COM "}, 4},
		{"key prefix", ListInput{KeyPrefix: "/a.com/api/"}, 3},
		{"duplicates", ListInput{Outcome: "duplicate"}, 1},
		{"requests", ListInput{Request: boolPtr(true)}, 1},
		{"responses of host", ListInput{Host: "a.com", Request: boolPtr(false)}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := List(context.Background(), database, tt.input)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if out.Pagination.Total != tt.want {
				t.Errorf("Total = %d, want %d", out.Pagination.Total, tt.want)
			}
		})
	}
}

func TestList_Pagination(t *testing.T) {
	database, dumper := setup(t)
	s := persister{database, dumper, capture.Filter{}}

	for i := 0; i < 5; i++ {
		persistAll(t, s, PersistInput{Target: Target{Host: "h", Path: fmt.Sprintf("/p%d", i)}, Content: []byte("x")})
	}

	out, err := List(context.Background(), database, ListInput{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Items) != 2 || !out.Pagination.HasMore || out.Pagination.Offset != 2 {
		t.Errorf("page = %d items, pagination %+v", len(out.Items), out.Pagination)
	}

	out, err = List(context.Background(), database, ListInput{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Items) != 1 || out.Pagination.HasMore {
		t.Errorf("last page = %d items, pagination %+v", len(out.Items), out.Pagination)
	}
}

func TestList_Empty(t *testing.T) {
	database, _ := setup(t)

	out, err := List(context.Background(), database, ListInput{Offset: -3, Limit: 1000})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out.Items == nil {
		t.Error("Items = nil, want empty slice")
	}
	if out.Pagination.Offset != 0 || out.Pagination.Limit != MaxListLimit {
		t.Errorf("Pagination = %+v", out.Pagination)
	}
}

func TestList_InvalidOutcome(t *testing.T) {
	database, _ := setup(t)

	_, err := List(context.Background(), database, ListInput{Outcome: "empty"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
}
