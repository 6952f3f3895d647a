package games

import (
	"errors"
	"testing"

	"gameshelf/internal/services"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		input   string
		want    ID
		wantErr bool
	}{
		{input: "catalogA:1020", want: ID{Source: SourceA, Native: 1020}},
		{input: "B:1942", want: ID{Source: SourceB, Native: 1942}},
		{input: " a:7 ", want: ID{Source: SourceA, Native: 7}},
		{input: "catalogB:-5", want: ID{Source: SourceB, Native: -5}},
		{input: "1020", wantErr: true},
		{input: "C:1", wantErr: true},
		{input: "A:abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, services.ErrInvalidID) {
					t.Fatalf("expected ErrInvalidID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseID returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseID(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIDStringAndRange(t *testing.T) {
	id := NewID(SourceA, 1020)
	if id.String() != "catalogA:1020" {
		t.Fatalf("unexpected canonical form %q", id.String())
	}
	if !id.InRange() {
		t.Fatal("expected 1020 in range")
	}
	if NewID(SourceB, 0).InRange() || NewID(SourceB, MaxNativeID+1).InRange() {
		t.Fatal("expected out of range ids to be rejected")
	}
	if SourceA.Other() != SourceB || SourceB.Other() != SourceA {
		t.Fatal("Other should swap sources")
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs("A:1, catalogB:2,,")
	if err != nil {
		t.Fatalf("ParseIDs returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != NewID(SourceA, 1) || ids[1] != NewID(SourceB, 2) {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		err  error
		want Reason
	}{
		{nil, ReasonNone},
		{services.Wrap(services.ErrNotFound, "rawg", "get", "", nil), ReasonNotFound},
		{services.Wrap(services.ErrInvalidID, "games", "parse", "", nil), ReasonInvalidID},
		{services.Wrap(services.ErrRejected, "guard", "call", "breaker open", nil), ReasonAPIError},
		{errors.New("boom"), ReasonAPIError},
	}
	for _, tt := range tests {
		if got := ReasonFor(tt.err); got != tt.want {
			t.Errorf("ReasonFor(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestPlaceholders(t *testing.T) {
	id := NewID(SourceB, 9999999)
	rec := NotFoundRecord(id)
	if rec.Fallback != FallbackNotFound || !rec.IsPlaceholder() || !rec.LowConfidence() {
		t.Fatalf("unexpected not-found placeholder %+v", rec)
	}
	if rec.Name != "Unknown Game (9999999)" || rec.ID != id {
		t.Fatalf("unexpected placeholder identity %+v", rec)
	}
	if UnavailableRecord(id).Fallback != FallbackUnavailable {
		t.Fatal("expected unavailable fallback")
	}
	real := Record{ID: id, Name: "Real"}
	if real.LowConfidence() {
		t.Fatal("named real record should not be low confidence")
	}
}
