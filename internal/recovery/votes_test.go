package recovery

import (
	"errors"
	"slices"
	"testing"
)

func TestThreshold(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 0, 2: 1, 3: 1, 4: 2, 5: 2, 10: 5} {
		if got := Threshold(n); got != want {
			t.Fatalf("Threshold(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestCastVote(t *testing.T) {
	tests := []struct {
		name      string
		sigs      []string
		guardians int
		vote      string
		want      []string
		finalize  bool
	}{
		{name: "second of three finalizes", sigs: []string{"g1"}, guardians: 3, vote: "g2", want: []string{"g1", "g2"}, finalize: true},
		{name: "second of two finalizes", sigs: []string{"g1"}, guardians: 2, vote: "g2", want: []string{"g1", "g2"}, finalize: true},
		{name: "second of four waits", sigs: []string{"g1"}, guardians: 4, vote: "g2", want: []string{"g1", "g2"}},
		{name: "third of four finalizes", sigs: []string{"g1", "g2"}, guardians: 4, vote: "g3", want: []string{"g1", "g2", "g3"}, finalize: true},
		{name: "duplicate counted", sigs: []string{"g1"}, guardians: 3, vote: "g1", want: []string{"g1", "g1"}, finalize: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := slices.Clone(tt.sigs)
			got, finalize := CastVote(in, tt.guardians, tt.vote)
			if !slices.Equal(got, tt.want) || finalize != tt.finalize {
				t.Fatalf("CastVote = (%v, %v), want (%v, %v)", got, finalize, tt.want, tt.finalize)
			}
			if !slices.Equal(in, tt.sigs) {
				t.Fatalf("input signatures modified: %v", in)
			}
		})
	}
}

func TestVotePolicy_Dedupe(t *testing.T) {
	p := VotePolicy{Dedupe: true}
	if _, _, err := p.Cast([]string{"g1"}, 3, "g1"); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
	p.Equal = FoldIdentity
	if _, _, err := p.Cast([]string{"g1"}, 3, "G1"); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected case-folded duplicate to be rejected, got %v", err)
	}
	got, finalize, err := p.Cast([]string{"g1"}, 3, "g2")
	if err != nil || !finalize || len(got) != 2 {
		t.Fatalf("unexpected result (%v, %v, %v)", got, finalize, err)
	}
}
