package cluster

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"geocluster/internal/photo"
)

func TestReliabilityArithmetic(t *testing.T) {
	c := &Cluster{anchored: true}
	for i := 0; i < 3; i++ {
		c.Items = append(c.Items, locatedAt("near", 10, 10, time.Duration(i)*time.Minute))
	}
	for i := 0; i < 5; i++ {
		c.Items = append(c.Items, locatedAt("far", 10, 10, 48*time.Hour))
	}
	// Two members without a timestamp still count in the denominator.
	c.Items = append(c.Items, located("untimed", 10, 10), located("untimed", 10, 10))

	got := Reliability(c, baseTime, time.Hour)
	if math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("Reliability() = %v, want 0.3", got)
	}
}

func TestReliabilityIgnoresPositionlessMembers(t *testing.T) {
	c := &Cluster{anchored: true, Items: []photo.Item{
		locatedAt("a", 10, 10, 0),
		unlocatedAt("relocated", 0),
	}}
	if got := Reliability(c, baseTime, time.Hour); got != 0.5 {
		t.Fatalf("Reliability() = %v, want 0.5", got)
	}
}

func TestReliabilityWindowIsExclusive(t *testing.T) {
	c := &Cluster{anchored: true, Items: []photo.Item{locatedAt("a", 10, 10, time.Hour)}}
	if got := Reliability(c, baseTime, time.Hour); got != 0 {
		t.Fatalf("member exactly one window away must not match, got %v", got)
	}
	if got := Reliability(c, baseTime, time.Hour+time.Second); got != 1 {
		t.Fatalf("member inside window should match, got %v", got)
	}
}

func endToEndSet(t *testing.T) Set {
	t.Helper()
	items := []photo.Item{
		locatedAt("a", 10.0, 10.0, 0),
		located("b", 10.0001, 10.0001),
		locatedAt("c", 50.0, 50.0, 72*time.Hour),
		unlocatedAt("d", 30*time.Minute),
	}
	return mustAssign(t, items, 100)
}

func TestRelocateEndToEnd(t *testing.T) {
	set := endToEndSet(t)

	relocated, moves, err := Relocate(set, 3600*time.Second, nil)
	if err != nil {
		t.Fatalf("Relocate returned error: %v", err)
	}
	want := [][]string{{"a", "b", "d"}, {"c"}}
	if diff := cmp.Diff(want, membership(relocated)); diff != "" {
		t.Fatalf("membership mismatch (-want +got):\n%s", diff)
	}
	if relocated.Unclassified.Len() != 0 {
		t.Fatalf("expected empty bucket, got %v", ids(relocated.Unclassified))
	}
	if len(moves) != 1 || moves[0].Cluster != 0 || moves[0].Score != 0.5 {
		t.Fatalf("unexpected moves: %+v", moves)
	}

	// The input snapshot is left as it was.
	if diff := cmp.Diff([]string{"d"}, ids(set.Unclassified)); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}

	narrow, moves, err := Relocate(set, time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 0 {
		t.Fatalf("expected no moves with a 1s window, got %+v", moves)
	}
	if diff := cmp.Diff([]string{"d"}, ids(narrow.Unclassified)); diff != "" {
		t.Fatalf("unclassified mismatch (-want +got):\n%s", diff)
	}
}

func TestRelocateTieGoesToEarliestCluster(t *testing.T) {
	items := []photo.Item{
		locatedAt("x1", 10, 10, 0),
		locatedAt("y1", 40, 40, 0),
		unlocatedAt("candidate", time.Minute),
	}
	set := mustAssign(t, items, 100)

	relocated, moves, err := Relocate(set, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"x1", "candidate"}, {"y1"}}
	if diff := cmp.Diff(want, membership(relocated)); diff != "" {
		t.Fatalf("tie-break mismatch (-want +got):\n%s", diff)
	}
	if len(moves) != 1 || moves[0].Cluster != 0 {
		t.Fatalf("unexpected moves: %+v", moves)
	}
}

func TestRelocatePicksHighestScore(t *testing.T) {
	items := []photo.Item{
		locatedAt("small", 10, 10, 0),
		located("small-untimed", 10, 10),
		located("small-untimed-2", 10, 10),
		locatedAt("big", 40, 40, 0),
		locatedAt("big-2", 40, 40, 5*time.Minute),
		unlocatedAt("candidate", time.Minute),
	}
	set := mustAssign(t, items, 100)

	relocated, _, err := Relocate(set, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"small", "small-untimed", "small-untimed-2"}, {"big", "big-2", "candidate"}}
	if diff := cmp.Diff(want, membership(relocated)); diff != "" {
		t.Fatalf("membership mismatch (-want +got):\n%s", diff)
	}
}

func TestRelocateSweepSeesEarlierMoves(t *testing.T) {
	// Cluster 0 scores 1/2 for both candidates, cluster 1 scores 1/2 as well
	// but loses the tie. After the first candidate joins cluster 0 its
	// denominator grows to 3 (score 1/3), so the second candidate goes to
	// cluster 1 instead.
	items := []photo.Item{
		locatedAt("a", 10, 10, 0),
		located("a-untimed", 10, 10),
		locatedAt("b", 40, 40, 0),
		located("b-untimed", 40, 40),
		unlocatedAt("first", time.Minute),
		unlocatedAt("second", 2*time.Minute),
	}
	set := mustAssign(t, items, 100)

	relocated, moves, err := Relocate(set, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"a", "a-untimed", "first"}, {"b", "b-untimed", "second"}}
	if diff := cmp.Diff(want, membership(relocated)); diff != "" {
		t.Fatalf("membership mismatch (-want +got):\n%s", diff)
	}
	if len(moves) != 2 {
		t.Fatalf("expected two moves, got %+v", moves)
	}
}

func TestRelocateKeepsUntimedAndUnmatchedInOrder(t *testing.T) {
	items := []photo.Item{
		locatedAt("a", 10, 10, 0),
		photo.New("untimed-1"),
		unlocatedAt("match-1", time.Minute),
		unlocatedAt("far", 96*time.Hour),
		unlocatedAt("match-2", 2*time.Minute),
		photo.New("untimed-2"),
	}
	set := mustAssign(t, items, 100)

	relocated, moves, err := Relocate(set, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"untimed-1", "far", "untimed-2"}, ids(relocated.Unclassified)); diff != "" {
		t.Fatalf("unclassified mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"a", "match-1", "match-2"}}, membership(relocated)); diff != "" {
		t.Fatalf("membership mismatch (-want +got):\n%s", diff)
	}
	if len(moves) != 2 {
		t.Fatalf("expected two moves, got %d", len(moves))
	}
	if relocated.ItemCount() != set.ItemCount() {
		t.Fatalf("item count changed: %d -> %d", set.ItemCount(), relocated.ItemCount())
	}
}

func TestRelocateNoClusters(t *testing.T) {
	set := mustAssign(t, []photo.Item{unlocatedAt("a", 0)}, 100)
	relocated, moves, err := Relocate(set, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 0 || relocated.Unclassified.Len() != 1 {
		t.Fatalf("expected item to stay unclassified, moves=%+v", moves)
	}
}

func TestRelocateRejectsNegativeWindow(t *testing.T) {
	if _, _, err := Relocate(Set{}, -time.Second, nil); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("error = %v, want ErrInvalidWindow", err)
	}
}
