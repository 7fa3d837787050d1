package track

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id string, kind Kind, speed float64, loop LoopPolicy) Definition {
	return Definition{ID: id, Kind: kind, Path: [][2]float64{{0, 0}, {10, 0}}, Speed: speed, Loop: loop}
}

func TestRegistry_ClampsOneShotAtEndpoint(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Add(line("fl-1", KindFlight, 0.1, LoopHold))
	require.NoError(t, err)

	r.Advance(11 * time.Second)

	snap, err := r.Snapshot("fl-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, snap.Progress)
	assert.Equal(t, Waypoint{Lat: 10, Lon: 0}, snap.Position)
	assert.True(t, r.Has("fl-1"), "hold policy keeps the entity")
}

func TestRegistry_SplitAdvanceMatchesSingleAdvance(t *testing.T) {
	defs := []Definition{
		line("a", KindTrain, 0.037, LoopWrap),
		{ID: "b", Kind: KindStorm, Path: [][2]float64{{1, 1}, {2, 3}, {-4, 5}}, Speed: 0.013, Wobble: 0.2},
		line("c", KindFlight, 0.05, LoopHold),
	}
	split := NewRegistry(7)
	single := NewRegistry(7)
	_, err := split.AddAll(defs)
	require.NoError(t, err)
	_, err = single.AddAll(defs)
	require.NoError(t, err)

	steps := []time.Duration{16 * time.Millisecond, 250 * time.Millisecond, 3 * time.Second, 1, 33*time.Millisecond + 7}
	var total time.Duration
	for _, s := range steps {
		split.Advance(s)
		total += s
	}
	single.Advance(total)

	for _, id := range []string{"a", "b", "c"} {
		got, err := split.PositionOf(id)
		require.NoError(t, err)
		want, err := single.PositionOf(id)
		require.NoError(t, err)
		assert.Equal(t, want, got, id)
	}
}

func TestRegistry_LoopReturnsToStartAfterOneLap(t *testing.T) {
	r := NewRegistry(1)
	def := line("train-1", KindTrain, 0.25, LoopWrap)
	def.PhaseOffset = 0.5
	_, err := r.Add(def)
	require.NoError(t, err)

	before, err := r.Snapshot("train-1")
	require.NoError(t, err)
	r.Advance(4 * time.Second)
	after, err := r.Snapshot("train-1")
	require.NoError(t, err)

	assert.InDelta(t, before.Progress, after.Progress, 1e-9)
	assert.InDelta(t, before.Position.Lat, after.Position.Lat, 1e-9)
}

func TestRegistry_PhaseOffsetKeepsTrainsApart(t *testing.T) {
	r := NewRegistry(1)
	a := line("t-a", KindTrain, 0.1, "")
	b := line("t-b", KindTrain, 0.1, "")
	b.PhaseOffset = 0.5
	_, err := r.AddAll([]Definition{a, b})
	require.NoError(t, err)

	for range 37 {
		r.Advance(300 * time.Millisecond)
		sa, _ := r.Snapshot("t-a")
		sb, _ := r.Snapshot("t-b")
		gap := sb.Progress - sa.Progress
		if gap < 0 {
			gap++
		}
		assert.InDelta(t, 0.5, gap, 1e-9)
	}
}

func TestRegistry_SingleWaypointIsStationary(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Add(Definition{ID: "tower", Kind: KindStorm, Path: [][2]float64{{48.2, 16.4}}, Speed: 1})
	require.NoError(t, err)
	r.Advance(time.Hour)
	pos, err := r.PositionOf("tower")
	require.NoError(t, err)
	assert.Equal(t, Waypoint{Lat: 48.2, Lon: 16.4}, pos)
}

func TestRegistry_RetirePolicyRemovesFinishedEntity(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Add(line("fl-2", KindFlight, 0.5, LoopRetire))
	require.NoError(t, err)

	assert.Empty(t, r.Advance(time.Second))
	assert.Equal(t, []string{"fl-2"}, r.Advance(time.Second))
	assert.False(t, r.Has("fl-2"))

	_, err = r.PositionOf("fl-2")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistry_NonPositiveDeltaIsNoop(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Add(line("fl-3", KindFlight, 0.1, LoopHold))
	require.NoError(t, err)
	r.Advance(2 * time.Second)
	r.Advance(-time.Second)
	r.Advance(0)
	snap, err := r.Snapshot("fl-3")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, snap.Elapsed)
}

func TestRegistry_InvalidDefinitions(t *testing.T) {
	cases := map[string]Definition{
		"empty path":     {ID: "x", Kind: KindFlight, Speed: 1},
		"negative speed": {ID: "x", Kind: KindFlight, Path: [][2]float64{{0, 0}}, Speed: -1},
		"phase of one":   {ID: "x", Kind: KindTrain, Path: [][2]float64{{0, 0}}, PhaseOffset: 1},
		"unknown kind":   {ID: "x", Kind: "SUBMARINE", Path: [][2]float64{{0, 0}}},
		"unknown loop":   {ID: "x", Kind: KindTrain, Path: [][2]float64{{0, 0}}, Loop: "bounce"},
		"latitude":       {ID: "x", Kind: KindTrain, Path: [][2]float64{{91, 0}}},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(1).Add(def)
			assert.ErrorIs(t, err, ErrInvalidEntity)
		})
	}
}

func TestRegistry_DuplicateAndGeneratedIDs(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Add(line("dup", KindFlight, 0, ""))
	require.NoError(t, err)
	_, err = r.Add(line("dup", KindFlight, 0, ""))
	assert.ErrorIs(t, err, ErrInvalidEntity)

	id, err := r.Add(line("", KindStorm, 0, ""))
	require.NoError(t, err)
	assert.Contains(t, id, "storm-")
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_DefaultLoopPolicyByKind(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.AddAll([]Definition{line("f", KindFlight, 0, ""), line("t", KindTrain, 0, ""), line("s", KindStorm, 0, "")})
	require.NoError(t, err)
	got := map[string]LoopPolicy{}
	for s := range r.Query(Filter{}) {
		got[s.ID] = s.Loop
	}
	assert.Equal(t, map[string]LoopPolicy{"f": LoopHold, "t": LoopWrap, "s": LoopWrap}, got)
}

func TestRegistry_QueryFilters(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.AddAll([]Definition{
		{ID: "vienna", Kind: KindFlight, Path: [][2]float64{{48.2, 16.4}}},
		{ID: "berlin", Kind: KindTrain, Path: [][2]float64{{52.5, 13.4}}},
		{ID: "front", Kind: KindStorm, Path: [][2]float64{{48.3, 16.5}}},
	})
	require.NoError(t, err)

	trains := r.Snapshots(Filter{Kinds: []Kind{KindTrain}})
	require.Len(t, trains, 1)
	assert.Equal(t, "berlin", trains[0].ID)

	box, err := BoundingBox(47, 15, 49, 17)
	require.NoError(t, err)
	var ids []string
	for s := range r.Query(Filter{Region: box}) {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"vienna", "front"}, ids)

	near := r.Snapshots(Filter{Kinds: []Kind{KindStorm, KindFlight}, Region: Radius(Waypoint{Lat: 48.2, Lon: 16.4}, 5000)})
	require.Len(t, near, 1)
	assert.Equal(t, "vienna", near[0].ID)
}

func TestRegistry_QueryStopsEarly(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.AddAll([]Definition{line("a", KindTrain, 0, ""), line("b", KindTrain, 0, ""), line("c", KindTrain, 0, "")})
	require.NoError(t, err)
	n := 0
	for range r.Query(Filter{}) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestRegistry_SnapshotsAreCopies(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Add(line("fl", KindFlight, 0.1, LoopHold))
	require.NoError(t, err)
	snap, err := r.Snapshot("fl")
	require.NoError(t, err)
	r.Advance(5 * time.Second)
	assert.Equal(t, 0.0, snap.Progress)
	now, _ := r.Snapshot("fl")
	assert.InDelta(t, 0.5, now.Progress, 1e-12)
}

func TestRegistry_ProjectsToWebMercator(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Add(Definition{ID: "null-island", Kind: KindStorm, Path: [][2]float64{{0, 0}}})
	require.NoError(t, err)
	snap, err := r.Snapshot("null-island")
	require.NoError(t, err)
	assert.InDelta(t, 0, snap.Projected.X, 1e-6)
	assert.InDelta(t, 0, snap.Projected.Y, 1e-6)

	_, err = r.Add(Definition{ID: "east", Kind: KindStorm, Path: [][2]float64{{0, 90}}})
	require.NoError(t, err)
	east, _ := r.Snapshot("east")
	assert.InDelta(t, 10018754.17, east.Projected.X, 1)
}

func TestRegistry_WobbleIsDeterministic(t *testing.T) {
	def := Definition{ID: "cell", Kind: KindStorm, Path: [][2]float64{{10, 10}, {12, 14}}, Speed: 0.01, Wobble: 0.5}
	a, b := NewRegistry(42), NewRegistry(42)
	_, err := a.Add(def)
	require.NoError(t, err)
	_, err = b.Add(def)
	require.NoError(t, err)
	a.Advance(17 * time.Second)
	b.Advance(17 * time.Second)
	pa, _ := a.PositionOf("cell")
	pb, _ := b.PositionOf("cell")
	assert.Equal(t, pa, pb)
}

func TestRegistry_PolarWobbleStaysOnTheMap(t *testing.T) {
	r := NewRegistry(3)
	_, err := r.AddAll([]Definition{
		{ID: "aurora", Kind: KindStorm, Path: [][2]float64{{89.9, 179.9}, {-89.9, -179.9}}, Speed: 0.001, Wobble: 20},
		{ID: "pole", Kind: KindStorm, Path: [][2]float64{{90, 0}}},
	})
	require.NoError(t, err)

	for range 50 {
		r.Advance(7 * time.Second)
		for _, s := range r.Snapshots(Filter{}) {
			assert.LessOrEqual(t, math.Abs(s.Position.Lat), 90.0, s.ID)
			assert.LessOrEqual(t, math.Abs(s.Position.Lon), 180.0, s.ID)
			assert.False(t, math.IsInf(s.Projected.Y, 0) || math.IsNaN(s.Projected.Y), s.ID)
			assert.False(t, math.IsInf(s.Projected.X, 0) || math.IsNaN(s.Projected.X), s.ID)
			_, err := json.Marshal(s)
			require.NoError(t, err, s.ID)
		}
	}
}
