package naming

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"geocluster/internal/cluster"
	"geocluster/internal/geo"
	"geocluster/internal/logging"
	"geocluster/internal/photo"
	"geocluster/internal/services/geocode"
)

type fakeReverser struct {
	mu     sync.Mutex
	places map[geo.Coordinate]geocode.Place
	calls  map[geo.Coordinate]int
}

func newFakeReverser(places map[geo.Coordinate]geocode.Place) *fakeReverser {
	return &fakeReverser{places: places, calls: make(map[geo.Coordinate]int)}
}

func (f *fakeReverser) Reverse(_ context.Context, coord geo.Coordinate) (geocode.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[coord]++
	place, ok := f.places[coord]
	if !ok {
		return geocode.Place{}, errors.New("lookup failed")
	}
	return place, nil
}

func (f *fakeReverser) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

var (
	lisbon = geo.New(38.7223, -9.1393)
	porto  = geo.New(41.1579, -8.6291)
	faro   = geo.New(37.0194, -7.9304)
)

func buildSet(t *testing.T, coords ...geo.Coordinate) cluster.Set {
	t.Helper()
	items := make([]photo.Item, 0, len(coords)+1)
	for i, c := range coords {
		items = append(items, photo.New(string(rune('a'+i))+".jpg", photo.WithCoordinate(c)))
	}
	items = append(items, photo.New("nowhere.jpg"))
	set, err := cluster.Assign(context.Background(), items, 100, logging.NewNop())
	require.NoError(t, err)
	require.Len(t, set.Clusters, len(coords))
	return set
}

func TestLiteralNamer(t *testing.T) {
	set := buildSet(t, geo.New(-33.8688, 151.2093))
	namer := LiteralNamer{}
	require.Equal(t, "-33.8688_151.2093", namer.Name(context.Background(), set.Clusters[0]))
	require.Equal(t, Unclassified, namer.Name(context.Background(), set.Unclassified))
}

func TestGeocodingNamerUsesPlaceLabel(t *testing.T) {
	set := buildSet(t, lisbon, porto)
	client := newFakeReverser(map[geo.Coordinate]geocode.Place{
		lisbon: {Address: geocode.Address{City: "Lisboa", Country: "Portugal"}},
		porto:  {Address: geocode.Address{City: "Porto", Country: "Portugal"}},
	})
	namer := NewGeocodingNamer(client, 0, logging.NewNop())

	names := NameAll(context.Background(), namer, set.All(), 4)
	require.Equal(t, []string{"Lisboa, Portugal", "Porto, Portugal", Unclassified}, names)
}

func TestGeocodingNamerLooksUpEachClusterOnce(t *testing.T) {
	set := buildSet(t, lisbon, porto)
	client := newFakeReverser(map[geo.Coordinate]geocode.Place{
		lisbon: {Address: geocode.Address{City: "Lisboa", Country: "Portugal"}},
	})
	namer := NewGeocodingNamer(client, 0, logging.NewNop())

	for range 3 {
		for _, c := range set.All() {
			namer.Name(context.Background(), c)
		}
	}
	require.Equal(t, 1, client.calls[lisbon])
	require.Equal(t, 1, client.calls[porto], "failed lookups are cached too")
	require.Equal(t, 2, client.total(), "unclassified bucket is never looked up")
}

func TestGeocodingNamerFallsBackPerCluster(t *testing.T) {
	set := buildSet(t, lisbon, porto, faro)
	client := newFakeReverser(map[geo.Coordinate]geocode.Place{
		lisbon: {Address: geocode.Address{City: "Lisboa", Country: "Portugal"}},
		faro:   {DisplayName: ""},
	})
	namer := NewGeocodingNamer(client, 0, logging.NewNop())

	names := NameAll(context.Background(), namer, set.Clusters, 2)
	require.Equal(t, []string{"Lisboa, Portugal", "41.1579_-8.6291", "37.0194_-7.9304"}, names)
}

func TestNameAllDeduplicatesInInputOrder(t *testing.T) {
	set := buildSet(t, lisbon, porto, faro)
	same := geocode.Place{Address: geocode.Address{Country: "Portugal"}}
	client := newFakeReverser(map[geo.Coordinate]geocode.Place{
		lisbon: same,
		porto:  same,
		faro:   {Address: geocode.Address{Country: "portugal"}},
	})
	namer := NewGeocodingNamer(client, 0, logging.NewNop())

	names := NameAll(context.Background(), namer, set.All(), 3)
	require.Equal(t, []string{"Portugal", "Portugal_2", "portugal_3", Unclassified}, names)
}

func TestNameAllReservesUnclassified(t *testing.T) {
	set := buildSet(t, lisbon)
	client := newFakeReverser(map[geo.Coordinate]geocode.Place{
		lisbon: {DisplayName: "UNCLASSIFIED"},
	})
	namer := NewGeocodingNamer(client, 0, logging.NewNop())

	names := NameAll(context.Background(), namer, set.All(), 1)
	require.Equal(t, []string{Unclassified + "_2", Unclassified}, names)
}

func TestGeocodingNamerPassesDeadline(t *testing.T) {
	set := buildSet(t, lisbon)
	var sawDeadline bool
	client := reverserFunc(func(ctx context.Context, _ geo.Coordinate) (geocode.Place, error) {
		_, sawDeadline = ctx.Deadline()
		return geocode.Place{Address: geocode.Address{City: "Lisboa"}}, nil
	})
	namer := NewGeocodingNamer(client, 5*time.Second, logging.NewNop())
	require.Equal(t, "Lisboa", namer.Name(context.Background(), set.Clusters[0]))
	require.True(t, sawDeadline)
}

type reverserFunc func(context.Context, geo.Coordinate) (geocode.Place, error)

func (f reverserFunc) Reverse(ctx context.Context, c geo.Coordinate) (geocode.Place, error) {
	return f(ctx, c)
}
