package geo

import (
	"math"
	"testing"

	"github.com/example/courier-client/internal/models"
)

func TestHaversineZero(t *testing.T) {
	if d := Haversine(27.7172, 85.3240, 27.7172, 85.3240); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineOneDegreeLongitudeAtEquator(t *testing.T) {
	d := Haversine(0, 0, 0, 1)
	// one degree of longitude at the equator is ~111.19 km
	if math.Abs(d-111.19)/111.19 > 0.005 {
		t.Fatalf("expected ~111.19 km, got %f", d)
	}
}

func TestIndexNearbySkipsOfflineAndSorts(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(models.Rider{ID: "far", Loc: models.Coord{Lat: 1, Lng: 1}, Online: true})
	idx.Upsert(models.Rider{ID: "near", Loc: models.Coord{Lat: 0.01, Lng: 0.01}, Online: true})
	idx.Upsert(models.Rider{ID: "offline", Loc: models.Coord{Lat: 0, Lng: 0}, Online: false})

	got := idx.Nearby(0, 0, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 riders, got %d", len(got))
	}
	if got[0].ID != "near" || got[1].ID != "far" {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}
