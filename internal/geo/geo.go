package geo

import (
	"math"
	"sync"
	"time"

	"github.com/example/courier-client/internal/models"
)

// Geo is the minimal interface the simulator needs to answer nearby queries.
type Geo interface {
	Nearby(lat, lng float64, limit int) []models.Rider
	Upsert(r models.Rider)
}

type Index struct {
	mu     sync.RWMutex
	riders map[string]models.Rider
}

func NewIndex() *Index {
	return &Index{riders: make(map[string]models.Rider)}
}

func (g *Index) Upsert(r models.Rider) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r.Updated = time.Now()
	g.riders[r.ID] = r
}

// naive scan; fine for the simulator's rider counts
func (g *Index) Nearby(lat, lng float64, limit int) []models.Rider {
	g.mu.RLock()
	defer g.mu.RUnlock()
	type pair struct {
		r    models.Rider
		dist float64
	}
	arr := make([]pair, 0, len(g.riders))
	for _, r := range g.riders {
		if !r.Online {
			continue
		}
		arr = append(arr, pair{r, Haversine(lat, lng, r.Loc.Lat, r.Loc.Lng)})
	}
	n := limit
	if n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]models.Rider, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].r)
	}
	return out
}

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const R = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
