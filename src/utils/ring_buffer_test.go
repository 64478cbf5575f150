package utils_test

import (
	"testing"

	"cryptofolio/src/models"
	"cryptofolio/src/utils"
)

func tick(ts int64) models.MPriceUpdate {
	return models.MPriceUpdate{Symbol: "BTCUSDT", Price: float64(ts), Timestamp: ts}
}

// -----------------------------------------------------------------------------

func TestPriceRing_FillAndWrap(t *testing.T) {
	rb := utils.NewPriceRing(3)
	if rb.Size() != 0 {
		t.Errorf("empty ring size %d", rb.Size())
	}

	rb.Append(tick(1))
	rb.Append(tick(2))
	if got := rb.GetAll(); len(got) != 2 || got[0].Timestamp != 1 || got[1].Timestamp != 2 {
		t.Errorf("partial ring %+v", got)
	}

	rb.Append(tick(3))
	rb.Append(tick(4)) // overwrites the oldest

	if rb.Size() != 3 {
		t.Errorf("full ring size %d, want the capacity 3", rb.Size())
	}
	got := rb.GetAll()
	if len(got) != 3 || got[0].Timestamp != 2 || got[2].Timestamp != 4 {
		t.Errorf("wrapped ring %+v, want [2 3 4]", got)
	}
}

func TestPriceRing_GetLatest(t *testing.T) {
	rb := utils.NewPriceRing(5)
	for ts := int64(1); ts <= 7; ts++ {
		rb.Append(tick(ts))
	}

	latest := rb.GetLatest(3)
	if len(latest) != 3 || latest[0].Timestamp != 5 || latest[2].Timestamp != 7 {
		t.Errorf("latest 3 = %+v, want [5 6 7] oldest first", latest)
	}

	// Asking for more than stored returns everything.
	all := rb.GetLatest(99)
	if len(all) != 5 || all[0].Timestamp != 3 {
		t.Errorf("latest 99 = %+v, want the whole ring", all)
	}

	if got := rb.GetLatest(0); len(got) != 0 {
		t.Errorf("latest 0 = %+v, want empty", got)
	}
}

func TestPriceRing_DefaultCapacity(t *testing.T) {
	rb := utils.NewPriceRing(0)
	for ts := int64(1); ts <= 200; ts++ {
		rb.Append(tick(ts))
	}
	if rb.Size() != 120 {
		t.Errorf("size %d, want the default capacity 120", rb.Size())
	}
}
