package service

import (
	"testing"

	"github.com/namanlalitnyu/RapidEdit/model"
)

func TestFilterMasks(t *testing.T) {
	raw := []model.SegmentMask{
		{Area: 501, Score: 0.91},
		{Area: 500, Score: 0.99},
		{Area: 12, Score: 0.95},
		{Area: 9000, Score: 0.92},
	}

	filtered := filterMasks(raw, 500)

	if len(filtered) != 2 {
		t.Fatalf("want 2 masks kept, got %d", len(filtered))
	}
	// 保持发现顺序
	if filtered[0].Area != 501 || filtered[1].Area != 9000 {
		t.Fatalf("discovery order not preserved: %+v", filtered)
	}
}

func TestFilterMasksAllBelowThreshold(t *testing.T) {
	raw := []model.SegmentMask{{Area: 1}, {Area: 499}, {Area: 500}}

	if filtered := filterMasks(raw, 500); len(filtered) != 0 {
		t.Fatalf("want no masks kept, got %d", len(filtered))
	}
}

func TestMaskCentroid(t *testing.T) {
	m := boolMask(5, 5, 1*5+1, 1*5+3, 3*5+1, 3*5+3) // (1,1) (3,1) (1,3) (3,3)

	cx, cy := maskCentroid(&m)
	if cx != 2 || cy != 2 {
		t.Fatalf("centroid = (%d, %d), want (2, 2)", cx, cy)
	}
}

func TestMaskCentroidEmpty(t *testing.T) {
	m := boolMask(4, 4)

	cx, cy := maskCentroid(&m)
	if cx != 0 || cy != 0 {
		t.Fatalf("empty mask centroid = (%d, %d), want (0, 0)", cx, cy)
	}
}
