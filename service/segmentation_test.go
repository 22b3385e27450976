package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/namanlalitnyu/RapidEdit/config"
	"github.com/namanlalitnyu/RapidEdit/model"
)

func segConfig(endpoint string) *config.SegmentationConfig {
	return &config.SegmentationConfig{
		Endpoint:                   endpoint,
		Timeout:                    5 * time.Second,
		PointsPerSide:              32,
		PredIouThresh:              0.9,
		StabilityScoreThresh:       0.9,
		CropNLayers:                1,
		CropNPointsDownscaleFactor: 2,
		MinMaskRegionArea:          500,
		MinArea:                    500,
		MaxConcurrent:              1,
		QueueTimeout:               5,
	}
}

func TestSegmentationClientGenerate(t *testing.T) {
	imageData := []byte("fake-image-bytes")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/segment" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var payload segmentRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if payload.Image != base64.StdEncoding.EncodeToString(imageData) {
			t.Fatal("image payload mismatch")
		}
		if payload.PointsPerSide != 32 {
			t.Fatalf("unexpected points_per_side: %d", payload.PointsPerSide)
		}
		if payload.PredIouThresh != 0.9 || payload.StabilityScoreThresh != 0.9 {
			t.Fatalf("unexpected thresholds: %+v", payload)
		}
		if payload.CropNLayers != 1 || payload.CropNPointsDownscaleFactor != 2 {
			t.Fatalf("unexpected crop params: %+v", payload)
		}
		if payload.MinMaskRegionArea != 500 {
			t.Fatalf("unexpected min_mask_region_area: %d", payload.MinMaskRegionArea)
		}

		resp := segmentResponse{
			Masks: []model.SegmentMask{{Mask: "bWFzaw==", Area: 1234, Score: 0.93}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	client := NewSegmentationClient(segConfig(ts.URL))
	masks, err := client.Generate(context.Background(), imageData)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(masks) != 1 {
		t.Fatalf("want 1 mask, got %d", len(masks))
	}
	if masks[0].Area != 1234 || masks[0].Score != 0.93 {
		t.Fatalf("mask fields mismatch: %+v", masks[0])
	}
}

func TestSegmentationClientEmptyResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(segmentResponse{})
	}))
	defer ts.Close()

	client := NewSegmentationClient(segConfig(ts.URL))
	masks, err := client.Generate(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("empty result must not be an error: %v", err)
	}
	if len(masks) != 0 {
		t.Fatalf("want 0 masks, got %d", len(masks))
	}
}

func TestSegmentationClientBackendFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model checkpoint missing", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewSegmentationClient(segConfig(ts.URL))
	if _, err := client.Generate(context.Background(), []byte("img")); err == nil {
		t.Fatal("backend failure must propagate as an error")
	}
}

func TestSegmentationClientUnreachable(t *testing.T) {
	client := NewSegmentationClient(segConfig("http://127.0.0.1:1"))
	if _, err := client.Generate(context.Background(), []byte("img")); err == nil {
		t.Fatal("unreachable backend must propagate as an error")
	}
}
