package model

import "testing"

func populatedSession() *SessionState {
	return &SessionState{
		ImagePath:      "uploads/cat.jpg",
		Prompt:         "a dog",
		NegativePrompt: "blurry",
		OverlayPath:    "uploads/mask_overlay.png",
		Masks: []CandidateMask{
			{Width: 2, Height: 2, Bits: make([]bool, 4), Area: 600, Score: 0.95},
		},
		StitchedPath: "uploads/stitched_mask.png",
		Selected:     []int{1},
		ResultPath:   "uploads/result.png",
	}
}

func TestSessionReset(t *testing.T) {
	s := populatedSession()
	s.Reset()

	if s.ImagePath != "" || s.Prompt != "" || s.NegativePrompt != "" ||
		s.OverlayPath != "" || s.Masks != nil || s.StitchedPath != "" ||
		s.Selected != nil || s.ResultPath != "" {
		t.Fatalf("session not fully reset: %+v", s)
	}
	if s.HasMasks() {
		t.Fatal("reset session should have no masks")
	}
}

func TestSessionClearMasks(t *testing.T) {
	s := populatedSession()
	s.ClearMasks()

	if s.Masks != nil || s.OverlayPath != "" || s.StitchedPath != "" || s.Selected != nil {
		t.Fatalf("mask state not cleared: %+v", s)
	}
	if s.ImagePath == "" || s.Prompt == "" || s.ResultPath == "" {
		t.Fatal("non-mask state must survive ClearMasks")
	}
}
