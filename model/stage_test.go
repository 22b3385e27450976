package model

import "testing"

func TestParseStage(t *testing.T) {
	tests := []struct {
		input string
		want  Stage
	}{
		{"upload", StageUpload},
		{"mask_selection", StageMaskSelection},
		{"check", StageCheck},
		{"result", StageResult},
		{"", StageUpload},
		{"bogus", StageUpload},
		{"Upload", StageUpload},
		{"RESULT", StageUpload},
	}

	for _, tt := range tests {
		if got := ParseStage(tt.input); got != tt.want {
			t.Errorf("ParseStage(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStageTemplate(t *testing.T) {
	if got := StageMaskSelection.Template(); got != "mask_selection.html" {
		t.Fatalf("unexpected template name: %s", got)
	}
}
