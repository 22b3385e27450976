package model

// Stage 工作流阶段，持久化在URL查询参数中
type Stage string

const (
	StageUpload        Stage = "upload"
	StageMaskSelection Stage = "mask_selection"
	StageCheck         Stage = "check"
	StageResult        Stage = "result"
)

var validStages = map[Stage]bool{
	StageUpload:        true,
	StageMaskSelection: true,
	StageCheck:         true,
	StageResult:        true,
}

// ParseStage 解析阶段标识，缺失或无法识别时回退到上传阶段
func ParseStage(s string) Stage {
	stage := Stage(s)
	if !validStages[stage] {
		return StageUpload
	}
	return stage
}

// String 返回查询参数中使用的标识
func (s Stage) String() string {
	return string(s)
}

// Template 返回该阶段对应的视图模板名
func (s Stage) Template() string {
	return string(s) + ".html"
}
