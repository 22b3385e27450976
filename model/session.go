package model

// CandidateMask 单个候选区域掩码，生成后不可变
// Bits 为行优先的布尔像素网格，展示序号为列表位置+1
type CandidateMask struct {
	Width  int
	Height int
	Bits   []bool
	Area   int
	Score  float64
}

// At 返回掩码在 (x, y) 处的值
func (m *CandidateMask) At(x, y int) bool {
	return m.Bits[y*m.Width+x]
}

// SessionState 会话内的工作流状态，随阶段推进逐步填充
type SessionState struct {
	ImagePath      string
	Prompt         string
	NegativePrompt string
	OverlayPath    string
	Masks          []CandidateMask
	StitchedPath   string
	Selected       []int
	ResultPath     string
}

// Reset 重置所有字段，重新开始流程时调用
func (s *SessionState) Reset() {
	s.ImagePath = ""
	s.Prompt = ""
	s.NegativePrompt = ""
	s.OverlayPath = ""
	s.Masks = nil
	s.StitchedPath = ""
	s.Selected = nil
	s.ResultPath = ""
}

// HasMasks 候选掩码是否已生成
func (s *SessionState) HasMasks() bool {
	return s.Masks != nil
}

// ClearMasks 清除与当前输入图片绑定的掩码状态
// 换用新的输入图片后旧掩码不再有效
func (s *SessionState) ClearMasks() {
	s.OverlayPath = ""
	s.Masks = nil
	s.StitchedPath = ""
	s.Selected = nil
}
