package model

// SegmentMask 分割后端返回的单个区域，掩码为base64编码的PNG
type SegmentMask struct {
	Mask  string  `json:"mask"`
	Area  int     `json:"area"`
	Score float64 `json:"score"`
}

// SegmentResult 分割结果，按图片MD5缓存
type SegmentResult struct {
	MD5       string        `json:"md5"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Masks     []SegmentMask `json:"masks"`
	Timestamp int64         `json:"timestamp"`
}
