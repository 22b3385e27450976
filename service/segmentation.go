package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/namanlalitnyu/RapidEdit/config"
	"github.com/namanlalitnyu/RapidEdit/model"
)

// SegmentationClient SAM自动掩码生成后端的HTTP客户端
// 后端加载失败必须显式报错，空掩码列表是"未找到区域"的合法结果
type SegmentationClient struct {
	httpClient *http.Client
	endpoint   string
	cfg        *config.SegmentationConfig
}

func NewSegmentationClient(cfg *config.SegmentationConfig) *SegmentationClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &SegmentationClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		cfg:        cfg,
	}
}

type segmentRequest struct {
	Image                      string  `json:"image"`
	PointsPerSide              int     `json:"points_per_side"`
	PredIouThresh              float64 `json:"pred_iou_thresh"`
	StabilityScoreThresh       float64 `json:"stability_score_thresh"`
	CropNLayers                int     `json:"crop_n_layers"`
	CropNPointsDownscaleFactor int     `json:"crop_n_points_downscale_factor"`
	MinMaskRegionArea          int     `json:"min_mask_region_area"`
}

type segmentResponse struct {
	Masks   []model.SegmentMask `json:"masks"`
	Message string              `json:"message,omitempty"`
}

// Generate 调用分割后端，返回发现顺序的原始区域列表
func (c *SegmentationClient) Generate(ctx context.Context, imageData []byte) ([]model.SegmentMask, error) {
	payload := segmentRequest{
		Image:                      base64.StdEncoding.EncodeToString(imageData),
		PointsPerSide:              c.cfg.PointsPerSide,
		PredIouThresh:              c.cfg.PredIouThresh,
		StabilityScoreThresh:       c.cfg.StabilityScoreThresh,
		CropNLayers:                c.cfg.CropNLayers,
		CropNPointsDownscaleFactor: c.cfg.CropNPointsDownscaleFactor,
		MinMaskRegionArea:          c.cfg.MinMaskRegionArea,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/segment", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("segmentation backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("segmentation backend returned %d: %s", resp.StatusCode, string(data))
	}

	var result segmentResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode segmentation response: %w", err)
	}

	return result.Masks, nil
}
