package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/namanlalitnyu/RapidEdit/config"
	"github.com/namanlalitnyu/RapidEdit/utils"
	"go.uber.org/zap"
)

// ResultFilename 生成结果的固定文件名，每次生成覆盖写入
const ResultFilename = "result.png"

// InpaintService SDXL修复后端的HTTP客户端
// 掩码约定：白色(255)像素重绘，黑色(0)像素保持原样，调用方负责遵守
// 失败不重试，调用方保持会话状态不变以便用户调整后重试
type InpaintService struct {
	cfg          *config.InpaintingConfig
	uploadDir    string
	httpClient   *http.Client
	semaphore    chan struct{}
	queueTimeout time.Duration
}

func NewInpaintService(cfg *config.InpaintingConfig, uploadDir string) *InpaintService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &InpaintService{
		cfg:          cfg,
		uploadDir:    uploadDir,
		httpClient:   &http.Client{Timeout: timeout},
		semaphore:    make(chan struct{}, cfg.MaxConcurrent),
		queueTimeout: time.Duration(cfg.QueueTimeout) * time.Second,
	}
}

type inpaintRequest struct {
	Model             string  `json:"model"`
	LoraWeights       string  `json:"lora_weights"`
	Image             string  `json:"image"`
	Mask              string  `json:"mask"`
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Seed              int64   `json:"seed"`
}

type inpaintResponse struct {
	Image   string `json:"image"`
	Message string `json:"message,omitempty"`
}

// Run 以固定采样配置调用修复后端，写出生成图片并返回其路径
func (s *InpaintService) Run(imagePath, maskPath, prompt, negativePrompt string) (string, error) {
	// 并发控制
	ctx, cancel := context.WithTimeout(context.Background(), s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-ctx.Done():
		return "", fmt.Errorf("处理队列已满，请稍后重试")
	}

	startTime := time.Now()

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read input image: %w", err)
	}
	maskData, err := os.ReadFile(maskPath)
	if err != nil {
		return "", fmt.Errorf("failed to read mask image: %w", err)
	}

	payload := inpaintRequest{
		Model:             s.cfg.Model,
		LoraWeights:       s.cfg.LoraWeights,
		Image:             base64.StdEncoding.EncodeToString(imageData),
		Mask:              base64.StdEncoding.EncodeToString(maskData),
		Prompt:            prompt,
		NegativePrompt:    negativePrompt,
		NumInferenceSteps: s.cfg.NumInferenceSteps,
		GuidanceScale:     s.cfg.GuidanceScale,
		Seed:              s.cfg.Seed,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	utils.Logger.Info("running inpainting",
		zap.String("image", imagePath),
		zap.String("mask", maskPath),
		zap.Int("steps", s.cfg.NumInferenceSteps),
		zap.Float64("guidance_scale", s.cfg.GuidanceScale),
		zap.Int64("seed", s.cfg.Seed))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		s.cfg.Endpoint+"/inpaint", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inpainting backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inpainting backend returned %d: %s", resp.StatusCode, string(data))
	}

	var result inpaintResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("failed to decode inpainting response: %w", err)
	}

	outputData, err := base64.StdEncoding.DecodeString(result.Image)
	if err != nil {
		return "", fmt.Errorf("failed to decode output image: %w", err)
	}

	outputPath := filepath.Join(s.uploadDir, ResultFilename)
	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		return "", fmt.Errorf("failed to write output image: %w", err)
	}

	utils.Logger.Info("inpainting finished",
		zap.String("output", outputPath),
		zap.Duration("duration", time.Since(startTime)))

	return outputPath, nil
}
