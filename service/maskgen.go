package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/namanlalitnyu/RapidEdit/config"
	"github.com/namanlalitnyu/RapidEdit/model"
	"github.com/namanlalitnyu/RapidEdit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// OverlayFilename 掩码叠加图的固定文件名，每次生成覆盖写入
const OverlayFilename = "mask_overlay.png"

// MaskGenService 负责候选掩码生成与叠加图渲染
type MaskGenService struct {
	cfg          *config.SegmentationConfig
	uploadDir    string
	semaphore    chan struct{}
	queueTimeout time.Duration
	client       *SegmentationClient
	redisService *RedisService
}

func NewMaskGenService(cfg *config.SegmentationConfig, uploadDir string, client *SegmentationClient, redis *RedisService) *MaskGenService {
	return &MaskGenService{
		cfg:          cfg,
		uploadDir:    uploadDir,
		semaphore:    make(chan struct{}, cfg.MaxConcurrent),
		queueTimeout: time.Duration(cfg.QueueTimeout) * time.Second,
		client:       client,
		redisService: redis,
	}
}

// Generate 生成候选掩码并渲染编号叠加图
// 返回按发现顺序排列的掩码列表和叠加图路径，展示序号为位置+1
func (s *MaskGenService) Generate(imagePath string) ([]model.CandidateMask, string, error) {
	// 并发控制
	ctx, cancel := context.WithTimeout(context.Background(), s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-ctx.Done():
		return nil, "", fmt.Errorf("处理队列已满，请稍后重试")
	}

	startTime := time.Now()

	// 读取图片
	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		return nil, "", fmt.Errorf("failed to read image: %s", imagePath)
	}
	defer img.Close()

	width := img.Cols()
	height := img.Rows()

	utils.Logger.Info("generating masks",
		zap.String("image", imagePath),
		zap.Int("width", width),
		zap.Int("height", height))

	raw, err := s.segment(imagePath, width, height)
	if err != nil {
		return nil, "", err
	}

	// 按面积过滤，丢弃噪点区域
	filtered := filterMasks(raw, s.cfg.MinArea)

	masks := make([]model.CandidateMask, 0, len(filtered))
	for _, sm := range filtered {
		m, err := decodeMask(sm, width, height)
		if err != nil {
			return nil, "", err
		}
		masks = append(masks, m)
	}

	overlayPath, err := s.renderOverlay(&img, masks)
	if err != nil {
		return nil, "", err
	}

	utils.Logger.Info("masks generated",
		zap.Int("raw_count", len(raw)),
		zap.Int("kept_count", len(masks)),
		zap.Duration("duration", time.Since(startTime)))

	return masks, overlayPath, nil
}

// segment 调用分割后端，结果按图片MD5走Redis缓存
func (s *MaskGenService) segment(imagePath string, width, height int) ([]model.SegmentMask, error) {
	md5, err := utils.FileMD5(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash image: %w", err)
	}

	ctx := context.Background()
	cached, err := s.redisService.GetSegmentResult(ctx, md5)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	}
	if cached != nil {
		utils.Logger.Info("segmentation cache hit", zap.String("md5", md5))
		return cached.Masks, nil
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Generate(ctx, data)
	if err != nil {
		return nil, err
	}

	result := &model.SegmentResult{
		MD5:       md5,
		Width:     width,
		Height:    height,
		Masks:     raw,
		Timestamp: time.Now().Unix(),
	}
	if err := s.redisService.SetSegmentResult(ctx, md5, result); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}

	return raw, nil
}

// renderOverlay 将每个掩码以随机颜色画入原图副本，并在质心处压印编号
// 编号先画深色轮廓再画浅色填充，保证深浅背景下都可读
func (s *MaskGenService) renderOverlay(img *gocv.Mat, masks []model.CandidateMask) (string, error) {
	overlay := img.Clone()
	defer overlay.Close()

	for i := range masks {
		m := &masks[i]

		// 每个区域独立随机取色，不做去重
		b := uint8(rand.Intn(256))
		g := uint8(rand.Intn(256))
		r := uint8(rand.Intn(256))

		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				if m.At(x, y) {
					overlay.SetUCharAt(y, x*3, b)
					overlay.SetUCharAt(y, x*3+1, g)
					overlay.SetUCharAt(y, x*3+2, r)
				}
			}
		}

		cx, cy := maskCentroid(m)
		label := strconv.Itoa(i + 1)
		gocv.PutText(&overlay, label, image.Pt(cx, cy), gocv.FontHersheyDuplex, 0.5,
			color.RGBA{R: 0, G: 0, B: 0, A: 255}, 2)
		gocv.PutText(&overlay, label, image.Pt(cx, cy), gocv.FontHersheyDuplex, 0.5,
			color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1)
	}

	overlayPath := filepath.Join(s.uploadDir, OverlayFilename)
	if ok := gocv.IMWrite(overlayPath, overlay); !ok {
		return "", fmt.Errorf("failed to write overlay image: %s", overlayPath)
	}

	return overlayPath, nil
}

// filterMasks 只保留面积大于阈值的区域，保持发现顺序
func filterMasks(masks []model.SegmentMask, minArea int) []model.SegmentMask {
	filtered := make([]model.SegmentMask, 0, len(masks))
	for _, m := range masks {
		if m.Area > minArea {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// maskCentroid 计算掩码真值像素的质心
func maskCentroid(m *model.CandidateMask) (int, int) {
	var sumX, sumY, count int
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				sumX += x
				sumY += y
				count++
			}
		}
	}
	if count == 0 {
		return 0, 0
	}
	return sumX / count, sumY / count
}

// decodeMask 将后端返回的base64 PNG掩码解码为布尔像素网格
func decodeMask(sm model.SegmentMask, width, height int) (model.CandidateMask, error) {
	data, err := base64.StdEncoding.DecodeString(sm.Mask)
	if err != nil {
		return model.CandidateMask{}, fmt.Errorf("failed to decode mask payload: %w", err)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return model.CandidateMask{}, fmt.Errorf("failed to decode mask image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return model.CandidateMask{}, fmt.Errorf("mask image is empty")
	}
	if mat.Cols() != width || mat.Rows() != height {
		return model.CandidateMask{}, fmt.Errorf("mask size %dx%d does not match image %dx%d",
			mat.Cols(), mat.Rows(), width, height)
	}

	bits := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			bits[y*width+x] = mat.GetUCharAt(y, x) > 127
		}
	}

	return model.CandidateMask{
		Width:  width,
		Height: height,
		Bits:   bits,
		Area:   sm.Area,
		Score:  sm.Score,
	}, nil
}
