package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/namanlalitnyu/RapidEdit/model"
	"github.com/namanlalitnyu/RapidEdit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// StitchedFilename 拼接掩码的固定文件名，每次拼接覆盖写入
const StitchedFilename = "stitched_mask.png"

var (
	// ErrBadSelection 选择项无法解析为整数
	ErrBadSelection = errors.New("invalid mask selection")
	// ErrIndexOutOfRange 选择的序号超出候选掩码范围
	ErrIndexOutOfRange = errors.New("mask index out of range")
	// ErrMaskMismatch 候选掩码与当前图片尺寸不一致，掩码属于上一张输入图
	ErrMaskMismatch = errors.New("mask does not match image dimensions")
)

// Compositor 负责把选中的候选掩码合并为单张二值掩码
type Compositor struct {
	uploadDir string
}

func NewCompositor(uploadDir string) *Compositor {
	return &Compositor{uploadDir: uploadDir}
}

// ParseSelection 把用户输入的自由文本解析为校验过的1-based序号
// 条目允许带空白，空条目忽略，重复条目折叠；序号从1开始，count为候选掩码数
func ParseSelection(entries []string, count int) ([]int, error) {
	seen := make(map[int]bool)
	indices := make([]int, 0, len(entries))

	for _, entry := range entries {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}

		idx, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadSelection, entry)
		}
		if idx < 1 || idx > count {
			return nil, fmt.Errorf("%w: %d (valid: 1-%d)", ErrIndexOutOfRange, idx, count)
		}

		if !seen[idx] {
			seen[idx] = true
			indices = append(indices, idx)
		}
	}

	return indices, nil
}

// Union 对选中掩码做逐像素逻辑或，空选择返回全假网格
// 结果与选择顺序无关
func Union(masks []model.CandidateMask, indices []int, width, height int) ([]bool, error) {
	combined := make([]bool, width*height)

	for _, idx := range indices {
		if idx < 1 || idx > len(masks) {
			return nil, fmt.Errorf("%w: %d (valid: 1-%d)", ErrIndexOutOfRange, idx, len(masks))
		}

		m := &masks[idx-1]
		if len(m.Bits) != width*height {
			return nil, fmt.Errorf("%w: mask %d is %dx%d, image is %dx%d",
				ErrMaskMismatch, idx, m.Width, m.Height, width, height)
		}
		for i, v := range m.Bits {
			if v {
				combined[i] = true
			}
		}
	}

	return combined, nil
}

// Stitch 合并选中掩码并写出0/255二值掩码图
// 白色像素表示需要重绘的区域，黑色像素保持原样
func (c *Compositor) Stitch(imagePath string, masks []model.CandidateMask, indices []int) (string, error) {
	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		return "", fmt.Errorf("failed to read image: %s", imagePath)
	}
	defer img.Close()

	width := img.Cols()
	height := img.Rows()

	combined, err := Union(masks, indices, width, height)
	if err != nil {
		return "", err
	}

	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	defer mask.Close()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if combined[y*width+x] {
				mask.SetUCharAt(y, x, 255)
			} else {
				mask.SetUCharAt(y, x, 0)
			}
		}
	}

	stitchedPath := filepath.Join(c.uploadDir, StitchedFilename)
	if ok := gocv.IMWrite(stitchedPath, mask); !ok {
		return "", fmt.Errorf("failed to write stitched mask: %s", stitchedPath)
	}

	utils.Logger.Info("masks stitched",
		zap.Ints("indices", indices),
		zap.String("path", stitchedPath))

	return stitchedPath, nil
}
