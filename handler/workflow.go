package handler

import (
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/namanlalitnyu/RapidEdit/config"
	"github.com/namanlalitnyu/RapidEdit/model"
	"github.com/namanlalitnyu/RapidEdit/service"
	"github.com/namanlalitnyu/RapidEdit/utils"
	"go.uber.org/zap"
)

// WorkflowHandler 阶段路由与各阶段的表单动作
type WorkflowHandler struct {
	cfg        *config.Config
	sessions   *service.SessionStore
	maskGen    *service.MaskGenService
	compositor *service.Compositor
	inpaint    *service.InpaintService
}

func NewWorkflowHandler(cfg *config.Config, sessions *service.SessionStore,
	maskGen *service.MaskGenService, compositor *service.Compositor,
	inpaint *service.InpaintService) *WorkflowHandler {
	return &WorkflowHandler{
		cfg:        cfg,
		sessions:   sessions,
		maskGen:    maskGen,
		compositor: compositor,
		inpaint:    inpaint,
	}
}

// StageURL 重建查询参数并返回阶段跳转地址
// 参数总是从零开始构造，阶段与图片是唯一的持久化标识
func StageURL(stage model.Stage, image string) string {
	params := url.Values{}
	params.Set("stage", stage.String())
	if image != "" {
		params.Set("image", image)
	}
	return "/?" + params.Encode()
}

// Index 根据查询参数解析当前阶段并渲染对应视图
// 刷新或回退后，凭 stage+image 参数重建同一视图
func (h *WorkflowHandler) Index(c *gin.Context) {
	stage := model.ParseStage(c.Query("stage"))
	sess := h.sessions.Get(c)

	switch stage {
	case model.StageMaskSelection:
		h.renderMaskSelection(c, sess)
	case model.StageCheck:
		h.renderCheck(c, sess, http.StatusOK, "")
	case model.StageResult:
		h.renderResult(c, sess)
	default:
		h.renderUpload(c, http.StatusOK, "")
	}
}

func (h *WorkflowHandler) renderUpload(c *gin.Context, status int, errMsg string) {
	c.HTML(status, model.StageUpload.Template(), gin.H{
		"Title": "RapidEdit",
		"Error": errMsg,
	})
}

func (h *WorkflowHandler) renderMaskSelection(c *gin.Context, sess *model.SessionState) {
	// 从查询参数恢复图片路径
	if image := c.Query("image"); image != "" {
		sess.ImagePath = filepath.Join(h.cfg.Upload.UploadDir, filepath.Base(image))
	}

	if sess.ImagePath == "" {
		// 前置状态缺失，回退到上传阶段
		utils.Logger.Warn("mask selection entered without image, falling back to upload")
		h.renderUpload(c, http.StatusOK, "会话已失效，请重新上传图片")
		return
	}

	// 掩码缺失时懒重建，已存在则跳过
	if !sess.HasMasks() {
		masks, overlayPath, err := h.maskGen.Generate(sess.ImagePath)
		if err != nil {
			utils.Logger.Error("failed to generate masks", zap.Error(err))
			h.renderUpload(c, http.StatusInternalServerError, "掩码生成失败: "+err.Error())
			return
		}
		sess.Masks = masks
		sess.OverlayPath = overlayPath
	}
	h.sessions.Save(c, sess)

	h.maskSelectionView(c, http.StatusOK, sess, "")
}

func (h *WorkflowHandler) maskSelectionView(c *gin.Context, status int, sess *model.SessionState, errMsg string) {
	c.HTML(status, model.StageMaskSelection.Template(), gin.H{
		"Title":   "RapidEdit",
		"Overlay": fileURL(sess.OverlayPath),
		"Count":   len(sess.Masks),
		"Error":   errMsg,
	})
}

func (h *WorkflowHandler) renderCheck(c *gin.Context, sess *model.SessionState, status int, errMsg string) {
	if image := c.Query("image"); image != "" {
		sess.ImagePath = filepath.Join(h.cfg.Upload.UploadDir, filepath.Base(image))
		h.sessions.Save(c, sess)
	}

	if sess.ImagePath == "" || sess.StitchedPath == "" {
		utils.Logger.Warn("check entered without prerequisite state, falling back to upload")
		h.renderUpload(c, http.StatusOK, "会话已失效，请重新上传图片")
		return
	}

	c.HTML(status, model.StageCheck.Template(), gin.H{
		"Title":          "RapidEdit",
		"Image":          fileURL(sess.ImagePath),
		"Stitched":       fileURL(sess.StitchedPath),
		"Prompt":         sess.Prompt,
		"NegativePrompt": sess.NegativePrompt,
		"Error":          errMsg,
	})
}

func (h *WorkflowHandler) renderResult(c *gin.Context, sess *model.SessionState) {
	if image := c.Query("image"); image != "" && sess.ResultPath == "" {
		sess.ResultPath = filepath.Join(h.cfg.Upload.UploadDir, filepath.Base(image))
		h.sessions.Save(c, sess)
	}

	if sess.ResultPath == "" {
		utils.Logger.Warn("result entered without generated image, falling back to upload")
		h.renderUpload(c, http.StatusOK, "会话已失效，请重新上传图片")
		return
	}

	c.HTML(http.StatusOK, model.StageResult.Template(), gin.H{
		"Title":  "RapidEdit",
		"Prompt": sess.Prompt,
		"Image":  fileURL(sess.ImagePath),
		"Result": fileURL(sess.ResultPath),
	})
}

// Upload 处理图片上传并生成掩码，成功后进入掩码选择阶段
func (h *WorkflowHandler) Upload(c *gin.Context) {
	prompt := strings.TrimSpace(c.PostForm("prompt"))
	negativePrompt := strings.TrimSpace(c.PostForm("negative_prompt"))

	file, err := c.FormFile("image")
	if err != nil {
		h.renderUpload(c, http.StatusBadRequest, "请上传图片文件")
		return
	}
	if prompt == "" {
		h.renderUpload(c, http.StatusBadRequest, "请输入提示词")
		return
	}

	// 验证文件大小
	if file.Size > h.cfg.Upload.MaxSize {
		h.renderUpload(c, http.StatusBadRequest, "文件大小超过限制")
		return
	}

	// 验证文件类型
	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		h.renderUpload(c, http.StatusBadRequest, "不支持的文件类型，仅支持 JPEG/PNG")
		return
	}

	// 保留原始文件名，扁平目录内同名覆盖
	filename := filepath.Base(file.Filename)
	savePath := filepath.Join(h.cfg.Upload.UploadDir, filename)
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		utils.Logger.Error("failed to save file", zap.Error(err))
		h.renderUpload(c, http.StatusInternalServerError, "保存文件失败")
		return
	}

	utils.Logger.Info("file uploaded",
		zap.String("filename", filename),
		zap.Int64("size", file.Size))

	masks, overlayPath, err := h.maskGen.Generate(savePath)
	if err != nil {
		utils.Logger.Error("failed to generate masks", zap.Error(err))
		h.renderUpload(c, http.StatusInternalServerError, "掩码生成失败: "+err.Error())
		return
	}

	sess := h.sessions.Get(c)
	sess.Reset()
	sess.ImagePath = savePath
	sess.Prompt = prompt
	sess.NegativePrompt = negativePrompt
	sess.Masks = masks
	sess.OverlayPath = overlayPath
	h.sessions.Save(c, sess)

	c.Redirect(http.StatusSeeOther, StageURL(model.StageMaskSelection, filename))
}

// Select 解析选中的掩码序号并拼接为单张二值掩码，进入确认阶段
// 空选择合法，产出全零掩码
func (h *WorkflowHandler) Select(c *gin.Context) {
	sess := h.sessions.Get(c)
	if sess.ImagePath == "" || !sess.HasMasks() {
		c.Redirect(http.StatusSeeOther, StageURL(model.StageUpload, ""))
		return
	}

	entries := strings.Split(c.PostForm("masks"), ",")
	indices, err := service.ParseSelection(entries, len(sess.Masks))
	if err != nil {
		h.maskSelectionView(c, http.StatusBadRequest, sess, "选择无效: "+err.Error())
		return
	}

	stitchedPath, err := h.compositor.Stitch(sess.ImagePath, sess.Masks, indices)
	if err != nil {
		utils.Logger.Error("failed to stitch masks", zap.Error(err))
		h.maskSelectionView(c, http.StatusInternalServerError, sess, "掩码拼接失败: "+err.Error())
		return
	}

	sess.Selected = indices
	sess.StitchedPath = stitchedPath
	h.sessions.Save(c, sess)

	c.Redirect(http.StatusSeeOther, StageURL(model.StageCheck, filepath.Base(sess.ImagePath)))
}

// Inpaint 以当前拼接掩码和更新后的提示词调用修复后端，进入结果阶段
// 后端失败时不修改会话状态，确认阶段保持可达
func (h *WorkflowHandler) Inpaint(c *gin.Context) {
	sess := h.sessions.Get(c)
	if sess.ImagePath == "" || sess.StitchedPath == "" {
		c.Redirect(http.StatusSeeOther, StageURL(model.StageUpload, ""))
		return
	}

	prompt := strings.TrimSpace(c.PostForm("prompt"))
	negativePrompt := strings.TrimSpace(c.PostForm("negative_prompt"))
	if prompt == "" {
		h.renderCheck(c, sess, http.StatusBadRequest, "请输入提示词")
		return
	}

	resultPath, err := h.inpaint.Run(sess.ImagePath, sess.StitchedPath, prompt, negativePrompt)
	if err != nil {
		utils.Logger.Error("inpainting failed", zap.Error(err))
		h.renderCheck(c, sess, http.StatusInternalServerError, "图片生成失败: "+err.Error())
		return
	}

	sess.Prompt = prompt
	sess.NegativePrompt = negativePrompt
	sess.ResultPath = resultPath
	h.sessions.Save(c, sess)

	c.Redirect(http.StatusSeeOther, StageURL(model.StageResult, filepath.Base(resultPath)))
}

// Reuse 把生成结果作为新的输入图片，回到掩码选择阶段
// 旧掩码描述的是上一张输入图，全部清除后懒重建
func (h *WorkflowHandler) Reuse(c *gin.Context) {
	sess := h.sessions.Get(c)
	if sess.ResultPath == "" {
		c.Redirect(http.StatusSeeOther, StageURL(model.StageUpload, ""))
		return
	}

	sess.ImagePath = sess.ResultPath
	sess.ResultPath = ""
	sess.ClearMasks()
	h.sessions.Save(c, sess)

	c.Redirect(http.StatusSeeOther, StageURL(model.StageMaskSelection, filepath.Base(sess.ImagePath)))
}

// Restart 重置全部会话状态，回到上传阶段
func (h *WorkflowHandler) Restart(c *gin.Context) {
	h.sessions.Reset(c)
	c.Redirect(http.StatusSeeOther, StageURL(model.StageUpload, ""))
}

func (h *WorkflowHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

// fileURL 把上传目录内的文件路径映射为静态访问地址
func fileURL(path string) string {
	if path == "" {
		return ""
	}
	return "/uploads/" + filepath.Base(path)
}
