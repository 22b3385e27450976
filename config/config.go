package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Upload       UploadConfig       `mapstructure:"upload"`
	Session      SessionConfig      `mapstructure:"session"`
	Segmentation SegmentationConfig `mapstructure:"segmentation"`
	Inpainting   InpaintingConfig   `mapstructure:"inpainting"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	UploadDir    string   `mapstructure:"upload_dir"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// SessionConfig 浏览器会话配置
type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// SegmentationConfig SAM自动掩码生成后端的调用参数
type SegmentationConfig struct {
	Endpoint                   string        `mapstructure:"endpoint"`
	Timeout                    time.Duration `mapstructure:"timeout"`
	PointsPerSide              int           `mapstructure:"points_per_side"`
	PredIouThresh              float64       `mapstructure:"pred_iou_thresh"`
	StabilityScoreThresh       float64       `mapstructure:"stability_score_thresh"`
	CropNLayers                int           `mapstructure:"crop_n_layers"`
	CropNPointsDownscaleFactor int           `mapstructure:"crop_n_points_downscale_factor"`
	MinMaskRegionArea          int           `mapstructure:"min_mask_region_area"`
	MinArea                    int           `mapstructure:"min_area"`
	MaxConcurrent              int           `mapstructure:"max_concurrent"`
	QueueTimeout               int           `mapstructure:"queue_timeout"`
}

// InpaintingConfig SDXL修复后端的采样参数，种子固定以保证可复现
type InpaintingConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Model             string        `mapstructure:"model"`
	LoraWeights       string        `mapstructure:"lora_weights"`
	NumInferenceSteps int           `mapstructure:"num_inference_steps"`
	GuidanceScale     float64       `mapstructure:"guidance_scale"`
	Seed              int64         `mapstructure:"seed"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	QueueTimeout      int           `mapstructure:"queue_timeout"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		// 如果加载失败，返回默认配置
		return getDefaultConfig()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.upload_dir", "./uploads")
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg"})

	v.SetDefault("session.cookie_name", "rapidedit_session")
	v.SetDefault("session.ttl", 2*time.Hour)

	v.SetDefault("segmentation.endpoint", "http://localhost:9901")
	v.SetDefault("segmentation.timeout", 5*time.Minute)
	v.SetDefault("segmentation.points_per_side", 32)
	v.SetDefault("segmentation.pred_iou_thresh", 0.9)
	v.SetDefault("segmentation.stability_score_thresh", 0.9)
	v.SetDefault("segmentation.crop_n_layers", 1)
	v.SetDefault("segmentation.crop_n_points_downscale_factor", 2)
	v.SetDefault("segmentation.min_mask_region_area", 500)
	v.SetDefault("segmentation.min_area", 500)
	v.SetDefault("segmentation.max_concurrent", 1)
	v.SetDefault("segmentation.queue_timeout", 120)

	v.SetDefault("inpainting.endpoint", "http://localhost:9902")
	v.SetDefault("inpainting.timeout", 10*time.Minute)
	v.SetDefault("inpainting.model", "diffusers/stable-diffusion-xl-1.0-inpainting-0.1")
	v.SetDefault("inpainting.lora_weights", "latent-consistency/lcm-lora-sdxl")
	v.SetDefault("inpainting.num_inference_steps", 20)
	v.SetDefault("inpainting.guidance_scale", 7.5)
	v.SetDefault("inpainting.seed", 0)
	v.SetDefault("inpainting.max_concurrent", 1)
	v.SetDefault("inpainting.queue_timeout", 120)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			UploadDir:    "./uploads",
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg"},
		},
		Session: SessionConfig{
			CookieName: "rapidedit_session",
			TTL:        2 * time.Hour,
		},
		Segmentation: SegmentationConfig{
			Endpoint:                   "http://localhost:9901",
			Timeout:                    5 * time.Minute,
			PointsPerSide:              32,
			PredIouThresh:              0.9,
			StabilityScoreThresh:       0.9,
			CropNLayers:                1,
			CropNPointsDownscaleFactor: 2,
			MinMaskRegionArea:          500,
			MinArea:                    500,
			MaxConcurrent:              1,
			QueueTimeout:               120,
		},
		Inpainting: InpaintingConfig{
			Endpoint:          "http://localhost:9902",
			Timeout:           10 * time.Minute,
			Model:             "diffusers/stable-diffusion-xl-1.0-inpainting-0.1",
			LoraWeights:       "latent-consistency/lcm-lora-sdxl",
			NumInferenceSteps: 20,
			GuidanceScale:     7.5,
			Seed:              0,
			MaxConcurrent:     1,
			QueueTimeout:      120,
		},
	}
}
