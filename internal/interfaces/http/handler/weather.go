// Package handler 提供 HTTP 请求处理器
package handler

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rag-gateway/internal/application/weather"
	"rag-gateway/internal/infrastructure/persistence/redis"
	"rag-gateway/internal/interfaces/http/dto"
	"rag-gateway/pkg/logger"
)

// weatherCacheTTL 当前天气缓存时长
const weatherCacheTTL = 5 * time.Minute

// WeatherHandler 天气查询处理器
type WeatherHandler struct {
	svc   *weather.Service
	cache *redis.Cache
}

// NewWeatherHandler 创建天气查询处理器，cache 可为 nil
func NewWeatherHandler(svc *weather.Service, cache *redis.Cache) *WeatherHandler {
	return &WeatherHandler{svc: svc, cache: cache}
}

// Current 查询当前天气
// @Summary 查询当前天气
// @Tags Weather
// @Produce json
// @Param city path string true "城市名称"
// @Success 200 {object} dto.Response[weather.Info]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/weather/city/{city} [get]
func (h *WeatherHandler) Current(c *gin.Context) {
	ctx := c.Request.Context()
	city := c.Param("city")

	if h.cache != nil {
		raw, err := h.cache.GetOrLoadSafe(ctx, redis.BuildWeatherKey(city), weatherCacheTTL, func() (interface{}, error) {
			return h.svc.Current(ctx, city)
		})
		if err == nil {
			var info weather.Info
			if jsonErr := json.Unmarshal(raw, &info); jsonErr == nil {
				dto.Success(c, info)
				return
			}
		} else {
			logger.Warn(ctx, "weather cache lookup failed", "error", err.Error())
		}
	}

	info, err := h.svc.Current(ctx, city)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, info)
}

// Forecast 查询未来天气
// @Summary 查询未来天气
// @Tags Weather
// @Produce json
// @Param city path string true "城市名称"
// @Param days query int false "预报天数，1-7" default(3)
// @Success 200 {object} dto.Response[[]weather.Info]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/weather/forecast/{city} [get]
func (h *WeatherHandler) Forecast(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "3"))

	forecast, err := h.svc.Forecast(c.Request.Context(), c.Param("city"), days)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, forecast)
}
