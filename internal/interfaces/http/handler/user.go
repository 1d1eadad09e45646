// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"rag-gateway/internal/application/user"
	"rag-gateway/internal/interfaces/http/dto"
)

// UserHandler 用户处理器
type UserHandler struct {
	svc *user.Service
}

// NewUserHandler 创建用户处理器
func NewUserHandler(svc *user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create 创建用户
// @Summary 创建用户
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.CreateUserRequest true "用户信息"
// @Success 201 {object} dto.Response[dto.UserResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	u, err := h.svc.Register(c.Request.Context(), user.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Phone:    req.Phone,
		Email:    req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, dto.ToUserResponse(u))
}

// Get 按 ID 获取用户
// @Summary 获取用户
// @Tags Users
// @Produce json
// @Param id path string true "用户 ID"
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToUserResponse(u))
}

// GetByUsername 按用户名获取用户
// @Summary 按用户名获取用户
// @Tags Users
// @Produce json
// @Param name path string true "用户名"
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/users/username/{name} [get]
func (h *UserHandler) GetByUsername(c *gin.Context) {
	u, err := h.svc.GetByUsername(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToUserResponse(u))
}

// List 列出用户
// @Summary 列出用户
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[[]dto.UserResponse]
// @Router /v1/users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToUserListResponse(users))
}

// Delete 删除用户
// @Summary 删除用户
// @Tags Users
// @Produce json
// @Param id path string true "用户 ID"
// @Success 200 {object} dto.Response[gin.H]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, gin.H{"message": "user deleted"})
}
