package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"rag-gateway/internal/application/user"
	"rag-gateway/internal/application/weather"
)

const (
	toolNameWeatherQuery = "weather_query"
	toolNameUserRegister = "user_register"
)

// NewWeatherTool 创建天气查询工具，挂在普通聊天路径上
func NewWeatherTool(svc *weather.Service) tool.InvokableTool {
	return &weatherTool{svc: svc}
}

type weatherTool struct {
	svc *weather.Service
}

func (t *weatherTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: toolNameWeatherQuery,
		Desc: "查询指定城市的当前天气，或未来数天的天气预报。",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"city": {Type: schema.String, Desc: "城市名称", Required: true},
			"days": {Type: schema.Integer, Desc: "可选：预报天数（1-7），不传则返回当前天气"},
		}),
	}, nil
}

func (t *weatherTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args struct {
		City string `json:"city"`
		Days int    `json:"days,omitempty"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		b, _ := json.Marshal(map[string]any{"error": fmt.Sprintf("invalid arguments: %v", err)})
		return string(b), nil
	}
	city := strings.TrimSpace(args.City)
	if city == "" {
		b, _ := json.Marshal(map[string]any{"error": "city is required"})
		return string(b), nil
	}

	if args.Days > 0 {
		forecast, err := t.svc.Forecast(ctx, city, args.Days)
		if err != nil {
			return "", err
		}
		b, _ := json.Marshal(forecast)
		return string(b), nil
	}

	info, err := t.svc.Current(ctx, city)
	if err != nil {
		return "", err
	}
	b, _ := json.Marshal(info)
	return string(b), nil
}

// NewUserRegisterTool 创建用户注册工具，挂在普通聊天路径上
func NewUserRegisterTool(svc *user.Service) tool.InvokableTool {
	return &userRegisterTool{svc: svc}
}

type userRegisterTool struct {
	svc *user.Service
}

func (t *userRegisterTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: toolNameUserRegister,
		Desc: "注册一个新用户。用户明确提出要注册账号时才调用。",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"username": {Type: schema.String, Desc: "用户名", Required: true},
			"password": {Type: schema.String, Desc: "密码，至少 6 位", Required: true},
			"phone":    {Type: schema.String, Desc: "可选：手机号"},
			"email":    {Type: schema.String, Desc: "可选：邮箱"},
		}),
	}, nil
}

func (t *userRegisterTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Phone    string `json:"phone,omitempty"`
		Email    string `json:"email,omitempty"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		b, _ := json.Marshal(map[string]any{"error": fmt.Sprintf("invalid arguments: %v", err)})
		return string(b), nil
	}

	u, err := t.svc.Register(ctx, user.RegisterInput{
		Username: args.Username,
		Password: args.Password,
		Phone:    args.Phone,
		Email:    args.Email,
	})
	if err != nil {
		// 业务失败作为结果反馈给模型，由它决定如何答复用户
		b, _ := json.Marshal(map[string]any{"error": err.Error()})
		return string(b), nil
	}

	out := struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}{ID: u.ID, Username: u.Username}
	b, _ := json.Marshal(out)
	return string(b), nil
}
