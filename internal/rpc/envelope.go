// internal/rpc/envelope.go
package rpc

import (
	"encoding/json"
	"fmt"
)

// Envelope 是请求和应答共用的信封。
// CorrelationID 由调用方生成，每次调用唯一；ReplyTopic 是调用方
// 私有的应答 Topic，应答方原样回填 CorrelationID 后发往该 Topic。
type Envelope struct {
	CorrelationID string          `json:"correlation_id"`
	ReplyTopic    string          `json:"reply_topic,omitempty"`
	Op            string          `json:"op"`
	Payload       json.RawMessage `json:"payload"`
	Error         string          `json:"error,omitempty"`
}

// 以下是全部远程操作的请求/响应类型。负载是封闭的类型集合，
// 不允许自由格式的 map 负载在服务间流动。

type CheckCouponRequest struct {
	Code string `json:"code"`
}

type CheckCouponResponse struct {
	Exists         bool    `json:"exists"`
	Discount       float64 `json:"discount"`
	MinOrderAmount float64 `json:"min_order_amount"`
}

type CheckUserRequest struct {
	UserID string `json:"user_id"`
}

type CheckUserResponse struct {
	Exists bool `json:"exists"`
}

type StockAvailabilityRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type StockAvailabilityResponse struct {
	Available bool `json:"available"`
}

type CheckUserCouponRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

type CheckUserCouponResponse struct {
	Used bool `json:"used"`
}

type DisableUserCouponRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

type DisableUserCouponResponse struct {
	Disabled bool `json:"disabled"`
}

// DecodeRequest 按操作名把请求负载解码成具体类型。
// 操作名不在注册表中视为编程错误，直接报错而不是透传原始字节。
func DecodeRequest(op string, payload json.RawMessage) (interface{}, error) {
	var req interface{}
	switch op {
	case RouteCheckCoupon.Key:
		req = &CheckCouponRequest{}
	case RouteCheckUser.Key:
		req = &CheckUserRequest{}
	case RouteStockAvailability.Key:
		req = &StockAvailabilityRequest{}
	case RouteCheckUserCoupon.Key:
		req = &CheckUserCouponRequest{}
	case RouteDisableUserCoupon.Key:
		req = &DisableUserCouponRequest{}
	default:
		return nil, fmt.Errorf("unknown rpc operation: %s", op)
	}
	if err := json.Unmarshal(payload, req); err != nil {
		return nil, fmt.Errorf("malformed payload for %s: %w", op, err)
	}
	return req, nil
}

// DecodeResponse 按操作名解码应答负载。
func DecodeResponse(op string, payload json.RawMessage) (interface{}, error) {
	var resp interface{}
	switch op {
	case RouteCheckCoupon.Key:
		resp = &CheckCouponResponse{}
	case RouteCheckUser.Key:
		resp = &CheckUserResponse{}
	case RouteStockAvailability.Key:
		resp = &StockAvailabilityResponse{}
	case RouteCheckUserCoupon.Key:
		resp = &CheckUserCouponResponse{}
	case RouteDisableUserCoupon.Key:
		resp = &DisableUserCouponResponse{}
	default:
		return nil, fmt.Errorf("unknown rpc operation: %s", op)
	}
	if err := json.Unmarshal(payload, resp); err != nil {
		return nil, fmt.Errorf("malformed response payload for %s: %w", op, err)
	}
	return resp, nil
}
