// internal/rpc/clients.go
package rpc

import (
	"context"
	"time"
)

// 每个远程能力一个客户端包装，调用方按能力注入，不直接触碰信封。

type CouponClient struct {
	c       *Client
	timeout time.Duration
}

func NewCouponClient(c *Client, timeout time.Duration) *CouponClient {
	return &CouponClient{c: c, timeout: timeout}
}

// CheckCoupon 按券码查询优惠券是否存在及其折扣信息。
func (cc *CouponClient) CheckCoupon(ctx context.Context, code string) (*CheckCouponResponse, error) {
	resp, err := cc.c.Call(ctx, RouteCheckCoupon, &CheckCouponRequest{Code: code}, cc.timeout)
	if err != nil {
		return nil, err
	}
	return resp.(*CheckCouponResponse), nil
}

// CheckUserCoupon 查询某用户是否已经用过这张券。
func (cc *CouponClient) CheckUserCoupon(ctx context.Context, userID, code string) (*CheckUserCouponResponse, error) {
	resp, err := cc.c.Call(ctx, RouteCheckUserCoupon, &CheckUserCouponRequest{UserID: userID, Code: code}, cc.timeout)
	if err != nil {
		return nil, err
	}
	return resp.(*CheckUserCouponResponse), nil
}

// DisableUserCoupon 在订单落定后把用户券置为不可再用。
func (cc *CouponClient) DisableUserCoupon(ctx context.Context, userID, code string) error {
	_, err := cc.c.Call(ctx, RouteDisableUserCoupon, &DisableUserCouponRequest{UserID: userID, Code: code}, cc.timeout)
	return err
}

type UserClient struct {
	c       *Client
	timeout time.Duration
}

func NewUserClient(c *Client, timeout time.Duration) *UserClient {
	return &UserClient{c: c, timeout: timeout}
}

// Exists 校验用户是否真实存在。
func (uc *UserClient) Exists(ctx context.Context, userID string) (bool, error) {
	resp, err := uc.c.Call(ctx, RouteCheckUser, &CheckUserRequest{UserID: userID}, uc.timeout)
	if err != nil {
		return false, err
	}
	return resp.(*CheckUserResponse).Exists, nil
}

type StockClient struct {
	c       *Client
	timeout time.Duration
}

func NewStockClient(c *Client, timeout time.Duration) *StockClient {
	return &StockClient{c: c, timeout: timeout}
}

// IsAvailable 查询某商品的可用库存是否满足数量要求。
func (sc *StockClient) IsAvailable(ctx context.Context, productID string, quantity int) (bool, error) {
	resp, err := sc.c.Call(ctx, RouteStockAvailability, &StockAvailabilityRequest{ProductID: productID, Quantity: quantity}, sc.timeout)
	if err != nil {
		return false, err
	}
	return resp.(*StockAvailabilityResponse).Available, nil
}
