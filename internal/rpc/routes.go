// internal/rpc/routes.go
package rpc

// Route 把一个远程能力绑定到固定的路由键和队列（Kafka Topic）。
// 路由键随消息传递，队列名即请求 Topic 名。
type Route struct {
	Key   string
	Queue string
}

// 全部远程能力的注册表。新增能力时在这里登记，并在 envelope.go
// 的编解码开关中补上对应的请求/响应类型。
var (
	RouteCheckCoupon       = Route{Key: "CheckCoupon", Queue: "CheckCouponByCode"}
	RouteCheckUser         = Route{Key: "CheckUser", Queue: "CheckUserById"}
	RouteStockAvailability = Route{Key: "IsProductAvailableInStock", Queue: "IsProductAvailableInStock"}
	RouteCheckUserCoupon   = Route{Key: "CheckUserCoupon", Queue: "UserCoupon_CheckUserCoupon"}
	RouteDisableUserCoupon = Route{Key: "DisableUserCoupon", Queue: "UserCoupon_DisableUserCoupon"}
)

// DLQTopic 返回该路由的死信 Topic。处理失败且重投递次数耗尽的消息落到这里。
func (r Route) DLQTopic() string {
	return r.Queue + ".dlq"
}
