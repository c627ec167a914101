// internal/service/inventory/infrastructure/zk_locker.go
package infrastructure

import (
	"storefront/internal/pkg/zookeeper"
)

// ZkProductLocker 用 ZooKeeper 分布式锁实现按商品的串行化，
// 供多实例部署时替换进程内锁。锁路径按商品区分，互不阻塞。
type ZkProductLocker struct {
	conn *zookeeper.Conn
}

func NewZkProductLocker(conn *zookeeper.Conn) *ZkProductLocker {
	return &ZkProductLocker{conn: conn}
}

func (z *ZkProductLocker) Lock(productID string) (func(), error) {
	lock, err := zookeeper.NewDistributedLock(z.conn, "product-"+productID)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Unlock()
	}, nil
}
