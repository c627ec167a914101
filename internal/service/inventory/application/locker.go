// internal/service/inventory/application/locker.go
package application

import "sync"

// ProductLocker 对单个商品的变更做串行化。
// 单实例部署用进程内锁即可；多实例部署换成 ZooKeeper 实现。
type ProductLocker interface {
	Lock(productID string) (unlock func(), err error)
}

// keyedMutex 是按 key 懒创建、带引用计数回收的互斥锁集合。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex 返回进程内的 ProductLocker 实现。
func NewKeyedMutex() ProductLocker {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

func (k *keyedMutex) Lock(productID string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[productID]
	if !ok {
		e = &lockEntry{}
		k.locks[productID] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, productID)
		}
		k.mu.Unlock()
	}, nil
}
