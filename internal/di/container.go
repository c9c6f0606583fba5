// internal/di/container.go
package di

import (
	"sync"
)

// Container 按名称持有进程内的服务单例。
// 启动时在app包按依赖顺序注册（llm、character、scenario、store、
// hub、mood、composer、pipeline、session），此后只读。
type Container struct {
	mutex    sync.RWMutex
	services map[string]interface{}
}

var (
	globalContainer *Container
	once            sync.Once
)

// NewContainer 创建一个空容器
func NewContainer() *Container {
	return &Container{
		services: make(map[string]interface{}),
	}
}

// GetContainer 返回全局容器
func GetContainer() *Container {
	once.Do(func() {
		globalContainer = NewContainer()
	})
	return globalContainer
}

// Register 注册服务实例，同名覆盖
func (c *Container) Register(name string, service interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.services[name] = service
}

// Get 按名称取出服务实例，未注册返回nil
func (c *Container) Get(name string) interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.services[name]
}

// Has 检查服务是否已注册
func (c *Container) Has(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, exists := c.services[name]
	return exists
}

// Reset 清空全部注册，关停和测试时使用
func (c *Container) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.services = make(map[string]interface{})
}
