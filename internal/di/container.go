package di

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"product-studio/internal/settings"
	"product-studio/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// stopper is implemented by modules with background work to release
type stopper interface {
	Stop() error
}

// Container holds the process-wide services keyed by their concrete type.
// Services are stopped in reverse registration order.
type Container struct {
	mu       sync.RWMutex
	services map[reflect.Type]interface{}
	order    []reflect.Type
	Logger   logger.Logger
}

// NewContainer creates a new DI container
func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{
		services: make(map[reflect.Type]interface{}),
		Logger:   log,
	}
}

// InitializeSettings registers the storage handles and builds the settings module over them.
// redisClient may be nil.
func (c *Container) InitializeSettings(mongoDB *mongo.Database, redisClient *redis.Client) error {
	if mongoDB == nil {
		return fmt.Errorf("MongoDB must be initialized before Settings module")
	}

	settingsModule, err := settings.NewSettingsModule(c.Logger, mongoDB, redisClient)
	if err != nil {
		return fmt.Errorf("failed to create settings module: %w", err)
	}

	if err := c.Register(mongoDB); err != nil {
		return err
	}
	if redisClient != nil {
		if err := c.Register(redisClient); err != nil {
			return err
		}
	}
	return c.Register(settingsModule)
}

// Register adds a service instance. Registering the same type twice is an error.
func (c *Container) Register(service interface{}) error {
	if service == nil {
		return fmt.Errorf("cannot register a nil service")
	}
	serviceType := reflect.TypeOf(service)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.services[serviceType]; exists {
		return fmt.Errorf("service of type %v already registered", serviceType)
	}
	c.services[serviceType] = service
	c.order = append(c.order, serviceType)
	c.Logger.Debugf("Registered service %v", serviceType)
	return nil
}

// Resolve returns the service registered under serviceType
func (c *Container) Resolve(serviceType reflect.Type) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if service, exists := c.services[serviceType]; exists {
		return service, nil
	}
	return nil, fmt.Errorf("service of type %v not registered", serviceType)
}

// GetService resolves a service by its static type, e.g. GetService[*settings.SettingsModule](c)
func GetService[T any](c *Container) (T, error) {
	var zero T
	service, err := c.Resolve(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("service is not of expected type %T", zero)
	}
	return typed, nil
}

// HealthCheck checks the settings module, which pings MongoDB and the cache
func (c *Container) HealthCheck(ctx context.Context) error {
	settingsModule, err := GetService[*settings.SettingsModule](c)
	if err != nil {
		return fmt.Errorf("settings module not initialized: %w", err)
	}
	if err := settingsModule.HealthCheck(ctx); err != nil {
		return fmt.Errorf("settings health check failed: %w", err)
	}
	return nil
}

// Cleanup stops every registered service, newest first, and empties the container
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i := len(c.order) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		serviceType := c.order[i]
		if s, ok := c.services[serviceType].(stopper); ok {
			if err := s.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("%v: %w", serviceType, err))
			}
		}
	}

	c.services = make(map[reflect.Type]interface{})
	c.order = nil

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// Close gracefully shuts down all services in the container with timeout
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warnf("cleanup errors occurred: %v", err)
		return err
	}
	return nil
}
