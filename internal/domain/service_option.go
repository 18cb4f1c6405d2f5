package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceOptionNotFound is returned when the service id is not in the catalog
	ErrServiceOptionNotFound = errors.New("service option not found")

	// ErrInvalidServiceOption is returned for a malformed catalog entry
	ErrInvalidServiceOption = errors.New("invalid service option")
)

// ServiceOption is a bookable treatment with its price and duration
type ServiceOption struct {
	ID              int64
	Name            string
	Price           float64
	DurationMinutes int
}

// ServiceCatalog is the shared list of treatments offered by the clinic
type ServiceCatalog struct {
	options []ServiceOption
	byID    map[int64]ServiceOption
}

// NewServiceCatalog validates options and indexes them by id
func NewServiceCatalog(options []ServiceOption) (*ServiceCatalog, error) {
	c := &ServiceCatalog{
		options: make([]ServiceOption, 0, len(options)),
		byID:    make(map[int64]ServiceOption, len(options)),
	}

	for _, opt := range options {
		if opt.ID <= 0 {
			return nil, fmt.Errorf("%w: id must be positive, got %d", ErrInvalidServiceOption, opt.ID)
		}
		if opt.Name == "" {
			return nil, fmt.Errorf("%w: service %d has no name", ErrInvalidServiceOption, opt.ID)
		}
		if opt.Price < 0 {
			return nil, fmt.Errorf("%w: service %d has negative price", ErrInvalidServiceOption, opt.ID)
		}
		if opt.DurationMinutes <= 0 || opt.DurationMinutes > MaxServiceDurationMinutes {
			return nil, fmt.Errorf("%w: service %d duration %d out of range", ErrInvalidServiceOption, opt.ID, opt.DurationMinutes)
		}
		if _, dup := c.byID[opt.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate service id %d", ErrInvalidServiceOption, opt.ID)
		}
		c.options = append(c.options, opt)
		c.byID[opt.ID] = opt
	}

	return c, nil
}

// Get returns the service option by id
func (c *ServiceCatalog) Get(id int64) (ServiceOption, error) {
	opt, ok := c.byID[id]
	if !ok {
		return ServiceOption{}, fmt.Errorf("%w: id=%d", ErrServiceOptionNotFound, id)
	}
	return opt, nil
}

// All returns the options in configuration order
func (c *ServiceCatalog) All() []ServiceOption {
	out := make([]ServiceOption, len(c.options))
	copy(out, c.options)
	return out
}
