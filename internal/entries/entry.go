package entries

import (
	"errors"
	"time"
)

var (
	ErrInvalidCount = errors.New("count must be greater than zero")
	ErrInvalidMiles = errors.New("miles must be greater than zero")
)

type PushupEntry struct {
	ID        int       `json:"id"`
	UserID    int       `json:"-"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"date"`
}

func (e PushupEntry) Validate() error {
	if e.Count <= 0 {
		return ErrInvalidCount
	}
	return nil
}

type WalkEntry struct {
	ID        int       `json:"id"`
	UserID    int       `json:"-"`
	Miles     float64   `json:"miles"`
	CreatedAt time.Time `json:"date"`
}

func (e WalkEntry) Validate() error {
	if e.Miles <= 0 {
		return ErrInvalidMiles
	}
	return nil
}
