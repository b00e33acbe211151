package model

import "time"

// OHLCV represents a single daily session.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Metadata is the descriptive record the provider returns for a symbol.
// Any field may be empty; the provider fills what it has.
type Metadata struct {
	Symbol  string
	Name    string
	Sector  string
	Country string
}
