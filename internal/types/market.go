package types

import "time"

// Quote is the latest bid/ask for a symbol.
type Quote struct {
	Symbol string    `yaml:"symbol" json:"symbol"`
	Bid    float64   `yaml:"bid" json:"bid"`
	Ask    float64   `yaml:"ask" json:"ask"`
	Time   time.Time `yaml:"time" json:"time"`
}

// SymbolInfo describes the trading rules of a symbol.
type SymbolInfo struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	// Point is the smallest quoted price increment.
	Point  float64 `yaml:"point" json:"point"`
	Digits int32   `yaml:"digits" json:"digits"`
	// SpreadPoints is the current spread expressed in points.
	SpreadPoints int `yaml:"spread_points" json:"spread_points"`
	// StopsLevelPoints is the venue's minimum stop distance in points.
	StopsLevelPoints int     `yaml:"stops_level_points" json:"stops_level_points"`
	VolumeMin        float64 `yaml:"volume_min" json:"volume_min"`
	VolumeMax        float64 `yaml:"volume_max" json:"volume_max"`
	VolumeStep       float64 `yaml:"volume_step" json:"volume_step"`
}
