package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-autotrade/internal/types"
)

// QuoteGenerator produces bid/ask random walks for tests.
type QuoteGenerator struct {
	rng *rand.Rand
}

// NewQuoteGenerator creates a generator. Use a fixed seed for reproducible tests.
func NewQuoteGenerator(seed int64) *QuoteGenerator {
	return &QuoteGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// QuoteConfig configures a generated series.
type QuoteConfig struct {
	Symbol    string
	StartTime time.Time
	Interval  time.Duration
	Count     int
	// InitialBid is the first bid price.
	InitialBid float64
	// Digits is the quoted precision; the point size is 10^-Digits.
	Digits int32
	// Volatility is the per-tick standard deviation as a fraction of price.
	Volatility float64
	// MinSpreadPoints and MaxSpreadPoints bound the spread of each tick.
	MinSpreadPoints int
	MaxSpreadPoints int
}

// DefaultQuoteConfig is a EURUSD-like five digit series.
func DefaultQuoteConfig() QuoteConfig {
	return QuoteConfig{
		Symbol:          "EURUSD",
		StartTime:       time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC),
		Interval:        time.Second,
		Count:           1000,
		InitialBid:      1.10500,
		Digits:          5,
		Volatility:      0.0002,
		MinSpreadPoints: 1,
		MaxSpreadPoints: 30,
	}
}

// Point returns the price increment implied by Digits.
func (c QuoteConfig) Point() float64 {
	return math.Pow10(-int(c.Digits))
}

// GeneratedQuote pairs a quote with the spread it was generated with.
type GeneratedQuote struct {
	Quote        types.Quote
	SpreadPoints int
}

// Generate walks the bid with geometric Brownian motion and adds a random spread.
func (g *QuoteGenerator) Generate(config QuoteConfig) []GeneratedQuote {
	quotes := make([]GeneratedQuote, config.Count)
	point := config.Point()
	bid := config.InitialBid
	at := config.StartTime

	for i := 0; i < config.Count; i++ {
		// Box-Muller
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		next := bid * (1 + config.Volatility*z)
		if next <= point {
			next = bid
		}

		bid = roundToDecimals(next, config.Digits)

		spread := config.MinSpreadPoints
		if config.MaxSpreadPoints > config.MinSpreadPoints {
			spread += g.rng.Intn(config.MaxSpreadPoints - config.MinSpreadPoints + 1)
		}

		quotes[i] = GeneratedQuote{
			Quote: types.Quote{
				Symbol: config.Symbol,
				Bid:    bid,
				Ask:    roundToDecimals(bid+float64(spread)*point, config.Digits),
				Time:   at,
			},
			SpreadPoints: spread,
		}

		at = at.Add(config.Interval)
	}

	return quotes
}

// SymbolInfo builds the symbol metadata that matches a generated quote.
func (c QuoteConfig) SymbolInfo(spreadPoints, stopsLevelPoints int) types.SymbolInfo {
	return types.SymbolInfo{
		Symbol:           c.Symbol,
		Point:            c.Point(),
		Digits:           c.Digits,
		SpreadPoints:     spreadPoints,
		StopsLevelPoints: stopsLevelPoints,
		VolumeMin:        0.01,
		VolumeMax:        100,
		VolumeStep:       0.01,
	}
}

func roundToDecimals(val float64, decimals int32) float64 {
	pow := math.Pow10(int(decimals))

	return math.Round(val*pow) / pow
}
