package indicators

import (
	"fmt"

	"stockwatch/internal/analysis"
	"stockwatch/internal/models"
)

// Config holds the indicator periods. It is passed by value and never mutated
// after the Engine is built.
type Config struct {
	RSIPeriod    int     `mapstructure:"rsi_period" json:"rsiPeriod"`
	MACDFast     int     `mapstructure:"macd_fast" json:"macdFast"`
	MACDSlow     int     `mapstructure:"macd_slow" json:"macdSlow"`
	MACDSignal   int     `mapstructure:"macd_signal" json:"macdSignal"`
	SMAPeriod    int     `mapstructure:"sma_period" json:"smaPeriod"`
	EMAPeriod    int     `mapstructure:"ema_period" json:"emaPeriod"`
	BBPeriod     int     `mapstructure:"bb_period" json:"bbPeriod"`
	BBStdDev     float64 `mapstructure:"bb_std_dev" json:"bbStdDev"`
	VolumePeriod int     `mapstructure:"volume_period" json:"volumePeriod"`
}

// DefaultConfig returns the conventional periods:
// RSI 14, MACD 12/26/9, SMA 20, EMA 12, Bollinger 20 x 2, volume MA 20.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		SMAPeriod:    20,
		EMAPeriod:    12,
		BBPeriod:     20,
		BBStdDev:     2,
		VolumePeriod: DefaultVolumePeriod,
	}
}

// Validate rejects periods the engine cannot use.
func (c Config) Validate() error {
	periods := map[string]int{
		"rsi_period":    c.RSIPeriod,
		"macd_fast":     c.MACDFast,
		"macd_slow":     c.MACDSlow,
		"macd_signal":   c.MACDSignal,
		"sma_period":    c.SMAPeriod,
		"ema_period":    c.EMAPeriod,
		"bb_period":     c.BBPeriod,
		"volume_period": c.VolumePeriod,
	}
	for name, p := range periods {
		if p <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, p)
		}
	}
	if c.MACDFast >= c.MACDSlow {
		return fmt.Errorf("macd_fast (%d) must be less than macd_slow (%d)", c.MACDFast, c.MACDSlow)
	}
	if c.BBStdDev <= 0 {
		return fmt.Errorf("bb_std_dev must be positive, got %g", c.BBStdDev)
	}
	return nil
}

// Bundle is the full set of indicator series for one price history.
type Bundle struct {
	SMA            Series                  `json:"sma"`
	EMA            Series                  `json:"ema"`
	RSI            Series                  `json:"rsi"`
	MACD           MACDResult              `json:"macd"`
	BollingerBands BollingerResult         `json:"bollingerBands"`
	VolumeMA       Series                  `json:"volumeMA"`
	Signals        []analysis.SignalRecord `json:"signals"`
}

// Engine computes every indicator for a price/volume history. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	cfg       Config
	sma       *MovingAverage
	ema       *MovingAverage
	rsi       *RSI
	macd      *MACD
	bollinger *BollingerBands
	volumeMA  *VolumeMA
}

// NewEngine creates an engine for the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:       cfg,
		sma:       NewSMA(cfg.SMAPeriod),
		ema:       NewEMA(cfg.EMAPeriod),
		rsi:       NewRSI(cfg.RSIPeriod),
		macd:      NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
		bollinger: NewBollingerBands(cfg.BBPeriod, cfg.BBStdDev),
		volumeMA:  NewVolumeMA(cfg.VolumePeriod),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Calculate computes the bundle for chronological closes. volumes may be nil,
// in which case VolumeMA is empty. Short input degrades to empty series.
func (e *Engine) Calculate(prices, volumes []float64) Bundle {
	b := Bundle{
		SMA:            e.sma.Calculate(prices),
		EMA:            e.ema.Calculate(prices),
		RSI:            e.rsi.Calculate(prices),
		MACD:           e.macd.Calculate(prices),
		BollingerBands: e.bollinger.Calculate(prices),
		VolumeMA:       e.volumeMA.Calculate(volumes),
	}
	b.Signals = DetectSignals(b.RSI, b.MACD)
	return b
}

// CalculateCandles computes the bundle from candle closes and volumes.
func (e *Engine) CalculateCandles(candles []models.Candle) Bundle {
	return e.Calculate(models.Closes(candles), models.Volumes(candles))
}
