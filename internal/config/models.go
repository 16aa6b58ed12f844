package config

const defaultDensityEpsilon = 1e-6

// DemandConfig parameterizes the demand probability model.
type DemandConfig struct {
	BaseDemand       float64 `yaml:"baseDemand" mapstructure:"baseDemand"`
	PriceScale       float64 `yaml:"priceScale" mapstructure:"priceScale"`
	SizeScale        float64 `yaml:"sizeScale" mapstructure:"sizeScale"`
	PriceSensitivity float64 `yaml:"priceSensitivity" mapstructure:"priceSensitivity"`
	SizeSensitivity  float64 `yaml:"sizeSensitivity" mapstructure:"sizeSensitivity"`
	Noise            float64 `yaml:"noise" mapstructure:"noise"`
	MinDemand        float64 `yaml:"minDemand" mapstructure:"minDemand"`
	MaxDemand        float64 `yaml:"maxDemand" mapstructure:"maxDemand"`
}

// MarkupConfig parameterizes the markup rate model.
type MarkupConfig struct {
	BaseRate     float64 `yaml:"baseRate" mapstructure:"baseRate"`
	PriceScale   float64 `yaml:"priceScale" mapstructure:"priceScale"`
	MaxRate      float64 `yaml:"maxRate" mapstructure:"maxRate"`
	Noise        float64 `yaml:"noise" mapstructure:"noise"`
	PriceDivisor float64 `yaml:"priceDivisor" mapstructure:"priceDivisor"`
	MinRate      float64 `yaml:"minRate" mapstructure:"minRate"`
	MaxRateClamp float64 `yaml:"maxRateClamp" mapstructure:"maxRateClamp"`
}

// TransitConfig parameterizes transit mode assignment.
type TransitConfig struct {
	BaseWeights    TransitWeights     `yaml:"baseWeights" mapstructure:"baseWeights"`
	Thresholds     TransitThresholds  `yaml:"thresholds" mapstructure:"thresholds"`
	Multipliers    TransitMultipliers `yaml:"multipliers" mapstructure:"multipliers"`
	Modes          TransitModes       `yaml:"modes" mapstructure:"modes"`
	DensityEpsilon float64            `yaml:"densityEpsilon,omitempty" mapstructure:"densityEpsilon"`
}

// TransitWeights are the unscaled weights of each mode.
type TransitWeights struct {
	Pallet    float64 `yaml:"pallet" mapstructure:"pallet"`
	Container float64 `yaml:"container" mapstructure:"container"`
	Courier   float64 `yaml:"courier" mapstructure:"courier"`
}

// TransitThresholds select which multiplier tier applies.
type TransitThresholds struct {
	LargeSize   float64 `yaml:"largeSize" mapstructure:"largeSize"`
	MediumSize  float64 `yaml:"mediumSize" mapstructure:"mediumSize"`
	SmallSize   float64 `yaml:"smallSize" mapstructure:"smallSize"`
	HighDensity float64 `yaml:"highDensity" mapstructure:"highDensity"`
}

// TransitMultipliers scale the base weights per size tier.
type TransitMultipliers struct {
	LargeContainer   float64 `yaml:"largeContainer" mapstructure:"largeContainer"`
	LargePallet      float64 `yaml:"largePallet" mapstructure:"largePallet"`
	LargeCourier     float64 `yaml:"largeCourier" mapstructure:"largeCourier"`
	MediumContainer  float64 `yaml:"mediumContainer" mapstructure:"mediumContainer"`
	MediumPallet     float64 `yaml:"mediumPallet" mapstructure:"mediumPallet"`
	MediumCourier    float64 `yaml:"mediumCourier" mapstructure:"mediumCourier"`
	SmallCourier     float64 `yaml:"smallCourier" mapstructure:"smallCourier"`
	SmallPallet      float64 `yaml:"smallPallet" mapstructure:"smallPallet"`
	SmallContainer   float64 `yaml:"smallContainer" mapstructure:"smallContainer"`
	DefaultPallet    float64 `yaml:"defaultPallet" mapstructure:"defaultPallet"`
	DefaultContainer float64 `yaml:"defaultContainer" mapstructure:"defaultContainer"`
}

// TransitModes holds the fixed capacity and unit cost of every mode.
type TransitModes struct {
	Courier   ModeProfile `yaml:"courier" mapstructure:"courier"`
	Pallet    ModeProfile `yaml:"pallet" mapstructure:"pallet"`
	Container ModeProfile `yaml:"container" mapstructure:"container"`
}

// ModeProfile is the capacity (in size units) and cost of one shipping unit.
type ModeProfile struct {
	Capacity float64 `yaml:"capacity" mapstructure:"capacity"`
	Cost     float64 `yaml:"cost" mapstructure:"cost"`
}

// LogisticsConfig parameterizes the logistics difficulty curve. The optimum and
// base cost live in GenerationConfig.
type LogisticsConfig struct {
	PenaltyFactor float64 `yaml:"penaltyFactor" mapstructure:"penaltyFactor"`
	MaxDifficulty float64 `yaml:"maxDifficulty" mapstructure:"maxDifficulty"`
	MinSizeLog    float64 `yaml:"minSizeLog,omitempty" mapstructure:"minSizeLog"`
}

// StockConfig parameterizes supply limits.
type StockConfig struct {
	BaseStock                    float64 `yaml:"baseStock" mapstructure:"baseStock"`
	MinStock                     int     `yaml:"minStock" mapstructure:"minStock"`
	Noise                        float64 `yaml:"noise" mapstructure:"noise"`
	UnboundedChanceBase          float64 `yaml:"unboundedChanceBase" mapstructure:"unboundedChanceBase"`
	UnboundedDecayScale          float64 `yaml:"unboundedDecayScale" mapstructure:"unboundedDecayScale"`
	UnboundedDecaySizeMultiplier float64 `yaml:"unboundedDecaySizeMultiplier,omitempty" mapstructure:"unboundedDecaySizeMultiplier"`
	PriceScale                   float64 `yaml:"priceScale" mapstructure:"priceScale"`
	SizeScale                    float64 `yaml:"sizeScale" mapstructure:"sizeScale"`
	PriceSensitivity             float64 `yaml:"priceSensitivity" mapstructure:"priceSensitivity"`
	SizeSensitivity              float64 `yaml:"sizeSensitivity" mapstructure:"sizeSensitivity"`
	MinPriceNorm                 float64 `yaml:"minPriceNorm,omitempty" mapstructure:"minPriceNorm"`
	MinSizeNorm                  float64 `yaml:"minSizeNorm,omitempty" mapstructure:"minSizeNorm"`
	MinScale                     float64 `yaml:"minScale,omitempty" mapstructure:"minScale"`
}

func (s *StockConfig) normalize() {
	if s.UnboundedDecaySizeMultiplier <= 0 {
		s.UnboundedDecaySizeMultiplier = 1
	}
	if s.MinPriceNorm <= 0 {
		s.MinPriceNorm = 1
	}
	if s.MinSizeNorm <= 0 {
		s.MinSizeNorm = 1
	}
	if s.MinScale <= 0 {
		s.MinScale = 10
	}
}
