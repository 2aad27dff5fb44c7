package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects the upstream engine, the prompt strategy, and the credit cost
// of a generation request.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeBronze   Mode = "bronze" // alternate try-on engine
	ModePlus     Mode = "plus"   // three views: front, side, full
	ModeVideo    Mode = "video"
)

var modeCosts = map[Mode]decimal.Decimal{
	ModeStandard: decimal.NewFromInt(1),
	ModeBronze:   decimal.New(5, -1),
	ModePlus:     decimal.NewFromInt(3),
	ModeVideo:    decimal.NewFromInt(5),
}

// Cost returns the credit price of the mode.
func (m Mode) Cost() decimal.Decimal {
	if c, ok := modeCosts[m]; ok {
		return c
	}
	return modeCosts[ModeStandard]
}

// Views reports how many upstream submissions the mode fans out to.
func (m Mode) Views() int {
	if m == ModePlus {
		return 3
	}
	return 1
}

// NormalizeMode sanitizes free-form client input into a supported mode.
// The legacy isPlusMode flag wins over the mode field when set.
func NormalizeMode(raw string, plus bool) Mode {
	if plus {
		return ModePlus
	}
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeBronze:
		return ModeBronze
	case ModePlus:
		return ModePlus
	case ModeVideo:
		return ModeVideo
	default:
		return ModeStandard
	}
}

// GarmentType categorizes the uploaded garment. It only informs prompt
// phrasing and is never validated against the image content.
type GarmentType string

const (
	GarmentShirt      GarmentType = "shirt"
	GarmentLongDress  GarmentType = "long_dress"
	GarmentShortDress GarmentType = "short_dress"
	GarmentLongSkirt  GarmentType = "long_skirt"
	GarmentShortSkirt GarmentType = "short_skirt"
	GarmentPants      GarmentType = "pants"
	GarmentJacket     GarmentType = "jacket"
	GarmentOther      GarmentType = "other"
)
