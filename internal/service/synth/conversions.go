package synth

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

// GenerateConversions gives each lead at most one conversion with probability p.PConvert.
// Conversion ids are dense over converting leads only.
func GenerateConversions(src Source, p Params, leads []fixture.Lead) []fixture.Conversion {
	minCents := toCents(p.RevenueMin)
	span := int(toCents(p.RevenueMax)-minCents) + 1

	var conversions []fixture.Conversion
	var nextID int64 = 1

	for _, lead := range leads {
		if !chance(src, p.PConvert) {
			continue
		}
		offset := days(src.IntN(p.ConversionWindowDays+1)) +
			time.Duration(src.IntN(24))*time.Hour
		kind := pick(src, fixture.ConversionTypes)
		cents := minCents + int64(src.IntN(span))

		conversions = append(conversions, fixture.Conversion{
			ConversionID:   nextID,
			LeadID:         lead.LeadID,
			ConversionTS:   lead.CreatedAt.Add(offset),
			ConversionType: kind,
			Revenue:        centsToMoney(cents),
		})
		nextID++
	}
	return conversions
}

func toCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

func centsToMoney(cents int64) values.Money {
	m, err := values.NewMoney(decimal.New(cents, -2), values.USD)
	if err != nil {
		// USD is always accepted
		panic(err)
	}
	return m
}
