package transform

import (
	"encoding/json"
	"math"
	"strconv"

	"cryptoetl/internal/crypto/model"
)

// Fields holds the currency-qualified payload keys for one quote currency.
type Fields struct {
	Price     string // e.g. "usd"
	MarketCap string // e.g. "usd_market_cap"
	Volume24h string // e.g. "usd_24h_vol"
}

// FieldNames returns the payload keys the API uses for currency.
func FieldNames(currency string) Fields {
	return Fields{
		Price:     currency,
		MarketCap: currency + "_market_cap",
		Volume24h: currency + "_24h_vol",
	}
}

// Transform validates raw and extracts the price record for assetID quoted in currency.
// AssetID on the result is always the configured assetID, never a value from the payload.
// It returns a *model.SchemaError when the payload does not have the expected shape.
func Transform(raw model.RawPriceSnapshot, assetID, currency string) (model.PriceRecord, error) {
	entry, ok := raw[assetID]
	if !ok {
		return model.PriceRecord{}, &model.SchemaError{Kind: model.SchemaMissing, Field: assetID}
	}
	fields, ok := entry.(map[string]any)
	if !ok {
		return model.PriceRecord{}, &model.SchemaError{Kind: model.SchemaInvalidType, Field: assetID, Value: entry}
	}

	names := FieldNames(currency)

	price, err := numberField(fields, names.Price)
	if err != nil {
		return model.PriceRecord{}, err
	}
	marketCap, err := numberField(fields, names.MarketCap)
	if err != nil {
		return model.PriceRecord{}, err
	}
	volume, err := numberField(fields, names.Volume24h)
	if err != nil {
		return model.PriceRecord{}, err
	}

	return model.PriceRecord{
		AssetID:      assetID,
		PriceUSD:     price,
		MarketCapUSD: marketCap,
		Volume24hUSD: volume,
	}, nil
}

func numberField(fields map[string]any, name string) (float64, error) {
	v, ok := fields[name]
	if !ok {
		return 0, &model.SchemaError{Kind: model.SchemaMissing, Field: name}
	}

	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			// Syntactically a number but outside float64 range.
			return 0, &model.SchemaError{Kind: model.SchemaInvalidValue, Field: name, Value: v}
		}
		f = parsed
	case float64:
		f = n
	default:
		return 0, &model.SchemaError{Kind: model.SchemaInvalidType, Field: name, Value: v}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, &model.SchemaError{Kind: model.SchemaInvalidValue, Field: name, Value: v}
	}
	return f, nil
}
