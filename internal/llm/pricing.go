package llm

// Pricing holds per-model USD rates per one million tokens.
type Pricing struct {
	Input  float64
	Cached float64
	Output float64
}

// pricingTable is the static per-model rate table.
var pricingTable = map[string]Pricing{
	"gpt-4o-mini":  {Input: 0.15, Cached: 0.075, Output: 0.60},
	"gpt-4o":       {Input: 2.50, Cached: 1.25, Output: 10.00},
	"gpt-4.1-mini": {Input: 0.40, Cached: 0.10, Output: 1.60},
	"gpt-4.1-nano": {Input: 0.10, Cached: 0.025, Output: 0.40},
	"gpt-4.1":      {Input: 2.00, Cached: 0.50, Output: 8.00},
}

// PricingFor returns the rate card for a model, falling back to the default
// model's rates for unknown names.
func PricingFor(model string) Pricing {
	if pricing, ok := pricingTable[model]; ok {
		return pricing
	}
	return pricingTable[DefaultModel]
}

// CostUSD computes the dollar cost of a multi-call turn.
//
// The phases are summed component-wise BEFORE rates are applied, so a
// two-call turn rounds once, not twice:
//
//	cost = (prompt - cached) x input + cached x cachedRate + completion x output
func CostUSD(model string, phases []Usage) float64 {
	pricing := PricingFor(model)
	total := SumUsage(phases)

	uncached := total.PromptTokens - total.CachedTokens
	if uncached < 0 {
		uncached = 0
	}

	const million = 1_000_000.0
	return float64(uncached)/million*pricing.Input +
		float64(total.CachedTokens)/million*pricing.Cached +
		float64(total.CompletionTokens)/million*pricing.Output
}
