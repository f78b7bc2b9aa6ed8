package judge

// Pricing holds per-million-token USD rates for a judge model.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// DefaultPricing matches gpt-4o-mini list prices.
func DefaultPricing() Pricing {
	return Pricing{InputPerMTok: 0.15, OutputPerMTok: 0.60}
}

// Cost computes the USD cost of one evaluation.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*p.InputPerMTok +
		float64(outputTokens)/1_000_000*p.OutputPerMTok
}

// EstimateTokens approximates token count from text length, at roughly
// four characters per token. Used when the provider reports no usage.
func EstimateTokens(text string) int {
	return len(text) / 4
}
