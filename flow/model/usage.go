package model

// Usage reports token consumption for one model call.
type Usage struct {
	InputTokens  int
	OutputTokens int

	// CostUSD is the estimated cost of the call, derived from the static
	// pricing table. Zero for unknown models.
	CostUSD float64
}

// Add combines two usage reports.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		CostUSD:      u.CostUSD + o.CostUSD,
	}
}

// Pricing defines input and output token costs in USD per 1M tokens.
type Pricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// Static pricing for the models the pipeline typically runs on.
// Prices subject to change; update as providers adjust them.
var modelPricing = map[string]Pricing{
	"gpt-4o":                     {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":                {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":                {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo":              {InputPer1M: 0.50, OutputPer1M: 1.50},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"gemini-1.5-pro":             {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":           {InputPer1M: 0.075, OutputPer1M: 0.30},
}

// EstimateUsage builds a Usage for a call against modelName. Unknown
// models report zero cost but still carry token counts.
func EstimateUsage(modelName string, inputTokens, outputTokens int) Usage {
	u := Usage{InputTokens: inputTokens, OutputTokens: outputTokens}
	p, ok := modelPricing[modelName]
	if !ok {
		return u
	}
	u.CostUSD = float64(inputTokens)/1e6*p.InputPer1M + float64(outputTokens)/1e6*p.OutputPer1M
	return u
}
