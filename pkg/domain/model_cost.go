package domain

import (
	"fmt"
	"math"
)

// ModelCost is the price in USD per 1K tokens.
type ModelCost struct {
	Prompt     float64
	Completion float64
}

type CostTable map[string]ModelCost

func DefaultCostTable() CostTable {
	return CostTable{
		"gpt-4-vision-preview": {Prompt: 0.01, Completion: 0.03},
		"gpt-4-turbo":          {Prompt: 0.01, Completion: 0.03},
		"gpt-4-turbo-preview":  {Prompt: 0.01, Completion: 0.03},
		"gpt-4":                {Prompt: 0.03, Completion: 0.06},
		"gpt-4-32k":            {Prompt: 0.06, Completion: 0.12},
		"gpt-3.5-turbo":        {Prompt: 0.0005, Completion: 0.0015},
		"gpt-3.5-turbo-0125":   {Prompt: 0.0005, Completion: 0.0015},
	}
}

// Price computes the cost of a completion, rounded to 2 decimal places.
func (t CostTable) Price(model string, promptTokens, completionTokens int) (float64, error) {
	cost, ok := t[model]
	if !ok {
		return 0, fmt.Errorf("no pricing for model %q: %w", model, ErrUnsupportedModel)
	}

	price := (float64(promptTokens)*cost.Prompt + float64(completionTokens)*cost.Completion) / 1000
	return math.Round(price*100) / 100, nil
}

// Validate reports an error when any of the given models is missing from
// the table. Called at startup so a pricing gap never surfaces mid-generation.
func (t CostTable) Validate(models []string) error {
	for _, m := range models {
		if _, ok := t[m]; !ok {
			return fmt.Errorf("model %q has no pricing entry: %w", m, ErrUnsupportedModel)
		}
	}
	return nil
}
