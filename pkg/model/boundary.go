package model

// Boundary reaction ID prefixes follow the COBRA naming convention so
// downstream analysis tools recognize the reactions.
const (
	ExchangePrefix = "EX_"
	SinkPrefix     = "SK_"
)

// NewExchange creates a reversible exchange reaction that moves the
// metabolite across the model boundary.
func NewExchange(met *Metabolite) *Reaction {
	return &Reaction{
		ID:          ExchangePrefix + met.ID,
		Name:        met.Name + " exchange",
		LowerBound:  -1000.0,
		UpperBound:  1000.0,
		Metabolites: map[string]float64{met.ID: -1.0},
	}
}

// NewSink creates a sink reaction that removes the metabolite from the
// model. Sinks only drain, they never supply.
func NewSink(met *Metabolite) *Reaction {
	return &Reaction{
		ID:          SinkPrefix + met.ID,
		Name:        met.Name + " sink",
		LowerBound:  0.0,
		UpperBound:  1000.0,
		Metabolites: map[string]float64{met.ID: -1.0},
	}
}
