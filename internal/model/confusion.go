package model

// Confusion holds confusion-matrix counts for flagged-vs-ground-truth.
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Add records one prediction against its label.
func (c *Confusion) Add(predicted, actual bool) {
	switch {
	case predicted && actual:
		c.TP++
	case predicted && !actual:
		c.FP++
	case !predicted && actual:
		c.FN++
	default:
		c.TN++
	}
}

// Total returns the number of recorded predictions.
func (c Confusion) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Precision is TP/(TP+FP), nil when nothing was predicted positive.
func (c Confusion) Precision() *float64 {
	return Ratio(c.TP, c.TP+c.FP)
}

// Recall is TP/(TP+FN), nil when there are no actual positives.
func (c Confusion) Recall() *float64 {
	return Ratio(c.TP, c.TP+c.FN)
}

// F1 is the harmonic mean of precision and recall. It is nil when either
// input is nil, and 0 when both are 0.
func (c Confusion) F1() *float64 {
	p, r := c.Precision(), c.Recall()
	if p == nil || r == nil {
		return nil
	}
	if *p+*r == 0 {
		zero := 0.0
		return &zero
	}
	f := 2 * *p * *r / (*p + *r)
	return &f
}

// Ratio returns num/den, or nil when den is zero.
func Ratio(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}
