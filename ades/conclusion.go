package ades

// Message is a keyed entry of a conclusion's errors, warnings or infos.
type Message struct {
	Key   string `json:"key" xml:"Key"`
	Value string `json:"value,omitempty" xml:"Value,omitempty"`
}

// Conclusion is the verdict of one validation process.
type Conclusion struct {
	Indication    Indication    `json:"indication" xml:"Indication"`
	SubIndication SubIndication `json:"subIndication,omitempty" xml:"SubIndication,omitempty"`
	Errors        []Message     `json:"errors,omitempty" xml:"Errors>Error,omitempty"`
	Warnings      []Message     `json:"warnings,omitempty" xml:"Warnings>Warning,omitempty"`
	Infos         []Message     `json:"infos,omitempty" xml:"Infos>Info,omitempty"`
}

// Passed returns a PASSED conclusion carrying the given warnings and infos.
func Passed(warnings, infos []Message) Conclusion {
	return Conclusion{Indication: IndicationPassed, Warnings: warnings, Infos: infos}
}

// NewConclusion returns a conclusion with the given verdict.
func NewConclusion(ind Indication, sub SubIndication, errs ...Message) Conclusion {
	return Conclusion{Indication: ind, SubIndication: sub, Errors: errs}
}

// IsPassed returns true if the indication is PASSED.
func (c Conclusion) IsPassed() bool {
	return c.Indication.IsPassed()
}

// IsFailed returns true if the indication is FAILED.
func (c Conclusion) IsFailed() bool {
	return c.Indication == IndicationFailed || c.Indication == IndicationTotalFailed
}

// IsIndeterminate returns true if the indication is INDETERMINATE.
func (c Conclusion) IsIndeterminate() bool {
	return c.Indication == IndicationIndeterminate
}

// HasWarnings reports whether a passing conclusion was downgraded by
// warning level constraints.
func (c Conclusion) HasWarnings() bool {
	return len(c.Warnings) > 0
}

// Total returns a copy of c with its indication converted to the signature
// level form.
func (c Conclusion) Total() Conclusion {
	out := c.clone()
	out.Indication = c.Indication.Total()
	return out
}

// WithWarnings returns a copy of c with extra warnings appended.
func (c Conclusion) WithWarnings(ws ...Message) Conclusion {
	out := c.clone()
	out.Warnings = append(out.Warnings, ws...)
	return out
}

func (c Conclusion) clone() Conclusion {
	out := c
	out.Errors = append([]Message(nil), c.Errors...)
	out.Warnings = append([]Message(nil), c.Warnings...)
	out.Infos = append([]Message(nil), c.Infos...)
	return out
}

// Worst returns the most severe conclusion. Ties go to the earliest
// argument. The zero Conclusion is returned when cs is empty.
func Worst(cs ...Conclusion) Conclusion {
	var out Conclusion
	for i, c := range cs {
		if i == 0 || c.Indication.Severity() > out.Indication.Severity() {
			out = c
		}
	}
	return out
}

// Best returns the least severe conclusion. Ties go to the earliest
// argument.
func Best(cs ...Conclusion) Conclusion {
	var out Conclusion
	for i, c := range cs {
		if i == 0 || c.Indication.Severity() < out.Indication.Severity() {
			out = c
		}
	}
	return out
}
