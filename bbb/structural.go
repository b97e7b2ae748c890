package bbb

import (
	"fmt"
	"strings"
	"time"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/diagnostic"
)

func structural(tok diagnostic.Token, ref time.Time, block, name, info string) Result {
	m := failures[name].OnFail
	c := ades.Constraint{
		Block:          block,
		Name:           name,
		Level:          ades.LevelFail,
		Status:         ades.StatusNotOK,
		Answer:         ades.AnswerKey(name),
		Indication:     m.Indication,
		SubIndication:  m.SubIndication,
		AdditionalInfo: info,
	}
	return Result{
		TokenID:       tok.ID(),
		Type:          tok.Type(),
		ReferenceTime: ref,
		Constraints:   []ades.Constraint{c},
		Conclusion:    ades.NewConclusion(m.Indication, m.SubIndication, ades.Message{Key: c.Answer, Value: info}),
	}
}

// Cycle returns the result recorded for a token that is part of a
// dependency cycle. Such tokens are never evaluated.
func Cycle(tok diagnostic.Token, ref time.Time, members []string) Result {
	return structural(tok, ref, BlockFormat, NameDependencyCycle,
		fmt.Sprintf("dependency cycle through %s", strings.Join(members, ", ")))
}

// NoPOE returns the result recorded when past validation has no earlier
// proof of existence left to try for tok.
func NoPOE(tok diagnostic.Token, ref time.Time) Result {
	return structural(tok, ref, BlockPastValidation, NamePastPOE,
		fmt.Sprintf("no proof of existence of %s before %s", tok.ID(), ref.Format(time.RFC3339)))
}
