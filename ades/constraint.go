package ades

import (
	"fmt"
	"strings"
)

// Status is the outcome recorded for one evaluated constraint.
type Status string

const (
	StatusOK          Status = "OK"
	StatusNotOK       Status = "NOT_OK"
	StatusWarning     Status = "WARNING"
	StatusInformation Status = "INFORMATION"
	StatusIgnored     Status = "IGNORED"
)

// Level is the severity configured for a constraint.
type Level string

const (
	LevelFail   Level = "FAIL"
	LevelWarn   Level = "WARN"
	LevelInform Level = "INFORM"
	LevelIgnore Level = "IGNORE"
)

// ParseLevel parses a constraint level, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelFail, LevelWarn, LevelInform, LevelIgnore:
		return l, nil
	default:
		return "", fmt.Errorf("unknown constraint level %q", s)
	}
}

// StatusOnFailure returns the status recorded when a constraint of this
// level does not hold.
func (l Level) StatusOnFailure() Status {
	switch l {
	case LevelWarn:
		return StatusWarning
	case LevelInform:
		return StatusInformation
	case LevelIgnore:
		return StatusIgnored
	default:
		return StatusNotOK
	}
}

// Constraint is one evaluated check in a token's trace. Values are created
// once per evaluation and never modified after they are appended.
type Constraint struct {
	Block    string `json:"block" xml:"Block,attr"`
	Name     string `json:"name" xml:"Name"`
	Level    Level  `json:"level" xml:"Level,attr"`
	Status   Status `json:"status" xml:"Status"`
	Expected string `json:"expected,omitempty" xml:"Expected,omitempty"`
	// Answer is the message key explaining a non OK status.
	Answer         string        `json:"answer,omitempty" xml:"Answer,omitempty"`
	Indication     Indication    `json:"indication,omitempty" xml:"Indication,omitempty"`
	SubIndication  SubIndication `json:"subIndication,omitempty" xml:"SubIndication,omitempty"`
	AdditionalInfo string        `json:"additionalInfo,omitempty" xml:"AdditionalInfo,omitempty"`
}

// IsOK reports whether the constraint holds.
func (c Constraint) IsOK() bool {
	return c.Status == StatusOK
}

// Blocking reports whether the constraint stopped its pipeline.
func (c Constraint) Blocking() bool {
	return c.Level == LevelFail && c.Status == StatusNotOK
}

// AnswerKey returns the message key used when name does not hold.
func AnswerKey(name string) string {
	return name + "_ANS"
}
