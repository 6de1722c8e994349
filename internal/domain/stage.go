package domain

import "fmt"

// Stage is a session's position in the intake sequence.
type Stage int

const (
	StageGreeting Stage = iota
	StageName
	StageAge
	StageInterest
	StageQuery
	StageCompleted
)

var stageNames = [...]string{
	StageGreeting:  "greeting",
	StageName:      "name",
	StageAge:       "age",
	StageInterest:  "interest",
	StageQuery:     "query",
	StageCompleted: "completed",
}

func (s Stage) String() string {
	if s < StageGreeting || s > StageCompleted {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Next returns the stage that follows s. Completed is terminal.
func (s Stage) Next() Stage {
	if s >= StageCompleted {
		return StageCompleted
	}
	return s + 1
}

// Collecting reports whether the stage still gathers profile fields.
func (s Stage) Collecting() bool {
	return s < StageQuery
}

// ParseStage is the inverse of Stage.String.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("domain: unknown stage %q", name)
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	parsed, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
