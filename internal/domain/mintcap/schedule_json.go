package mintcap

import (
	"encoding/json"
	"fmt"
)

// The schedule is persisted configuration, so its codec is strict the same
// way the policy codec is: known fields are popped off a raw map and any
// leftover key fails decoding instead of being silently dropped.

// MarshalJSON writes the schedule wire form.
func (s Schedule) MarshalJSON() ([]byte, error) {
	lines := s.Lines
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(struct {
		Granularity Granularity `json:"granularity"`
		Lines       []Line      `json:"lines"`
	}{s.Granularity, lines})
}

// UnmarshalJSON reads the schedule wire form strictly.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	raw, err := rawFields(data)
	if err != nil {
		return err
	}
	gran, err := popField(raw, "granularity")
	if err != nil {
		return err
	}
	linesMsg, err := popField(raw, "lines")
	if err != nil {
		return err
	}
	if err := noLeftovers(raw, "schedule"); err != nil {
		return err
	}

	out := Schedule{}
	if err := json.Unmarshal(gran, &out.Granularity); err != nil {
		return fmt.Errorf("%w: granularity must be a string", ErrBadSchedule)
	}
	if err := json.Unmarshal(linesMsg, &out.Lines); err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalJSON writes the line wire form.
func (l Line) MarshalJSON() ([]byte, error) {
	periods := l.Periods
	if periods == nil {
		periods = []Period{}
	}
	return json.Marshal(struct {
		Prefix  Address  `json:"prefix"`
		Periods []Period `json:"periods"`
	}{l.Prefix, periods})
}

// UnmarshalJSON reads the line wire form strictly.
func (l *Line) UnmarshalJSON(data []byte) error {
	raw, err := rawFields(data)
	if err != nil {
		return err
	}
	prefix, err := popField(raw, "prefix")
	if err != nil {
		return err
	}
	periods, err := popField(raw, "periods")
	if err != nil {
		return err
	}
	if err := noLeftovers(raw, "line"); err != nil {
		return err
	}

	out := Line{}
	if err := json.Unmarshal(prefix, &out.Prefix); err != nil {
		return err
	}
	if err := json.Unmarshal(periods, &out.Periods); err != nil {
		return err
	}
	*l = out
	return nil
}

// MarshalJSON writes the period wire form.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartMs int64   `json:"start_ms"`
		Ceiling float64 `json:"ceiling"`
	}{p.StartMs, p.Ceiling})
}

// UnmarshalJSON reads the period wire form strictly.
func (p *Period) UnmarshalJSON(data []byte) error {
	raw, err := rawFields(data)
	if err != nil {
		return err
	}
	start, err := popField(raw, "start_ms")
	if err != nil {
		return err
	}
	ceiling, err := popField(raw, "ceiling")
	if err != nil {
		return err
	}
	if err := noLeftovers(raw, "period"); err != nil {
		return err
	}

	out := Period{}
	if err := json.Unmarshal(start, &out.StartMs); err != nil {
		return fmt.Errorf("%w: start_ms must be an integer", ErrBadSchedule)
	}
	if err := json.Unmarshal(ceiling, &out.Ceiling); err != nil {
		return fmt.Errorf("%w: ceiling must be a number", ErrBadSchedule)
	}
	*p = out
	return nil
}

func rawFields(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSchedule, err)
	}
	return raw, nil
}

func popField(raw map[string]json.RawMessage, key string) (json.RawMessage, error) {
	msg, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrBadSchedule, key)
	}
	delete(raw, key)
	return msg, nil
}

func noLeftovers(raw map[string]json.RawMessage, what string) error {
	for key := range raw {
		return fmt.Errorf("%w: unknown %s field %q", ErrBadSchedule, what, key)
	}
	return nil
}
