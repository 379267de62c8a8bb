package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// QuestionType is the canonical question kind produced by the extractors.
type QuestionType string

const (
	TypeJudgment       QuestionType = "judgment"
	TypeSingleChoice   QuestionType = "single_choice"
	TypeMultipleChoice QuestionType = "multiple_choice"
)

// OptionMap holds lettered options keyed A-D, preserving discovery order.
// Writes are first-write-wins: a key populated once is never overwritten,
// which keeps an option split off the stem from being clobbered by a later
// explicit option line for the same letter.
type OptionMap struct {
	keys   []string
	values map[string]string
}

func NewOptionMap() *OptionMap {
	return &OptionMap{values: make(map[string]string)}
}

// Set stores value under key unless the key is already populated.
// It reports whether the write took effect.
func (m *OptionMap) Set(key, value string) bool {
	if _, ok := m.values[key]; ok {
		return false
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
	return true
}

func (m *OptionMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OptionMap) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

func (m *OptionMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the option letters in discovery order.
func (m *OptionMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values returns key/value pairs in discovery order.
func (m *OptionMap) Values() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// MarshalJSON emits a JSON object in discovery order. HTML content in option
// values is emitted as-is, not entity-escaped.
func (m *OptionMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeJSONString(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeJSONString(&buf, m.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *OptionMap) UnmarshalJSON(b []byte) error {
	raw := make(map[string]string)
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.keys = nil
	m.values = make(map[string]string, len(raw))
	for _, k := range keys {
		m.keys = append(m.keys, k)
		m.values[k] = raw[k]
	}
	return nil
}

func encodeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a trailing newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

// QuestionRecord is the unit of extractor output. Answer is empty until
// resolved; the validator drops records that never resolve one.
type QuestionRecord struct {
	ID       int          `json:"id"`
	Type     QuestionType `json:"type"`
	Question string       `json:"question"`
	Options  *OptionMap   `json:"options,omitempty"`
	Answer   string       `json:"answer"`
}

// SetAnswer installs the answer once. Later calls are no-ops so a stray
// answer line cannot overwrite an answer already split off the stem.
func (r *QuestionRecord) SetAnswer(answer string) bool {
	if r.Answer != "" {
		return false
	}
	r.Answer = answer
	return true
}

func (r *QuestionRecord) HasAnswer() bool {
	return r.Answer != ""
}

func (r *QuestionRecord) IsChoice() bool {
	return r.Type == TypeSingleChoice || r.Type == TypeMultipleChoice
}

// QuestionSet groups extracted records by type, preserving discovery order
// within each bucket.
type QuestionSet struct {
	Judgment       []*QuestionRecord `json:"judgment"`
	SingleChoice   []*QuestionRecord `json:"single_choice"`
	MultipleChoice []*QuestionRecord `json:"multiple_choice"`
}

func NewQuestionSet() *QuestionSet {
	return &QuestionSet{}
}

func (s *QuestionSet) Add(r *QuestionRecord) {
	switch r.Type {
	case TypeJudgment:
		s.Judgment = append(s.Judgment, r)
	case TypeSingleChoice:
		s.SingleChoice = append(s.SingleChoice, r)
	case TypeMultipleChoice:
		s.MultipleChoice = append(s.MultipleChoice, r)
	}
}

// All returns every record ordered by id, i.e. document discovery order.
func (s *QuestionSet) All() []*QuestionRecord {
	out := make([]*QuestionRecord, 0, s.Total())
	out = append(out, s.Judgment...)
	out = append(out, s.SingleChoice...)
	out = append(out, s.MultipleChoice...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *QuestionSet) Total() int {
	return len(s.Judgment) + len(s.SingleChoice) + len(s.MultipleChoice)
}

func (s *QuestionSet) Counts() map[QuestionType]int {
	return map[QuestionType]int{
		TypeJudgment:       len(s.Judgment),
		TypeSingleChoice:   len(s.SingleChoice),
		TypeMultipleChoice: len(s.MultipleChoice),
	}
}

// Question is a stored question bank row.
type Question struct {
	ID            int       `json:"id"`
	Type          string    `json:"type"`
	Question      string    `json:"question"`
	Options       string    `json:"options,omitempty"` // JSON object text, empty for judgment
	Answer        string    `json:"answer"`
	CategoryBig   string    `json:"category_big"`
	CategorySmall string    `json:"category_small"`
	BatchID       string    `json:"batch_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ImportResult summarizes one import batch.
type ImportResult struct {
	BatchID           string   `json:"batch_id"`
	TotalQuestions    int      `json:"total_questions"`
	ImportedQuestions int      `json:"imported_questions"`
	SkippedQuestions  int      `json:"skipped_questions"`
	Errors            []string `json:"errors"`
	TimeTaken         string   `json:"time_taken"`
}
