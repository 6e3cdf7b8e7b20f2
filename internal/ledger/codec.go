package ledger

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/google/uuid"
)

// MarshalJSON writes {"<year>": {"<month>": MonthData}}. Quarantined months are
// written back exactly as they were read, and decoded months keep their keys.
func (t *Tree) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]any, len(t.years)+len(t.quarantine))

	for yk, months := range t.quarantine {
		for mk, raw := range months {
			if out[yk] == nil {
				out[yk] = make(map[string]any)
			}

			out[yk][mk] = json.RawMessage(raw)
		}
	}

	for p, m := range t.All() {
		key, ok := t.keys[p]
		if !ok {
			key = nodeKey{year: strconv.Itoa(p.Year), month: strconv.Itoa(p.Month)}
		}

		if out[key.year] == nil {
			out[key.year] = make(map[string]any)
		}

		if _, taken := out[key.year][key.month]; taken {
			return nil, fmt.Errorf("encoding document tree: %s would overwrite quarantined key %s/%s", p, key.year, key.month)
		}

		out[key.year][key.month] = m
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes each month independently. A month that fails to decode
// or validate is quarantined instead of failing the whole tree.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding document tree: %w", err)
	}

	*t = Tree{years: make(map[int]map[int]*Month), keys: make(map[Period]nodeKey)}

	for _, yk := range canonicalFirst(slices.Collect(maps.Keys(raw))) {
		months := raw[yk]

		for _, mk := range canonicalFirst(slices.Collect(maps.Keys(months))) {
			body := months[mk]

			p, m, err := decodeMonth(yk, mk, body)
			if err != nil {
				t.quarantineNode(yk, mk, body, p, err)
				continue
			}

			if t.years[p.Year] == nil {
				t.years[p.Year] = make(map[int]*Month)
			}

			if _, dup := t.years[p.Year][p.Month]; dup {
				t.quarantineNode(yk, mk, body, p, fmt.Errorf("duplicate key for %s", p))
				continue
			}

			t.years[p.Year][p.Month] = m
			t.keys[p] = nodeKey{year: yk, month: mk}
		}
	}

	return nil
}

// canonicalFirst orders keys so that "6" is decoded before an alias such as
// "06"; the alias is the one quarantined as a duplicate.
func canonicalFirst(keys []string) []string {
	slices.SortFunc(keys, func(a, b string) int {
		if ca, cb := isCanonical(a), isCanonical(b); ca != cb {
			if ca {
				return -1
			}

			return 1
		}

		return cmp.Compare(a, b)
	})

	return keys
}

func isCanonical(key string) bool {
	n, err := strconv.Atoi(key)
	return err == nil && strconv.Itoa(n) == key
}

func decodeMonth(yk, mk string, body json.RawMessage) (Period, *Month, error) {
	var p Period

	y, err := strconv.Atoi(yk)
	if err != nil {
		return p, nil, fmt.Errorf("year key %q: %w", yk, err)
	}

	mo, err := strconv.Atoi(mk)
	if err != nil {
		return p, nil, fmt.Errorf("month key %q: %w", mk, err)
	}

	p = Period{Year: y, Month: mo}
	if err := p.Validate(); err != nil {
		return p, nil, err
	}

	var m *Month
	if err := json.Unmarshal(body, &m); err != nil {
		return p, nil, fmt.Errorf("month body: %w", err)
	}

	if m == nil {
		return p, nil, fmt.Errorf("month body is null")
	}

	if err := m.validate(); err != nil {
		return p, nil, err
	}

	m.normalize()
	m.backfillNoteIDs(p)

	return p, m, nil
}

// normalize replaces absent lists with empty ones so a decoded month is
// persisted in the same shape as a freshly created one.
func (m *Month) normalize() {
	m.Sales.normalize()
	m.Purchase.normalize()
	m.Bank.normalize()

	if m.Other == nil {
		m.Other = []OtherCategory{}
	}

	for i := range m.Other {
		m.Other[i].Document.normalize()
	}

	if m.Notes == nil {
		m.Notes = []Note{}
	}
}

func (c *Category) normalize() {
	if c.Files == nil {
		c.Files = []File{}
	}

	if c.Notes == nil {
		c.Notes = []Note{}
	}

	for i := range c.Files {
		if c.Files[i].Notes == nil {
			c.Files[i].Notes = []Note{}
		}
	}
}

// backfillNoteIDs gives notes persisted before IDs existed a fresh one, so
// every note can be targeted by ID from now on.
func (m *Month) backfillNoteIDs(p Period) {
	for _, notes := range m.NoteSlots(p) {
		for i := range *notes {
			if (*notes)[i].ID == uuid.Nil {
				(*notes)[i].ID = uuid.New()
			}
		}
	}
}

func (m *Month) validate() error {
	switch m.ActiveStatus {
	case StatusActive, StatusInactive:
	default:
		return fmt.Errorf("monthActiveStatus %q", m.ActiveStatus)
	}

	names := make(map[string]struct{}, len(m.Other))
	for _, o := range m.Other {
		if o.Name == "" {
			return fmt.Errorf("other category without name")
		}

		if _, dup := names[o.Name]; dup {
			return fmt.Errorf("duplicate other category %q", o.Name)
		}

		names[o.Name] = struct{}{}
	}

	return nil
}

func (t *Tree) quarantineNode(yk, mk string, body json.RawMessage, p Period, err error) {
	if t.quarantine == nil {
		t.quarantine = make(map[string]map[string][]byte)
	}

	if t.quarantine[yk] == nil {
		t.quarantine[yk] = make(map[string][]byte)
	}

	t.quarantine[yk][mk] = body
	t.quarantined = append(t.quarantined, QuarantinedNode{YearKey: yk, MonthKey: mk, Reason: err.Error()})

	if p.Validate() == nil {
		if t.blocked == nil {
			t.blocked = make(PeriodSet)
		}

		t.blocked.Add(p)
	}
}
