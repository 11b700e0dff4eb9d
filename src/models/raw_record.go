package models

// RawField is one name/value pair of a RawRecord. Literal keeps the source
// text of a structured scalar that reads as absent (false, 0), with Value
// left empty.
type RawField struct {
	Name    string
	Value   string
	Literal string
}

// RawRecord maps source field names (case preserved) to string values.
// Insertion order is kept; setting an existing name overwrites its value
// without moving it.
type RawRecord struct {
	fields []RawField
	pos    map[string]int
}

// NewRawRecord returns an empty record sized for n fields.
func NewRawRecord(n int) RawRecord {
	return RawRecord{
		fields: make([]RawField, 0, n),
		pos:    make(map[string]int, n),
	}
}

// Set stores value under name.
func (r *RawRecord) Set(name, value string) {
	r.put(RawField{Name: name, Value: value})
}

// SetBlank stores an empty value under name and remembers literal as its
// source text.
func (r *RawRecord) SetBlank(name, literal string) {
	r.put(RawField{Name: name, Literal: literal})
}

func (r *RawRecord) put(f RawField) {
	if r.pos == nil {
		r.pos = make(map[string]int)
	}
	if i, ok := r.pos[f.Name]; ok {
		r.fields[i] = f
		return
	}
	r.pos[f.Name] = len(r.fields)
	r.fields = append(r.fields, f)
}

// Get returns the value stored under the exact name.
func (r RawRecord) Get(name string) (string, bool) {
	i, ok := r.pos[name]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// Lookup returns the whole field stored under the exact name.
func (r RawRecord) Lookup(name string) (RawField, bool) {
	i, ok := r.pos[name]
	if !ok {
		return RawField{}, false
	}
	return r.fields[i], true
}

// Fields returns the fields in insertion order. The slice must not be modified.
func (r RawRecord) Fields() []RawField { return r.fields }

func (r RawRecord) Len() int { return len(r.fields) }

// Text is the field as written in the source: Literal when the value was
// blanked, Value otherwise.
func (f RawField) Text() string {
	if f.Value == "" && f.Literal != "" {
		return f.Literal
	}
	return f.Value
}
