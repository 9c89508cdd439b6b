package schema

import (
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rule validates and coerces one field of form-encoded input.
//
// Parse receives every submitted value for the field (nil when the field was
// not submitted) and the validation clock. It returns the coerced value, or
// nil when an optional field was absent, plus any messages.
type Rule interface {
	Name() string
	Parse(raw []string, now time.Time) (any, []string)
}

const (
	msgRequired     = "Required"
	msgExpectedNum  = "Expected number, received nan"
	msgExpectedInt  = "Expected integer, received float"
	msgTooLarge     = "Number too large"
	msgInvalidDate  = "Invalid date"
	msgInvalidEmail = "Invalid email"
	msgInvalidUUID  = "Invalid uuid"
)

// DateLayout is the calendar date format accepted for date fields
const DateLayout = "2006-01-02"

func firstValue(raw []string) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	return raw[0], true
}

// ParseBool applies the form boolean convention: only the literal "true" is
// true, every other value is false.
func ParseBool(s string) bool {
	return s == "true"
}

// TextRule is a single string field
type TextRule struct {
	name     string
	min      int
	minMsg   string
	optional bool
	email    string
	uuid     string
	trim     bool
}

// Text declares a required string field
func Text(name string) *TextRule {
	return &TextRule{name: name}
}

// Min requires at least n characters
func (r *TextRule) Min(n int, message string) *TextRule {
	r.min, r.minMsg = n, message
	return r
}

// Optional lets the field be absent
func (r *TextRule) Optional() *TextRule {
	r.optional = true
	return r
}

// Email requires a valid email address
func (r *TextRule) Email(message string) *TextRule {
	if message == "" {
		message = msgInvalidEmail
	}
	r.email = message
	return r
}

// UUID requires a valid uuid
func (r *TextRule) UUID(message string) *TextRule {
	if message == "" {
		message = msgInvalidUUID
	}
	r.uuid = message
	return r
}

// Trim strips surrounding whitespace before checks
func (r *TextRule) Trim() *TextRule {
	r.trim = true
	return r
}

func (r *TextRule) Name() string { return r.name }

func (r *TextRule) Parse(raw []string, _ time.Time) (any, []string) {
	s, ok := firstValue(raw)
	if !ok {
		if r.optional {
			return nil, nil
		}
		return nil, []string{msgRequired}
	}
	if r.trim {
		s = strings.TrimSpace(s)
	}
	var errs []string
	if r.min > 0 && len([]rune(s)) < r.min {
		errs = append(errs, r.minMsg)
	}
	if r.email != "" {
		if addr, err := mail.ParseAddress(s); err != nil || addr.Address != s {
			errs = append(errs, r.email)
		}
	}
	if r.uuid != "" {
		if _, err := uuid.Parse(s); err != nil {
			errs = append(errs, r.uuid)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return s, nil
}

type numberBound struct {
	value   func(now time.Time) float64
	message string
	strict  bool
}

// NumberRule is a numeric field coerced from its textual form
type NumberRule struct {
	name     string
	integer  bool
	optional bool
	mins     []numberBound
	maxs     []numberBound
}

// Number declares a required numeric field
func Number(name string) *NumberRule {
	return &NumberRule{name: name}
}

// Int declares a required integer field
func Int(name string) *NumberRule {
	return &NumberRule{name: name, integer: true}
}

// Optional lets the field be absent
func (r *NumberRule) Optional() *NumberRule {
	r.optional = true
	return r
}

// Min requires value >= n
func (r *NumberRule) Min(n float64, message string) *NumberRule {
	r.mins = append(r.mins, numberBound{value: constant(n), message: message})
	return r
}

// Max requires value <= n
func (r *NumberRule) Max(n float64, message string) *NumberRule {
	r.maxs = append(r.maxs, numberBound{value: constant(n), message: message})
	return r
}

// MaxFunc requires value <= fn(now), for bounds that move with the clock
func (r *NumberRule) MaxFunc(fn func(now time.Time) float64, message string) *NumberRule {
	r.maxs = append(r.maxs, numberBound{value: fn, message: message})
	return r
}

// Positive requires value > 0
func (r *NumberRule) Positive(message string) *NumberRule {
	r.mins = append(r.mins, numberBound{value: constant(0), message: message, strict: true})
	return r
}

// NonNegative requires value >= 0
func (r *NumberRule) NonNegative(message string) *NumberRule {
	return r.Min(0, message)
}

func constant(n float64) func(time.Time) float64 {
	return func(time.Time) float64 { return n }
}

func (r *NumberRule) Name() string { return r.name }

func (r *NumberRule) Parse(raw []string, now time.Time) (any, []string) {
	s, ok := firstValue(raw)
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		if r.optional {
			return nil, nil
		}
		return nil, []string{msgRequired}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, []string{msgExpectedNum}
	}
	if r.integer && n != math.Trunc(n) {
		return nil, []string{msgExpectedInt}
	}
	// integer columns are 32-bit on every supported driver
	if r.integer && (n > math.MaxInt32 || n < math.MinInt32) {
		return nil, []string{msgTooLarge}
	}
	var errs []string
	for _, b := range r.mins {
		limit := b.value(now)
		if n < limit || (b.strict && n == limit) {
			errs = append(errs, b.message)
		}
	}
	for _, b := range r.maxs {
		if n > b.value(now) {
			errs = append(errs, b.message)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if r.integer {
		return int(n), nil
	}
	return n, nil
}

// BoolRule is a checkbox style field
type BoolRule struct {
	name string
	def  bool
}

// Bool declares a boolean field. Absent means the default, which is false
// unless changed with Default.
func Bool(name string) *BoolRule {
	return &BoolRule{name: name}
}

// Default sets the value used when the field is absent
func (r *BoolRule) Default(v bool) *BoolRule {
	r.def = v
	return r
}

func (r *BoolRule) Name() string { return r.name }

func (r *BoolRule) Parse(raw []string, _ time.Time) (any, []string) {
	s, ok := firstValue(raw)
	if !ok {
		return r.def, nil
	}
	return ParseBool(s), nil
}

// EnumRule is a single choice from a fixed option set
type EnumRule struct {
	name     string
	options  []string
	def      string
	optional bool
}

// Enum declares a required single-choice field
func Enum(name string, options ...string) *EnumRule {
	return &EnumRule{name: name, options: options}
}

// Default sets the value used when the field is absent
func (r *EnumRule) Default(v string) *EnumRule {
	r.def = v
	return r
}

// Optional lets the field be absent
func (r *EnumRule) Optional() *EnumRule {
	r.optional = true
	return r
}

// Options returns the allowed values in declaration order
func (r *EnumRule) Options() []string {
	return append([]string(nil), r.options...)
}

func (r *EnumRule) Name() string { return r.name }

func (r *EnumRule) Parse(raw []string, _ time.Time) (any, []string) {
	s, ok := firstValue(raw)
	if !ok || (s == "" && (r.def != "" || r.optional)) {
		switch {
		case r.def != "":
			return r.def, nil
		case r.optional:
			return nil, nil
		}
		return nil, []string{msgRequired}
	}
	if !contains(r.options, s) {
		return nil, []string{enumMessage(r.options, s)}
	}
	return s, nil
}

func enumMessage(options []string, got string) string {
	quoted := make([]string, len(options))
	for i, o := range options {
		quoted[i] = "'" + o + "'"
	}
	return fmt.Sprintf("Invalid enum value. Expected %s, received '%s'", strings.Join(quoted, " | "), got)
}

// ListRule is a multi-value field, optionally drawn from a fixed option set
type ListRule struct {
	name     string
	options  []string
	optional bool
}

// EnumSet declares a set of values drawn from options
func EnumSet(name string, options ...string) *ListRule {
	return &ListRule{name: name, options: options}
}

// Strings declares a list of free strings
func Strings(name string) *ListRule {
	return &ListRule{name: name}
}

// Optional lets the field be absent
func (r *ListRule) Optional() *ListRule {
	r.optional = true
	return r
}

// Options returns the allowed values, empty for free lists
func (r *ListRule) Options() []string {
	return append([]string(nil), r.options...)
}

func (r *ListRule) Name() string { return r.name }

func (r *ListRule) Parse(raw []string, _ time.Time) (any, []string) {
	if len(r.options) == 0 {
		raw = splitLines(raw)
	}
	values := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if len(r.options) > 0 {
			if !contains(r.options, v) {
				return nil, []string{enumMessage(r.options, v)}
			}
			// set semantics for enumerated lists
			if seen[v] {
				continue
			}
			seen[v] = true
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		if r.optional {
			return nil, nil
		}
		return nil, []string{msgRequired}
	}
	return values, nil
}

// splitLines lets a free list arrive as one newline separated value from a
// textarea
func splitLines(raw []string) []string {
	var out []string
	for _, v := range raw {
		out = append(out, strings.Split(v, "\n")...)
	}
	return out
}

// DateRule is a calendar date field
type DateRule struct {
	name      string
	notBefore func(now time.Time) time.Time
	beforeMsg string
	optional  bool
}

// Date declares a required date field. Accepts 2006-01-02 or RFC 3339.
func Date(name string) *DateRule {
	return &DateRule{name: name}
}

// NotBeforeToday rejects dates earlier than the validation day
func (r *DateRule) NotBeforeToday(message string) *DateRule {
	r.notBefore = startOfDay
	r.beforeMsg = message
	return r
}

// Optional lets the field be absent
func (r *DateRule) Optional() *DateRule {
	r.optional = true
	return r
}

func (r *DateRule) Name() string { return r.name }

func (r *DateRule) Parse(raw []string, now time.Time) (any, []string) {
	s, ok := firstValue(raw)
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		if r.optional {
			return nil, nil
		}
		return nil, []string{msgRequired}
	}
	t, err := ParseDate(s, now.Location())
	if err != nil {
		return nil, []string{msgInvalidDate}
	}
	if r.notBefore != nil && t.Before(r.notBefore(now)) {
		return nil, []string{r.beforeMsg}
	}
	return t, nil
}

// ParseDate reads a calendar date or an RFC 3339 timestamp
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func startOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
