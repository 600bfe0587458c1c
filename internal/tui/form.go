package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/portal/pkg/domain"
)

// formField is one labelled input. key matches the field names used by
// domain.ValidationError so server and client errors land under the right input.
type formField struct {
	key    string
	label  string
	value  string
	secret bool
	hint   string
	err    string
}

// form is the shared keyboard-driven input list used by the auth and user views.
type form struct {
	fields  []formField
	focus   int
	status  string
	pending bool
}

func newForm(fields ...formField) form {
	return form{fields: fields}
}

func (f form) value(key string) string {
	for _, fl := range f.fields {
		if fl.key == key {
			return fl.value
		}
	}
	return ""
}

func (f *form) setValue(key, v string) {
	for i := range f.fields {
		if f.fields[i].key == key {
			f.fields[i].value = v
		}
	}
}

// fieldErr returns the inline error shown under key, if any.
func (f form) fieldErr(key string) string {
	for _, fl := range f.fields {
		if fl.key == key {
			return fl.err
		}
	}
	return ""
}

func (f *form) clearErrors() {
	for i := range f.fields {
		f.fields[i].err = ""
	}
	f.status = ""
}

// setError spreads err over the fields: validation messages go inline,
// everything else becomes the form-level status line.
func (f *form) setError(err error) {
	f.clearErrors()
	if err == nil {
		return
	}
	if verr, ok := asValidation(err); ok {
		matched := false
		for i := range f.fields {
			if msg := verr.Field(f.fields[i].key); msg != "" {
				f.fields[i].err = msg
				matched = true
			}
		}
		if verr.Message != "" {
			f.status = verr.Message
		} else if !matched {
			f.status = verr.Error()
		}
		return
	}
	f.status = errorText(err)
}

// reset clears values, errors and focus.
func (f *form) reset() {
	for i := range f.fields {
		f.fields[i].value = ""
		f.fields[i].err = ""
	}
	f.focus = 0
	f.status = ""
	f.pending = false
}

// update handles navigation and editing. It returns submitted=true on enter
// in the last field or ctrl+s anywhere. Keys are ignored while pending.
func (f form) update(msg tea.KeyMsg) (form, bool) {
	if f.pending {
		return f, false
	}
	n := len(f.fields)
	switch msg.String() {
	case "ctrl+s":
		return f, true
	case "tab", "down":
		f.focus = (f.focus + 1) % n
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + n) % n
	case "enter":
		if f.focus == n-1 {
			return f, true
		}
		f.focus++
	default:
		fl := &f.fields[f.focus]
		before := fl.value
		if msg.Type == tea.KeyRunes {
			fl.value = appendRunes(fl.value, msg.Runes)
		} else {
			fl.value = editRune(fl.value, msg.String())
		}
		if fl.value != before {
			fl.err = ""
		}
	}
	return f, false
}

func (f form) View() string {
	var b strings.Builder
	for i, fl := range f.fields {
		cursor := " "
		style := metaStyle
		if i == f.focus {
			cursor = accentStyle.Render(">")
			style = selectedStyle
		}
		display := fl.value
		if fl.secret {
			display = mask(fl.value)
		}
		if i == f.focus && !f.pending {
			display += "█"
		}
		line := fmt.Sprintf("%s %s %s", cursor, style.Render(fmt.Sprintf("%-10s", fl.label)), normalStyle.Render(display))
		if fl.hint != "" {
			line += "  " + metaStyle.Render(fl.hint)
		}
		b.WriteString(line + "\n")
		if fl.err != "" {
			fmt.Fprintf(&b, "  %s %s\n", strings.Repeat(" ", 10), errorStyle.Render(fl.err))
		}
	}
	b.WriteString("\n")
	switch {
	case f.pending:
		b.WriteString(dimStyle.Render("  working..."))
	case f.status != "":
		b.WriteString("  " + errorStyle.Render(f.status))
	}
	return b.String()
}

func asValidation(err error) (*domain.ValidationError, bool) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
