// Package hotkey matches key combinations such as "Ctrl+Alt+T" against the
// raw key stream of the global hook.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	hook "github.com/robotn/gohook"
)

var ErrEmpty = errors.New("empty hotkey")

type keyState struct {
	name     string
	rawcodes []uint16
	char     rune
	pressed  bool
}

// Combo tracks which keys of one combination are held. It is owned by the
// hook goroutine and is not safe for concurrent use.
type Combo struct {
	spec string
	keys []keyState
}

// Parse builds a matcher for spec. Every part must name a known key.
func Parse(spec string) (*Combo, error) {
	names := parseHotkey(spec)
	if len(names) == 0 {
		return nil, ErrEmpty
	}
	c := &Combo{spec: spec}
	for _, name := range names {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", spec, name)
		}
		ks := keyState{name: name, rawcodes: codes}
		if utf8.RuneCountInString(name) == 1 {
			ks.char, _ = utf8.DecodeRuneInString(name)
		}
		c.keys = append(c.keys, ks)
	}
	return c, nil
}

func (c *Combo) String() string { return c.spec }

// Observe feeds one hook event and reports whether it completed the
// combination. Held keys are cleared after a match so it fires once.
func (c *Combo) Observe(ev hook.Event) bool {
	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		for i := range c.keys {
			if c.keys[i].matches(ev) {
				c.keys[i].pressed = true
			}
		}
		for i := range c.keys {
			if !c.keys[i].pressed {
				return false
			}
		}
		for i := range c.keys {
			c.keys[i].pressed = false
		}
		return true
	case hook.KeyUp:
		for i := range c.keys {
			if c.keys[i].matches(ev) {
				c.keys[i].pressed = false
			}
		}
	}
	return false
}

func (k keyState) matches(ev hook.Event) bool {
	for _, code := range k.rawcodes {
		if ev.Rawcode == code {
			return true
		}
	}
	return k.char != 0 && ev.Keychar != 0 && strings.ToLower(string(ev.Keychar)) == string(k.char)
}

// parseHotkey normalizes "Ctrl+Win+e" to ["ctrl" "cmd" "e"].
func parseHotkey(spec string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(spec), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

var namedKeys = map[string][]uint16{
	"ctrl":      {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":       {164, 165}, // VK_LMENU, VK_RMENU
	"shift":     {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":       {91, 92},   // VK_LWIN, VK_RWIN
	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to Windows virtual-key codes, with both
// left and right variants for modifiers.
func keyNameToRawcodes(name string) []uint16 {
	name = strings.ToLower(strings.TrimSpace(name))
	if codes, ok := namedKeys[name]; ok {
		return codes
	}
	if len(name) == 1 {
		switch ch := name[0]; {
		case ch >= 'a' && ch <= 'z':
			return []uint16{uint16(ch-'a') + 65}
		case ch >= '0' && ch <= '9':
			return []uint16{uint16(ch-'0') + 48}
		}
	}
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 24 && name == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 is 112
	}
	return nil
}
