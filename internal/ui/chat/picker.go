// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// picker is the persona selection overlay.
type picker struct {
	open    bool
	options []string
	cursor  int
}

// openAt shows the picker with the cursor on current.
func (p *picker) openAt(options []string, current string) {
	p.options = options
	p.open = true
	p.cursor = 0
	for i, o := range options {
		if o == current {
			p.cursor = i
			break
		}
	}
}

func (p *picker) close() {
	p.open = false
}

// move shifts the cursor, wrapping at both ends.
func (p *picker) move(delta int) {
	n := len(p.options)
	if n == 0 {
		return
	}
	p.cursor = ((p.cursor+delta)%n + n) % n
}

func (p picker) selected() string {
	if p.cursor < 0 || p.cursor >= len(p.options) {
		return ""
	}
	return p.options[p.cursor]
}
