package easydrm

import "github.com/hyprside/easydrm/internal/card"

// Mode describes a display timing: its pixel size and refresh rate in
// Hz. Two Modes compare equal with == iff every underlying timing field
// matches — the full structural equality the atomic mode-setting
// protocol requires when deciding whether a commit needs a mode change.
type Mode = card.Mode
