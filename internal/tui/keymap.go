package tui

// Key bindings handled in handleKey. Path entry mode reads raw key types
// instead.
const (
	KeyQuit     = "q"
	KeyCtrlC    = "ctrl+c"
	KeyGenerate = "g"
	KeyHistory  = "h"
	KeyUpload   = "u"
)
