package hotkey

import (
	"log"
	"strings"
)

// keyNameToRawcodes maps a key name to the hook rawcodes of the current
// platform. Modifiers return both left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if alias, ok := keyAliases[keyName]; ok {
		keyName = alias
	}
	codes, ok := rawcodes[keyName]
	if !ok {
		log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
		return nil
	}
	return codes
}

var keyAliases = map[string]string{
	"win":     "cmd",
	"super":   "cmd",
	"return":  "enter",
	"escape":  "esc",
	"del":     "delete",
	"ins":     "insert",
	"pgup":    "pageup",
	"pgdn":    "pagedown",
	"command": "cmd",
	"option":  "alt",
	"control": "ctrl",
}
