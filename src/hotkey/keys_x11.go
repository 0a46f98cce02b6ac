//go:build !darwin && !windows

package hotkey

// X11 keysyms, as reported by the hook on Linux.
var rawcodes = map[string][]uint16{
	"shift": {0xffe1, 0xffe2},
	"ctrl":  {0xffe3, 0xffe4},
	"alt":   {0xffe9, 0xffea},
	"cmd":   {0xffeb, 0xffec},

	"a": {'a'}, "b": {'b'}, "c": {'c'}, "d": {'d'}, "e": {'e'}, "f": {'f'}, "g": {'g'},
	"h": {'h'}, "i": {'i'}, "j": {'j'}, "k": {'k'}, "l": {'l'}, "m": {'m'}, "n": {'n'},
	"o": {'o'}, "p": {'p'}, "q": {'q'}, "r": {'r'}, "s": {'s'}, "t": {'t'}, "u": {'u'},
	"v": {'v'}, "w": {'w'}, "x": {'x'}, "y": {'y'}, "z": {'z'},

	"0": {'0'}, "1": {'1'}, "2": {'2'}, "3": {'3'}, "4": {'4'},
	"5": {'5'}, "6": {'6'}, "7": {'7'}, "8": {'8'}, "9": {'9'},

	"f1": {0xffbe}, "f2": {0xffbf}, "f3": {0xffc0}, "f4": {0xffc1},
	"f5": {0xffc2}, "f6": {0xffc3}, "f7": {0xffc4}, "f8": {0xffc5},
	"f9": {0xffc6}, "f10": {0xffc7}, "f11": {0xffc8}, "f12": {0xffc9},

	"space":     {0x20},
	"enter":     {0xff0d},
	"esc":       {0xff1b},
	"tab":       {0xff09},
	"backspace": {0xff08},
	"delete":    {0xffff},
	"insert":    {0xff63},
	"home":      {0xff50},
	"end":       {0xff57},
	"pageup":    {0xff55},
	"pagedown":  {0xff56},

	"left":  {0xff51},
	"up":    {0xff52},
	"right": {0xff53},
	"down":  {0xff54},
}
