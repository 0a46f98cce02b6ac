//go:build windows

package hotkey

// Windows virtual key codes.
var rawcodes = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"a": {65}, "b": {66}, "c": {67}, "d": {68}, "e": {69}, "f": {70}, "g": {71},
	"h": {72}, "i": {73}, "j": {74}, "k": {75}, "l": {76}, "m": {77}, "n": {78},
	"o": {79}, "p": {80}, "q": {81}, "r": {82}, "s": {83}, "t": {84}, "u": {85},
	"v": {86}, "w": {87}, "x": {88}, "y": {89}, "z": {90},

	"0": {48}, "1": {49}, "2": {50}, "3": {51}, "4": {52},
	"5": {53}, "6": {54}, "7": {55}, "8": {56}, "9": {57},

	"f1": {112}, "f2": {113}, "f3": {114}, "f4": {115}, "f5": {116}, "f6": {117},
	"f7": {118}, "f8": {119}, "f9": {120}, "f10": {121}, "f11": {122}, "f12": {123},
	"f13": {124}, "f14": {125}, "f15": {126}, "f16": {127}, "f17": {128}, "f18": {129},
	"f19": {130}, "f20": {131}, "f21": {132}, "f22": {133}, "f23": {134}, "f24": {135},

	"space":     {32}, // VK_SPACE
	"enter":     {13}, // VK_RETURN
	"esc":       {27}, // VK_ESCAPE
	"tab":       {9},  // VK_TAB
	"backspace": {8},  // VK_BACK
	"delete":    {46}, // VK_DELETE
	"insert":    {45}, // VK_INSERT
	"home":      {36}, // VK_HOME
	"end":       {35}, // VK_END
	"pageup":    {33}, // VK_PRIOR
	"pagedown":  {34}, // VK_NEXT

	"left":  {37},
	"up":    {38},
	"right": {39},
	"down":  {40},
}
