package types

// MaxSwizzle is the longest accepted swizzle mask.
const MaxSwizzle = 4

func swizzleLane(c byte) int {
	switch c {
	case 'x', 'r':
		return 0
	case 'y', 'g':
		return 1
	case 'z', 'b':
		return 2
	case 'w', 'a':
		return 3
	}
	return -1
}

// ConvertSwizzle decodes a lane mask such as "xy", "zzx" or "rgba".
// Position and color sets may not be mixed inside one mask.
func ConvertSwizzle(mask string) (idx [MaxSwizzle]int, n int, ok bool) {
	if len(mask) == 0 || len(mask) > MaxSwizzle {
		return idx, 0, false
	}
	color := isColorLane(mask[0])
	for i := 0; i < len(mask); i++ {
		lane := swizzleLane(mask[i])
		if lane < 0 || isColorLane(mask[i]) != color {
			return idx, 0, false
		}
		idx[i] = lane
	}
	return idx, len(mask), true
}

func isColorLane(c byte) bool {
	return c == 'r' || c == 'g' || c == 'b' || c == 'a'
}

// IsCompatible reports whether a value of type from may be assigned to dest.
// floatToInt is set when the assignment truncates float lanes to int.
func IsCompatible(dest, from VarType) (ok bool, floatToInt bool) {
	if dest == from {
		return dest != Void && dest != Invalid, false
	}
	if !IsValueType(dest) || !IsValueType(from) {
		return false, false
	}
	if IsBool(dest) != IsBool(from) {
		return false, false
	}
	fromCnt, destCnt := ElementCount(from), ElementCount(dest)
	if fromCnt != 1 && fromCnt < destCnt {
		return false, false
	}
	return true, IsFloat(from) && IsInt(dest)
}
