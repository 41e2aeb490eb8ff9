package wire

import "bytes"

// ReadCString splits buf at the first NUL byte, returning the value
// before it and the remainder after it. If buf has no NUL, the whole
// buffer is returned as the value with an empty remainder.
func ReadCString(buf []byte) (value, rest []byte) {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return buf[:i], buf[i+1:]
	}
	return buf, nil
}

// TrimTrailingNULs drops trailing NUL bytes, the convention DHCPv4 uses
// to null-pad the sname and file header fields. An embedded NUL is legal
// in neither field, so trimming only the trailing run is safe.
func TrimTrailingNULs(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}
