package wire

// EnumFromValue looks up v in an ordinary compile-time table and returns
// its name, or a *BadEnumValueError naming table when v isn't present.
// This replaces the source's runtime reflection / global-registry enum
// lookup with a plain map indexed by the wire value.
func EnumFromValue[T ~byte | ~uint16 | ~uint32](table map[T]string, v T, tableName string) (string, error) {
	if name, ok := table[v]; ok {
		return name, nil
	}
	return "", &BadEnumValueError{Table: tableName, Value: uint64(v)}
}
