package utils

import (
	"reflect"
	"slices"
)

var ColumnTag = "db"

// StructTagValues returns the column names declared on input's exported fields,
// skipping untagged fields, fields tagged "-" and any column listed in omit.
func StructTagValues(input any, omit ...string) []string {
	t := structType(input)

	result := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		column, ok := columnName(t.Field(i))
		if !ok || slices.Contains(omit, column) {
			continue
		}
		result = append(result, column)
	}

	return result
}

// StructToMap maps column name to field value for input, honouring the same
// rules as StructTagValues.
func StructToMap(input any, omit ...string) map[string]any {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := structType(input)

	result := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		column, ok := columnName(t.Field(i))
		if !ok || slices.Contains(omit, column) {
			continue
		}
		result[column] = v.Field(i).Interface()
	}

	return result
}

func structType(input any) reflect.Type {
	t := reflect.TypeOf(input)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return t
}

func columnName(f reflect.StructField) (string, bool) {
	if f.PkgPath != "" {
		return "", false
	}

	tag := f.Tag.Get(ColumnTag)
	if tag == "" || tag == "-" {
		return "", false
	}

	return tag, true
}

// PrefixColumns qualifies every column with a table alias, e.g. "u.email".
func PrefixColumns(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, column := range columns {
		out[i] = alias + "." + column
	}
	return out
}
