package models

import (
	"database/sql/driver"
	"slices"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StringList is a JSON array of strings. A nil list is stored as [] so ability
// columns are never NULL.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return datatypes.JSONSlice[string](l).Value()
}

func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var s datatypes.JSONSlice[string]
	if err := s.Scan(value); err != nil {
		return err
	}
	*l = StringList(s)
	return nil
}

func (StringList) GormDataType() string {
	return datatypes.JSONSlice[string]{}.GormDataType()
}

func (StringList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return datatypes.JSONSlice[string]{}.GormDBDataType(db, field)
}

// Contains reports whether s is in the list.
func (l StringList) Contains(s string) bool {
	return slices.Contains(l, s)
}
