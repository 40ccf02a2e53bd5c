package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ImageDelimiter joins ImageList entries in the text column.
const ImageDelimiter = ","

// ImageList is the ordered list of additional image paths for a property.
// It is persisted as a single delimited TEXT column, so no path may contain
// ImageDelimiter.
type ImageList []string

func ParseImageList(s string) ImageList {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var list ImageList
	for _, p := range strings.Split(s, ImageDelimiter) {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}

func (l ImageList) String() string {
	return strings.Join(l, ImageDelimiter)
}

func (l ImageList) Validate() error {
	for _, p := range l {
		if p == "" {
			return fmt.Errorf("image list contains an empty path")
		}
		if strings.Contains(p, ImageDelimiter) {
			return fmt.Errorf("image path %q contains the list delimiter %q", p, ImageDelimiter)
		}
	}
	return nil
}

func (l ImageList) Contains(path string) bool {
	return l.Index(path) >= 0
}

func (l ImageList) Index(path string) int {
	for i, p := range l {
		if p == path {
			return i
		}
	}
	return -1
}

// Without returns a copy of l with the first occurrence of path removed.
func (l ImageList) Without(path string) ImageList {
	i := l.Index(path)
	if i < 0 {
		return l
	}
	out := make(ImageList, 0, len(l)-1)
	out = append(out, l[:i]...)
	return append(out, l[i+1:]...)
}

// Value implements driver.Valuer. Invalid lists are rejected at write time.
func (l ImageList) Value() (driver.Value, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l.String(), nil
}

// Scan implements sql.Scanner.
func (l *ImageList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
	case string:
		*l = ParseImageList(v)
	case []byte:
		*l = ParseImageList(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ImageList", src)
	}
	return nil
}
