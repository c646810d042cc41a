package enums

import "fmt"

// CodeType distinguishes the two kinds of issued digital codes.
type CodeType string

const (
	CodeTypeGiftCard        CodeType = "gift_card"
	CodeTypeDigitalDownload CodeType = "digital_download"
)

var validCodeTypes = []CodeType{
	CodeTypeGiftCard,
	CodeTypeDigitalDownload,
}

// Prefix returns the human-facing code prefix for the type.
func (c CodeType) Prefix() string {
	if c == CodeTypeGiftCard {
		return "GAME"
	}
	return "DIGI"
}

// String implements fmt.Stringer.
func (c CodeType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CodeType.
func (c CodeType) IsValid() bool {
	for _, candidate := range validCodeTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCodeType converts raw input into a CodeType.
func ParseCodeType(value string) (CodeType, error) {
	for _, candidate := range validCodeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid code type %q", value)
}
