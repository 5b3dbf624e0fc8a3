package types

import "fmt"

// MemoryType classifies the content of a memory entry
type MemoryType string

const (
	MemoryTypeCode         MemoryType = "code"
	MemoryTypeConversation MemoryType = "conversation"
	MemoryTypePreference   MemoryType = "preference"
	MemoryTypeGeneral      MemoryType = "general"
)

// AllMemoryTypes returns all valid memory types
func AllMemoryTypes() []MemoryType {
	return []MemoryType{
		MemoryTypeCode,
		MemoryTypeConversation,
		MemoryTypePreference,
		MemoryTypeGeneral,
	}
}

// IsValid checks if the memory type is valid
func (t MemoryType) IsValid() bool {
	switch t {
	case MemoryTypeCode,
		MemoryTypeConversation,
		MemoryTypePreference,
		MemoryTypeGeneral:
		return true
	default:
		return false
	}
}

// String returns the string representation of the memory type
func (t MemoryType) String() string {
	return string(t)
}

// ParseMemoryType parses a string into a MemoryType
func ParseMemoryType(s string) (MemoryType, error) {
	t := MemoryType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid memory type: %s", s)
	}
	return t, nil
}
