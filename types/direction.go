package types

import "fmt"

// Direction is the fixed translation direction shared by everyone in a room.
// Each direction resolves into exactly one (source, target) language pair.
type Direction string

const (
	DirectionEnEs Direction = "en-es"
	DirectionEsEn Direction = "es-en"
)

// ParseDirection validates a client-supplied direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionEnEs, DirectionEsEn:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown translation direction %q", s)
}

// Languages resolves the direction into the source and target language codes
// passed to the translation gateway.
func (d Direction) Languages() (source, target string) {
	if d == DirectionEsEn {
		return "es", "en"
	}
	return "en", "es"
}
